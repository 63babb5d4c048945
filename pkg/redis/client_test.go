package redis

import (
	"testing"
	"time"

	"github.com/brewloop/subswap-backend/pkg/config"
)

func TestKeyBuilders(t *testing.T) {
	client := &Client{}

	if got := client.IdempotencyKey("orders-webhook", "evt-1"); got != "subswap:idempotency:orders-webhook:evt-1" {
		t.Fatalf("unexpected idempotency key: %q", got)
	}
	if got := client.QueueKey("shopify-orders", "pending"); got != "subswap:queue:shopify-orders:pending" {
		t.Fatalf("unexpected queue key: %q", got)
	}
	if got := client.BatchKey("success"); got != "subswap:batch:success" {
		t.Fatalf("unexpected batch key: %q", got)
	}
	if got := buildKey("a", "", "b"); got != "subswap:a:b" {
		t.Fatalf("empty parts should be skipped, got %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	if err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}

	opts, err := optionsFromConfig(config.RedisConfig{
		Address:      "localhost:6379",
		Password:     "secret",
		DB:           2,
		PoolSize:     5,
		DialTimeout:  time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 5 {
		t.Fatalf("options not applied: %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:pw@remote:6380/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "remote:6380" || opts.DB != 1 {
		t.Fatalf("url options not parsed: %+v", opts)
	}
}
