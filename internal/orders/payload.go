package orders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brewloop/subswap-backend/internal/orderedit"
	product "github.com/brewloop/subswap-backend/internal/products"
)

const subscriptionMarker = "subscription"

// OrderPayload is the orders/create webhook body reduced to the fields the
// replacement pipeline reads.
type OrderPayload struct {
	ID                int64      `json:"id"`
	AdminGraphQLAPIID string     `json:"admin_graphql_api_id"`
	Name              string     `json:"name"`
	LineItems         []LineItem `json:"line_items"`
}

// LineItem is one entry of the webhook order.
type LineItem struct {
	ID           int64              `json:"id"`
	Title        string             `json:"title"`
	Name         string             `json:"name"`
	VariantID    int64              `json:"variant_id"`
	VariantTitle string             `json:"variant_title"`
	Price        string             `json:"price"`
	Quantity     int                `json:"quantity"`
	Properties   []LineItemProperty `json:"properties"`
}

// LineItemProperty is a custom line item property attached at checkout.
type LineItemProperty struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// OrderGID returns the order's global id, synthesizing it from the numeric
// id when the webhook omits the GraphQL form.
func (p OrderPayload) OrderGID() string {
	if p.AdminGraphQLAPIID != "" {
		return p.AdminGraphQLAPIID
	}
	return fmt.Sprintf("gid://shopify/Order/%d", p.ID)
}

// SubscriptionItems returns the line items flagged as subscriptions by a
// case-insensitive marker match on title, name, variant title, or a
// property named "subscription".
func (p OrderPayload) SubscriptionItems() []LineItem {
	var items []LineItem
	for _, item := range p.LineItems {
		if item.isSubscription() {
			items = append(items, item)
		}
	}
	return items
}

func (li LineItem) isSubscription() bool {
	for _, field := range []string{li.Title, li.Name, li.VariantTitle} {
		if strings.Contains(strings.ToLower(field), subscriptionMarker) {
			return true
		}
	}
	for _, prop := range li.Properties {
		if strings.EqualFold(strings.TrimSpace(prop.Name), subscriptionMarker) {
			return true
		}
	}
	return false
}

// replacementSources maps subscription line items to the matcher's input.
// Webhook line items carry no structured options, so the variant title is
// the token source.
func replacementSources(items []LineItem) []product.ReplacementSource {
	sources := make([]product.ReplacementSource, 0, len(items))
	for _, item := range items {
		sources = append(sources, product.ReplacementSource{
			VariantTitle: item.VariantTitle,
		})
	}
	return sources
}

// removalTargets maps subscription line items to the edit session removal
// input, keyed by the webhook's numeric variant id.
func removalTargets(items []LineItem) []orderedit.RemovalTarget {
	targets := make([]orderedit.RemovalTarget, 0, len(items))
	for _, item := range items {
		targets = append(targets, orderedit.RemovalTarget{
			VariantID: strconv.FormatInt(item.VariantID, 10),
			Title:     item.Title,
		})
	}
	return targets
}
