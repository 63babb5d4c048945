package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brewloop/subswap-backend/pkg/enums"
)

// OrderEditLog is one row per webhook processing attempt. It is created
// optimistically with SUCCESS and mutated at most once more when the
// pipeline fails, recording the step that was in flight.
type OrderEditLog struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   string                `gorm:"column:order_id;not null;index"`
	Status    enums.OrderEditStatus `gorm:"column:status;not null"`
	Step      enums.OrderEditStep   `gorm:"column:step;not null"`
	Payload   json.RawMessage       `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table used by goose migrations.
func (OrderEditLog) TableName() string {
	return "order_edit_logs"
}
