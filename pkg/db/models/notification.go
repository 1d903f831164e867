package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
)

// Notification is one delivered message in a recipient inbox.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID              `gorm:"column:event_id;type:uuid;not null"`
	RecipientType enums.RecipientType    `gorm:"column:recipient_type;not null"`
	RecipientID   string                 `gorm:"column:recipient_id;not null"`
	Kind          enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null"`
	OrderID       *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	ObjectiveID   *uuid.UUID             `gorm:"column:objective_id;type:uuid"`
	Payload       json.RawMessage        `gorm:"column:payload;type:jsonb;not null"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }
