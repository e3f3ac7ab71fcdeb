package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotificationSessionReminder NotificationKind = "session_reminder"
	NotificationAssistantPush   NotificationKind = "assistant_push"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID  uint             `gorm:"index;not null" json:"user_id"`
	Kind    NotificationKind `gorm:"size:30;index" json:"kind"`
	Title   string           `gorm:"size:200" json:"title"`
	Body    string           `gorm:"type:text" json:"body"`
	Payload datatypes.JSON   `json:"payload,omitempty"`
	ReadAt  *time.Time       `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
