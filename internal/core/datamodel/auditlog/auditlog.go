package auditlog

import "time"

type Entry struct {
	ID          int64     `gorm:"primaryKey"`
	UserID      *int64    `gorm:"column:user_id;index"`
	Username    string    `gorm:"column:username"`
	Module      string    `gorm:"column:module;not null;index"`
	Action      string    `gorm:"column:action;not null"`
	Description string    `gorm:"column:description"`
	EntityID    *int64    `gorm:"column:entity_id"`
	IPAddress   string    `gorm:"column:ip_address"`
	UserAgent   string    `gorm:"column:user_agent"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (Entry) TableName() string {
	return "audit_logs"
}
