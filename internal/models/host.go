package models

import (
	"time"
)

// Host 房主账号表（创建/推进房间需要登录）
type Host struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Nickname    string     `gorm:"size:100" json:"nickname"`
	Password    string     `gorm:"size:255;not null" json:"-"` // argon2id哈希
	Status      string     `gorm:"size:20;default:'active'" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// TableName 指定表名
func (Host) TableName() string {
	return "hosts"
}

// IsActive 账号是否可用
func (h *Host) IsActive() bool {
	return h.Status == "active"
}
