package models

import "time"

// User is the slice of the member directory the commission engine reads.
// ReferrerID forms the referral forest; nil marks a root.
type User struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	ReferrerID  *int64    `gorm:"column:referrer_id"`
	IsActivated bool      `gorm:"column:is_activated;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
