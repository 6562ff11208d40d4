package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the account profile row owned by this service. The ID comes from
// the identity provider at sign-up; everything referral-related lives here.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"` // identity provider's UUID
	Username string `gorm:"index;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"` // stored lowercased
	Role     string `gorm:"not null;default:'user'" json:"role"`
	Status   string `gorm:"not null;default:'active'" json:"status"`

	ReferralCode string `gorm:"uniqueIndex;not null" json:"referral_code"`
	// ReferredBy is set once at creation (or never) and points at a
	// pre-existing account, so the referral graph stays a forest.
	ReferredBy      *string `gorm:"index" json:"referred_by,omitempty"`
	ReferralBalance float64 `gorm:"not null;default:0" json:"referral_balance"`
	ReferralCount   int64   `gorm:"not null;default:0" json:"referral_count"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
