package models

import "time"

// ReferralSettings is one configuration epoch. Rows are appended, never
// deleted; the newest row (created_at, then id) is the active one. The only
// in-place mutation is the explicit admin update endpoint.
type ReferralSettings struct {
	ID                     string  `gorm:"primaryKey;type:uuid" json:"id"`
	CoinsPerReferral       float64 `gorm:"not null;default:0" json:"coins_per_referral"`
	Level2RatePercent      float64 `gorm:"not null;default:0" json:"level2_rate_percent"`
	TransactionFeePercent  float64 `gorm:"not null;default:0" json:"transaction_fee_percent"`
	MinTransferableBalance float64 `gorm:"not null;default:0" json:"min_transferable_balance"`
	MinToCryptoWallet      float64 `gorm:"not null;default:0" json:"min_to_crypto_wallet"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
