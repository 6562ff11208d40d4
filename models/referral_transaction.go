package models

import "time"

// TransactionType tags what a ledger row represents. Amounts are always
// non-negative; direction is carried by the type, not the sign.
type TransactionType string

const (
	TxReferralRewardL1        TransactionType = "referral_reward_l1"
	TxReferralRewardL2        TransactionType = "referral_reward_l2"
	TxTransferIn              TransactionType = "transfer_in"
	TxTransferOut             TransactionType = "transfer_out"
	TxAdminAdjustmentAdd      TransactionType = "admin_adjustment_add"
	TxAdminAdjustmentSubtract TransactionType = "admin_adjustment_subtract"
)

// TransactionStatus indicates settlement state of a ledger row
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
)

// DefaultCurrency is the platform reward coin
const DefaultCurrency = "TDC"

// EarningTypes are the transaction types that count toward a user's
// "total earned" statistic. Outgoing transfers and subtractive adjustments
// do not contribute.
var EarningTypes = map[TransactionType]bool{
	TxReferralRewardL1:   true,
	TxReferralRewardL2:   true,
	TxTransferIn:         true,
	TxAdminAdjustmentAdd: true,
}

// ReferralTransaction is an immutable ledger entry: rows are appended once
// and never edited or deleted. The stored balance on User is authoritative;
// this ledger is the audit trail and feeds earned/history statistics only.
type ReferralTransaction struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"` // the beneficiary (or payer for transfer_out)

	// ReferredUserID is the account whose registration triggered a reward.
	ReferredUserID *string `gorm:"index" json:"referred_user_id,omitempty"`
	// IntermediateReferrerID is set on tier-2 rows only: the tier-1 account
	// that bridged the reward to this beneficiary.
	IntermediateReferrerID *string `gorm:"index" json:"intermediate_referrer_id,omitempty"`

	TransactionType TransactionType   `gorm:"index;not null" json:"transaction_type"`
	Amount          float64           `gorm:"not null" json:"amount"`
	Currency        string            `gorm:"not null;default:'TDC'" json:"currency"`
	Fee             float64           `gorm:"not null;default:0" json:"fee"`
	Status          TransactionStatus `gorm:"not null;default:'pending'" json:"status"`

	RecipientID    *string `json:"recipient_id,omitempty"`
	RecipientEmail *string `json:"recipient_email,omitempty"`
	Reason         string  `gorm:"type:text" json:"reason"`
	CreatedBy      *string `json:"created_by,omitempty"` // admin id on adjustment rows

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
