// services/balance_store.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"trading-referral-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrSelfTransfer        = errors.New("cannot transfer coins to yourself")
	ErrInsufficientBalance = errors.New("insufficient referral balance")
	ErrBelowMinBalance     = errors.New("balance below transferable minimum")
)

// TransferResult is the opaque payload returned by a completed transfer
type TransferResult struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Fee           float64 `json:"fee"`
	RecipientID   string  `json:"recipient_id"`
}

// AdjustmentResult reports the outcome of an admin balance correction
type AdjustmentResult struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	NewBalance    float64 `json:"new_balance"`
}

// BalanceStore is the atomic-operation boundary of the system. Every balance
// mutation goes through one of these calls as a single storage transaction;
// nothing above this interface ever does read-modify-write on a balance, so
// concurrent registrations or transfers hitting the same account cannot lose
// updates.
type BalanceStore interface {
	CreditReferrerReward(referrerID string, amount float64, newUserID string) error
	CreditIndirectReferrerReward(referrerID string, amount float64, newUserID, intermediateReferrerID string) error
	TransferCoins(senderID, recipientEmail string, amount float64) (*TransferResult, error)
	AdminAdjustBalance(targetUserID string, amount float64, reason, adminID string) (*AdjustmentResult, error)
}

type GormBalanceStore struct {
	DB *gorm.DB
}

func NewGormBalanceStore(db *gorm.DB) *GormBalanceStore {
	return &GormBalanceStore{DB: db}
}

// CreditReferrerReward credits the tier-1 referrer and bumps their direct
// referral count in one guarded statement.
func (s *GormBalanceStore) CreditReferrerReward(referrerID string, amount float64, newUserID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", referrerID).Updates(map[string]interface{}{
			"referral_balance": gorm.Expr("referral_balance + ?", amount),
			"referral_count":   gorm.Expr("referral_count + 1"),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("credit referrer %s for new user %s: %w", referrerID, newUserID, ErrUserNotFound)
		}
		return nil
	})
}

// CreditIndirectReferrerReward credits the tier-2 referrer. The referral
// count tracks direct referrals only, so it stays untouched here.
func (s *GormBalanceStore) CreditIndirectReferrerReward(referrerID string, amount float64, newUserID, intermediateReferrerID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", referrerID).
			Update("referral_balance", gorm.Expr("referral_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("credit upline %s for new user %s (via %s): %w",
				referrerID, newUserID, intermediateReferrerID, ErrUserNotFound)
		}
		return nil
	})
}

// TransferCoins moves coins between accounts: fee from the active settings
// epoch, guarded debit, credit, and the paired ledger rows — all inside one
// transaction. A failure anywhere leaves every balance untouched.
func (s *GormBalanceStore) TransferCoins(senderID, recipientEmail string, amount float64) (*TransferResult, error) {
	var result *TransferResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var settings models.ReferralSettings
		if err := tx.Order("created_at DESC, id DESC").First(&settings).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSettings
			}
			return err
		}

		var recipient models.User
		if err := tx.Where("email = ?", strings.ToLower(recipientEmail)).First(&recipient).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}
		if recipient.ID == senderID {
			return ErrSelfTransfer
		}

		var sender models.User
		if err := tx.First(&sender, "id = ?", senderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if sender.ReferralBalance < settings.MinTransferableBalance {
			return ErrBelowMinBalance
		}

		fee := amount * settings.TransactionFeePercent / 100
		total := amount + fee

		// The balance condition rides on the debit itself, so a concurrent
		// transfer that drained the account makes this a no-op instead of an
		// overdraft.
		res := tx.Model(&models.User{}).
			Where("id = ? AND referral_balance >= ?", senderID, total).
			Update("referral_balance", gorm.Expr("referral_balance - ?", total))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		if err := tx.Model(&models.User{}).Where("id = ?", recipient.ID).
			Update("referral_balance", gorm.Expr("referral_balance + ?", amount)).Error; err != nil {
			return err
		}

		outRow := models.ReferralTransaction{
			ID:              uuid.NewString(),
			UserID:          senderID,
			TransactionType: models.TxTransferOut,
			Amount:          amount,
			Currency:        models.DefaultCurrency,
			Fee:             fee,
			Status:          models.TxStatusCompleted,
			RecipientID:     &recipient.ID,
			RecipientEmail:  &recipient.Email,
			Reason:          fmt.Sprintf("Coin transfer to %s", recipient.Email),
		}
		inRow := models.ReferralTransaction{
			ID:              uuid.NewString(),
			UserID:          recipient.ID,
			TransactionType: models.TxTransferIn,
			Amount:          amount,
			Currency:        models.DefaultCurrency,
			Status:          models.TxStatusCompleted,
			Reason:          fmt.Sprintf("Coin transfer from %s", sender.Email),
		}
		if err := tx.Create(&outRow).Error; err != nil {
			return err
		}
		if err := tx.Create(&inRow).Error; err != nil {
			return err
		}

		result = &TransferResult{
			TransactionID: outRow.ID,
			Amount:        amount,
			Fee:           fee,
			RecipientID:   recipient.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdminAdjustBalance applies a signed correction: positive credits, negative
// debits. Debits may not push a balance below zero. The ledger row stores the
// magnitude; direction lives in the transaction type.
func (s *GormBalanceStore) AdminAdjustBalance(targetUserID string, amount float64, reason, adminID string) (*AdjustmentResult, error) {
	var result *AdjustmentResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.User{}).Where("id = ?", targetUserID)
		if amount < 0 {
			query = query.Where("referral_balance >= ?", -amount)
		}
		res := query.Update("referral_balance", gorm.Expr("referral_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.User{}).Where("id = ?", targetUserID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrUserNotFound
			}
			return ErrInsufficientBalance
		}

		txType := models.TxAdminAdjustmentAdd
		magnitude := amount
		if amount < 0 {
			txType = models.TxAdminAdjustmentSubtract
			magnitude = -amount
		}
		row := models.ReferralTransaction{
			ID:              uuid.NewString(),
			UserID:          targetUserID,
			TransactionType: txType,
			Amount:          magnitude,
			Currency:        models.DefaultCurrency,
			Status:          models.TxStatusCompleted,
			Reason:          reason,
			CreatedBy:       &adminID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var target models.User
		if err := tx.Select("referral_balance").First(&target, "id = ?", targetUserID).Error; err != nil {
			return err
		}

		result = &AdjustmentResult{
			TransactionID: row.ID,
			Amount:        amount,
			NewBalance:    target.ReferralBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
