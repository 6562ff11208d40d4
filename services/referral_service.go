// services/referral_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"trading-referral-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferralService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Balances BalanceStore
}

func NewReferralService(db *gorm.DB, settings *SettingsService, balances BalanceStore) *ReferralService {
	return &ReferralService{DB: db, Settings: settings, Balances: balances}
}

// ResolveReferrerID maps a human-entered referral code to the owning account.
// Lookup failures of any kind collapse to "not found": an invalid or broken
// code must never block a registration.
func (s *ReferralService) ResolveReferrerID(code string) (string, bool) {
	if code == "" {
		return "", false
	}
	var user models.User
	if err := s.DB.Select("id").Where("referral_code = ?", code).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ [REFERRAL] code lookup failed for %q: %v", code, err)
		}
		return "", false
	}
	return user.ID, true
}

// DistributeRewards pays out both referral tiers for one registration.
// Steps run in order and each failure is logged without aborting the rest —
// except a missing settings epoch, which silently skips the whole payout.
//
// Not idempotent: calling this twice for the same registration double-credits.
// The only call site is the one-shot registration path in AuthService.
func (s *ReferralService) DistributeRewards(newUserID, referralCode, referrerID string) {
	settings, err := s.Settings.Latest()
	if err != nil {
		log.Printf("⚠️ [REFERRAL] no active reward settings, skipping payout for %s (code %s): %v",
			newUserID, referralCode, err)
		return
	}

	tier1 := settings.CoinsPerReferral

	if err := s.Balances.CreditReferrerReward(referrerID, tier1, newUserID); err != nil {
		log.Printf("❌ [REFERRAL] L1 credit failed for referrer %s: %v", referrerID, err)
	}

	l1Row := models.ReferralTransaction{
		ID:              uuid.NewString(),
		UserID:          referrerID,
		ReferredUserID:  &newUserID,
		TransactionType: models.TxReferralRewardL1,
		Amount:          tier1,
		Currency:        models.DefaultCurrency,
		Status:          models.TxStatusCompleted,
		Reason:          fmt.Sprintf("Direct referral reward for new user %s", newUserID),
	}
	if err := s.DB.Create(&l1Row).Error; err != nil {
		log.Printf("❌ [REFERRAL] failed to record L1 transaction for %s: %v", referrerID, err)
	}

	if settings.Level2RatePercent <= 0 {
		return
	}

	var referrer models.User
	if err := s.DB.Select("referred_by").First(&referrer, "id = ?", referrerID).Error; err != nil {
		log.Printf("⚠️ [REFERRAL] could not resolve upline of %s: %v", referrerID, err)
		return
	}
	if referrer.ReferredBy == nil {
		// most accounts have no upline; nothing to pay at tier 2
		return
	}

	tier2 := tier1 * settings.Level2RatePercent / 100
	if tier2 <= 0 {
		return
	}
	uplineID := *referrer.ReferredBy

	if err := s.Balances.CreditIndirectReferrerReward(uplineID, tier2, newUserID, referrerID); err != nil {
		log.Printf("❌ [REFERRAL] L2 credit failed for upline %s: %v", uplineID, err)
	}

	l2Row := models.ReferralTransaction{
		ID:                     uuid.NewString(),
		UserID:                 uplineID,
		ReferredUserID:         &newUserID,
		IntermediateReferrerID: &referrerID,
		TransactionType:        models.TxReferralRewardL2,
		Amount:                 tier2,
		Currency:               models.DefaultCurrency,
		Status:                 models.TxStatusCompleted,
		Reason:                 fmt.Sprintf("Indirect (L2) referral reward for new user %s via %s", newUserID, referrerID),
	}
	if err := s.DB.Create(&l2Row).Error; err != nil {
		log.Printf("❌ [REFERRAL] failed to record L2 transaction for %s: %v", uplineID, err)
	}
}

// TransactionView is the stable external shape of a ledger row, with
// defensive defaults for rows written before currency/status were enforced.
type TransactionView struct {
	ID                     string    `json:"id"`
	UserID                 string    `json:"user_id"`
	TransactionType        string    `json:"transaction_type"`
	Amount                 float64   `json:"amount"`
	Currency               string    `json:"currency"`
	Fee                    float64   `json:"fee"`
	RecipientID            *string   `json:"recipient_id,omitempty"`
	RecipientEmail         *string   `json:"recipient_email,omitempty"`
	Reason                 string    `json:"reason"`
	Status                 string    `json:"status"`
	CreatedBy              *string   `json:"created_by,omitempty"`
	ReferredUserID         *string   `json:"referred_user_id,omitempty"`
	IntermediateReferrerID *string   `json:"intermediate_referrer_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type ReferralStats struct {
	ReferralCode      string            `json:"referral_code"`
	ReferralBalance   float64           `json:"referral_balance"`
	DirectReferrals   int64             `json:"direct_referrals"`
	IndirectReferrals int64             `json:"indirect_referrals"`
	TotalEarned       float64           `json:"total_earned"`
	TransferHistory   []TransactionView `json:"transfer_history"`
}

// GetUserReferralStats aggregates a user's referral standing. Unlike reward
// distribution this path is user-facing, so every lookup failure surfaces.
func (s *ReferralService) GetUserReferralStats(userID string) (*ReferralStats, error) {
	var user models.User
	if err := s.DB.Select("referral_code", "referral_balance").First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch referral data: %w", err)
	}

	var directCount int64
	if err := s.DB.Model(&models.User{}).Where("referred_by = ?", userID).Count(&directCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count direct referrals: %w", err)
	}

	var indirectCount int64
	if directCount > 0 {
		var directIDs []string
		if err := s.DB.Model(&models.User{}).Where("referred_by = ?", userID).Pluck("id", &directIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch direct referrals: %w", err)
		}
		if err := s.DB.Model(&models.User{}).Where("referred_by IN ?", directIDs).Count(&indirectCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count indirect referrals: %w", err)
		}
	}

	var txs []models.ReferralTransaction
	if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch referral transactions: %w", err)
	}

	totalEarned := 0.0
	history := make([]TransactionView, len(txs))
	for i, tx := range txs {
		if models.EarningTypes[tx.TransactionType] {
			totalEarned += tx.Amount
		}
		history[i] = newTransactionView(tx)
	}

	return &ReferralStats{
		ReferralCode:      user.ReferralCode,
		ReferralBalance:   user.ReferralBalance,
		DirectReferrals:   directCount,
		IndirectReferrals: indirectCount,
		TotalEarned:       totalEarned,
		TransferHistory:   history,
	}, nil
}

func newTransactionView(tx models.ReferralTransaction) TransactionView {
	currency := tx.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	status := string(tx.Status)
	if status == "" {
		status = "unknown"
	}
	return TransactionView{
		ID:                     tx.ID,
		UserID:                 tx.UserID,
		TransactionType:        string(tx.TransactionType),
		Amount:                 tx.Amount,
		Currency:               currency,
		Fee:                    tx.Fee,
		RecipientID:            tx.RecipientID,
		RecipientEmail:         tx.RecipientEmail,
		Reason:                 tx.Reason,
		Status:                 status,
		CreatedBy:              tx.CreatedBy,
		ReferredUserID:         tx.ReferredUserID,
		IntermediateReferrerID: tx.IntermediateReferrerID,
		CreatedAt:              tx.CreatedAt,
		UpdatedAt:              tx.UpdatedAt,
	}
}

type NetworkOwner struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
}

type DirectReferral struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	JoinDate    time.Time `json:"join_date"`
	CoinsEarned float64   `json:"coins_earned"`
}

type IndirectReferral struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	ReferredBy  string    `json:"referred_by"`
	JoinDate    time.Time `json:"join_date"`
	CoinsEarned float64   `json:"coins_earned"`
}

type ReferralNetwork struct {
	User              NetworkOwner       `json:"user"`
	DirectReferrals   []DirectReferral   `json:"direct_referrals"`
	IndirectReferrals []IndirectReferral `json:"indirect_referrals"`
}

// GetUserReferralNetwork builds the two-tier tree view, each edge annotated
// with the coins this user earned from it. A missing reward row means zero
// earned, not an error.
func (s *ReferralService) GetUserReferralNetwork(userID string) (*ReferralNetwork, error) {
	var owner models.User
	if err := s.DB.Select("id", "email", "username", "referral_code").First(&owner, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user for referral network: %w", err)
	}

	var directs []models.User
	if err := s.DB.Where("referred_by = ?", userID).Find(&directs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch direct referrals: %w", err)
	}

	network := &ReferralNetwork{
		User: NetworkOwner{
			ID:           owner.ID,
			Email:        owner.Email,
			Username:     owner.Username,
			ReferralCode: owner.ReferralCode,
		},
		DirectReferrals:   make([]DirectReferral, 0, len(directs)),
		IndirectReferrals: []IndirectReferral{},
	}

	directIDs := make([]string, 0, len(directs))
	for _, ref := range directs {
		earned, err := s.edgeReward(userID, ref.ID, nil)
		if err != nil {
			return nil, err
		}
		network.DirectReferrals = append(network.DirectReferrals, DirectReferral{
			ID:          ref.ID,
			Email:       ref.Email,
			Username:    ref.Username,
			JoinDate:    ref.CreatedAt,
			CoinsEarned: earned,
		})
		directIDs = append(directIDs, ref.ID)
	}

	if len(directIDs) == 0 {
		return network, nil
	}

	var indirects []models.User
	if err := s.DB.Where("referred_by IN ?", directIDs).Find(&indirects).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch indirect referrals: %w", err)
	}

	for _, ref := range indirects {
		earned, err := s.edgeReward(userID, ref.ID, ref.ReferredBy)
		if err != nil {
			return nil, err
		}
		referredBy := ""
		if ref.ReferredBy != nil {
			referredBy = *ref.ReferredBy
		}
		network.IndirectReferrals = append(network.IndirectReferrals, IndirectReferral{
			ID:          ref.ID,
			Email:       ref.Email,
			Username:    ref.Username,
			ReferredBy:  referredBy,
			JoinDate:    ref.CreatedAt,
			CoinsEarned: earned,
		})
	}

	return network, nil
}

// edgeReward looks up the reward row for one referral edge. intermediateID
// nil selects the tier-1 row, non-nil the tier-2 row bridged by that account.
func (s *ReferralService) edgeReward(userID, referredUserID string, intermediateID *string) (float64, error) {
	query := s.DB.Model(&models.ReferralTransaction{}).
		Where("user_id = ? AND referred_user_id = ?", userID, referredUserID)
	if intermediateID == nil {
		query = query.Where("transaction_type = ?", models.TxReferralRewardL1)
	} else {
		query = query.Where("transaction_type = ? AND intermediate_referrer_id = ?",
			models.TxReferralRewardL2, *intermediateID)
	}

	var rows []models.ReferralTransaction
	if err := query.Limit(1).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch reward for referral edge: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Amount, nil
}

// RecentTransactions lists the newest ledger rows for the admin dashboard,
// optionally filtered to one user.
func (s *ReferralService) RecentTransactions(userID string, limit int) ([]TransactionView, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := s.DB.Model(&models.ReferralTransaction{}).Order("created_at DESC").Limit(limit)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var txs []models.ReferralTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	views := make([]TransactionView, len(txs))
	for i, tx := range txs {
		views[i] = newTransactionView(tx)
	}
	return views, nil
}
