// services/settings_service.go
package services

import (
	"errors"
	"fmt"

	"trading-referral-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNoSettings means no reward configuration epoch exists yet. Reward
// distribution treats this as a silent precondition failure, not a user error.
var ErrNoSettings = errors.New("no referral settings configured")

type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

// Latest returns the active settings epoch. Rows are append-only; the newest
// one wins, with id as tie-break so two rows created in the same instant
// still resolve deterministically.
func (s *SettingsService) Latest() (*models.ReferralSettings, error) {
	var settings models.ReferralSettings
	err := s.DB.Order("created_at DESC, id DESC").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSettings
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SettingsPatch carries the admin-editable fields; nil means "leave as is"
type SettingsPatch struct {
	CoinsPerReferral       *float64 `json:"coins_per_referral"`
	Level2RatePercent      *float64 `json:"level2_rate_percent"`
	TransactionFeePercent  *float64 `json:"transaction_fee_percent"`
	MinTransferableBalance *float64 `json:"min_transferable_balance"`
	MinToCryptoWallet      *float64 `json:"min_to_crypto_wallet"`
}

func (p *SettingsPatch) validate() error {
	check := func(name string, v *float64) error {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
		return nil
	}
	if err := check("coins_per_referral", p.CoinsPerReferral); err != nil {
		return err
	}
	if p.Level2RatePercent != nil && (*p.Level2RatePercent < 0 || *p.Level2RatePercent > 100) {
		return fmt.Errorf("level2_rate_percent must be between 0 and 100")
	}
	if err := check("transaction_fee_percent", p.TransactionFeePercent); err != nil {
		return err
	}
	if err := check("min_transferable_balance", p.MinTransferableBalance); err != nil {
		return err
	}
	return check("min_to_crypto_wallet", p.MinToCryptoWallet)
}

// Update is the one sanctioned in-place mutation of an existing epoch
func (s *SettingsService) Update(id string, patch SettingsPatch) (*models.ReferralSettings, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var settings models.ReferralSettings
	if err := s.DB.First(&settings, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSettings
		}
		return nil, err
	}

	if patch.CoinsPerReferral != nil {
		settings.CoinsPerReferral = *patch.CoinsPerReferral
	}
	if patch.Level2RatePercent != nil {
		settings.Level2RatePercent = *patch.Level2RatePercent
	}
	if patch.TransactionFeePercent != nil {
		settings.TransactionFeePercent = *patch.TransactionFeePercent
	}
	if patch.MinTransferableBalance != nil {
		settings.MinTransferableBalance = *patch.MinTransferableBalance
	}
	if patch.MinToCryptoWallet != nil {
		settings.MinToCryptoWallet = *patch.MinToCryptoWallet
	}

	if err := s.DB.Save(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Create appends a new epoch, which becomes authoritative immediately
func (s *SettingsService) Create(patch SettingsPatch) (*models.ReferralSettings, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	settings := models.ReferralSettings{ID: uuid.NewString()}
	if patch.CoinsPerReferral != nil {
		settings.CoinsPerReferral = *patch.CoinsPerReferral
	}
	if patch.Level2RatePercent != nil {
		settings.Level2RatePercent = *patch.Level2RatePercent
	}
	if patch.TransactionFeePercent != nil {
		settings.TransactionFeePercent = *patch.TransactionFeePercent
	}
	if patch.MinTransferableBalance != nil {
		settings.MinTransferableBalance = *patch.MinTransferableBalance
	}
	if patch.MinToCryptoWallet != nil {
		settings.MinToCryptoWallet = *patch.MinToCryptoWallet
	}

	if err := s.DB.Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
