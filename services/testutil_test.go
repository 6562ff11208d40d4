package services

import (
	"testing"
	"time"

	"trading-referral-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// every pooled connection of :memory: is its own database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.ReferralSettings{},
		&models.ReferralTransaction{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestReferralService(t *testing.T) (*ReferralService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewReferralService(db, NewSettingsService(db), NewGormBalanceStore(db)), db
}

func seedUser(t *testing.T, db *gorm.DB, username, email, code string, referredBy *string) *models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         "user",
		Status:       "active",
		ReferralCode: code,
		ReferredBy:   referredBy,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return &user
}

func seedSettings(t *testing.T, db *gorm.DB, coinsPerReferral, level2Rate, feePercent, minTransferable float64) *models.ReferralSettings {
	t.Helper()
	settings := models.ReferralSettings{
		ID:                     uuid.NewString(),
		CoinsPerReferral:       coinsPerReferral,
		Level2RatePercent:      level2Rate,
		TransactionFeePercent:  feePercent,
		MinTransferableBalance: minTransferable,
	}
	if err := db.Create(&settings).Error; err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}
	return &settings
}

func userByID(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to load user %s: %v", id, err)
	}
	return &user
}

func ledgerRows(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType) []models.ReferralTransaction {
	t.Helper()
	var rows []models.ReferralTransaction
	if err := db.Where("user_id = ? AND transaction_type = ?", userID, txType).Find(&rows).Error; err != nil {
		t.Fatalf("failed to load ledger rows: %v", err)
	}
	return rows
}

func ledgerCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.ReferralTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count ledger rows: %v", err)
	}
	return count
}

func at(t *testing.T, db *gorm.DB, row *models.ReferralTransaction, created time.Time) {
	t.Helper()
	if err := db.Model(row).UpdateColumn("created_at", created).Error; err != nil {
		t.Fatalf("failed to backdate ledger row: %v", err)
	}
}
