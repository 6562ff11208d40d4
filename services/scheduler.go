// services/scheduler.go
package services

import (
	"log"
	"math"
	"time"

	"trading-referral-system/models"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// StartReconciliationScheduler runs the ledger-vs-balance audit on a timer.
// The stored balance is authoritative and the ledger is its audit trail, so
// the job only reports drift — it never mutates anything.
func (s *ReferralService) StartReconciliationScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.ReconcileBalances(); err != nil {
				log.Printf("[Reconcile] audit failed: %v", err)
			}
		}),
	)
}

type ledgerTotal struct {
	UserID          string
	TransactionType models.TransactionType
	Total           float64
	FeeTotal        float64
}

// ReconcileBalances derives each user's expected balance from completed
// ledger rows (earnings minus outgoing transfers with their fees minus
// subtractive adjustments) and logs any account whose stored balance differs.
func (s *ReferralService) ReconcileBalances() error {
	var totals []ledgerTotal
	if err := s.DB.Model(&models.ReferralTransaction{}).
		Select("user_id, transaction_type, SUM(amount) AS total, SUM(fee) AS fee_total").
		Where("status = ?", models.TxStatusCompleted).
		Group("user_id, transaction_type").
		Scan(&totals).Error; err != nil {
		return err
	}

	expected := make(map[string]float64)
	volume := 0.0
	for _, t := range totals {
		volume += t.Total
		switch {
		case models.EarningTypes[t.TransactionType]:
			expected[t.UserID] += t.Total
		case t.TransactionType == models.TxTransferOut:
			expected[t.UserID] -= t.Total + t.FeeTotal
		case t.TransactionType == models.TxAdminAdjustmentSubtract:
			expected[t.UserID] -= t.Total
		}
	}

	var users []models.User
	if err := s.DB.Select("id", "referral_balance").Find(&users).Error; err != nil {
		return err
	}

	drifted := 0
	for _, u := range users {
		drift := u.ReferralBalance - expected[u.ID]
		if math.Abs(drift) > 1e-6 {
			drifted++
			log.Printf("⚠️ [Reconcile] balance drift for user %s: stored=%.2f ledger=%.2f drift=%+.2f",
				u.ID, u.ReferralBalance, expected[u.ID], drift)
		}
	}

	p := message.NewPrinter(language.English)
	log.Print(p.Sprintf("🧾 [Reconcile] checked %d accounts, %d with drift, %.2f %s ledger volume",
		len(users), drifted, volume, models.DefaultCurrency))
	return nil
}
