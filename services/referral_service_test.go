package services

import (
	"testing"
	"time"

	"trading-referral-system/models"

	"github.com/google/uuid"
)

func TestResolveReferrerID(t *testing.T) {
	svc, db := newTestReferralService(t)
	owner := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil)

	tests := []struct {
		name   string
		code   string
		wantID string
		wantOK bool
	}{
		{"known code", "TRADAAAA0001", owner.ID, true},
		{"unknown code", "TRADZZZZ9999", "", false},
		{"empty code", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := svc.ResolveReferrerID(tc.code)
			if ok != tc.wantOK || id != tc.wantID {
				t.Errorf("ResolveReferrerID(%q) = (%q, %v), want (%q, %v)", tc.code, id, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestDistributeRewardsTierOne(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedSettings(t, db, 10, 0, 0, 0)
	referrer := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil)
	newcomer := seedUser(t, db, "bob", "bob@example.com", "TRADBBBB0001", &referrer.ID)

	svc.DistributeRewards(newcomer.ID, "TRADAAAA0001", referrer.ID)

	got := userByID(t, db, referrer.ID)
	if got.ReferralBalance != 10 {
		t.Errorf("referrer balance = %v, want 10", got.ReferralBalance)
	}
	if got.ReferralCount != 1 {
		t.Errorf("referrer count = %d, want 1", got.ReferralCount)
	}

	rows := ledgerRows(t, db, referrer.ID, models.TxReferralRewardL1)
	if len(rows) != 1 {
		t.Fatalf("got %d L1 rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Amount != 10 {
		t.Errorf("L1 amount = %v, want 10", row.Amount)
	}
	if row.ReferredUserID == nil || *row.ReferredUserID != newcomer.ID {
		t.Errorf("L1 referred_user_id = %v, want %s", row.ReferredUserID, newcomer.ID)
	}
	if row.Status != models.TxStatusCompleted {
		t.Errorf("L1 status = %s, want completed", row.Status)
	}
	if n := ledgerCount(t, db); n != 1 {
		t.Errorf("total ledger rows = %d, want 1 (no L2 row at rate 0)", n)
	}
}

// The documented A/B/C scenario: coinsPerReferral=10, level2RatePercent=50.
func TestDistributeRewardsTwoTiers(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedSettings(t, db, 10, 50, 0, 0)

	a := seedUser(t, db, "a", "a@example.com", "TRADAAAA0001", nil)
	b := seedUser(t, db, "b", "b@example.com", "TRADBBBB0001", &a.ID)
	svc.DistributeRewards(b.ID, "TRADAAAA0001", a.ID)

	c := seedUser(t, db, "c", "c@example.com", "TRADCCCC0001", &b.ID)
	svc.DistributeRewards(c.ID, "TRADBBBB0001", b.ID)

	if got := userByID(t, db, b.ID); got.ReferralBalance != 10 || got.ReferralCount != 1 {
		t.Errorf("B = balance %v count %d, want balance 10 count 1", got.ReferralBalance, got.ReferralCount)
	}
	// A: 10 for B directly, plus 5 indirectly for C
	if got := userByID(t, db, a.ID); got.ReferralBalance != 15 || got.ReferralCount != 1 {
		t.Errorf("A = balance %v count %d, want balance 15 count 1", got.ReferralBalance, got.ReferralCount)
	}

	l2 := ledgerRows(t, db, a.ID, models.TxReferralRewardL2)
	if len(l2) != 1 {
		t.Fatalf("got %d L2 rows for A, want 1", len(l2))
	}
	if l2[0].Amount != 5 {
		t.Errorf("L2 amount = %v, want 5", l2[0].Amount)
	}
	if l2[0].ReferredUserID == nil || *l2[0].ReferredUserID != c.ID {
		t.Errorf("L2 referred_user_id = %v, want %s", l2[0].ReferredUserID, c.ID)
	}
	if l2[0].IntermediateReferrerID == nil || *l2[0].IntermediateReferrerID != b.ID {
		t.Errorf("L2 intermediate_referrer_id = %v, want %s", l2[0].IntermediateReferrerID, b.ID)
	}
}

func TestDistributeRewardsWithoutSettings(t *testing.T) {
	svc, db := newTestReferralService(t)
	referrer := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil)
	newcomer := seedUser(t, db, "bob", "bob@example.com", "TRADBBBB0001", &referrer.ID)

	svc.DistributeRewards(newcomer.ID, "TRADAAAA0001", referrer.ID)

	if got := userByID(t, db, referrer.ID); got.ReferralBalance != 0 || got.ReferralCount != 0 {
		t.Errorf("referrer mutated without settings: balance %v count %d", got.ReferralBalance, got.ReferralCount)
	}
	if n := ledgerCount(t, db); n != 0 {
		t.Errorf("ledger rows = %d, want 0 when settings are absent", n)
	}
}

func TestDistributeRewardsNoUplineSkipsTierTwo(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedSettings(t, db, 10, 50, 0, 0)
	referrer := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil) // no upline
	newcomer := seedUser(t, db, "bob", "bob@example.com", "TRADBBBB0001", &referrer.ID)

	svc.DistributeRewards(newcomer.ID, "TRADAAAA0001", referrer.ID)

	var l2Count int64
	db.Model(&models.ReferralTransaction{}).Where("transaction_type = ?", models.TxReferralRewardL2).Count(&l2Count)
	if l2Count != 0 {
		t.Errorf("L2 rows = %d, want 0 for a referrer with no upline", l2Count)
	}
}

// Re-invocation double-credits. That is the current contract — the engine
// relies on its single registration-time call site, not on idempotency.
func TestDistributeRewardsNotIdempotent(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedSettings(t, db, 10, 0, 0, 0)
	referrer := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil)
	newcomer := seedUser(t, db, "bob", "bob@example.com", "TRADBBBB0001", &referrer.ID)

	svc.DistributeRewards(newcomer.ID, "TRADAAAA0001", referrer.ID)
	svc.DistributeRewards(newcomer.ID, "TRADAAAA0001", referrer.ID)

	if got := userByID(t, db, referrer.ID); got.ReferralBalance != 20 || got.ReferralCount != 2 {
		t.Errorf("after double invocation: balance %v count %d, want 20 and 2", got.ReferralBalance, got.ReferralCount)
	}
	if rows := ledgerRows(t, db, referrer.ID, models.TxReferralRewardL1); len(rows) != 2 {
		t.Errorf("L1 rows = %d, want 2", len(rows))
	}
}

func TestGetUserReferralStats(t *testing.T) {
	svc, db := newTestReferralService(t)
	owner := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil)
	direct1 := seedUser(t, db, "bob", "bob@example.com", "TRADBBBB0001", &owner.ID)
	seedUser(t, db, "carol", "carol@example.com", "TRADCCCC0001", &owner.ID)
	seedUser(t, db, "dave", "dave@example.com", "TRADDDDD0001", &direct1.ID) // indirect

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mk := func(txType models.TransactionType, amount float64, offset time.Duration) {
		row := models.ReferralTransaction{
			ID:              uuid.NewString(),
			UserID:          owner.ID,
			TransactionType: txType,
			Amount:          amount,
			Currency:        models.DefaultCurrency,
			Status:          models.TxStatusCompleted,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed tx: %v", err)
		}
		at(t, db, &row, base.Add(offset))
	}
	mk(models.TxReferralRewardL1, 10, 0)
	mk(models.TxReferralRewardL2, 5, time.Minute)
	mk(models.TxTransferIn, 20, 2*time.Minute)
	mk(models.TxAdminAdjustmentAdd, 7, 3*time.Minute)
	mk(models.TxTransferOut, 100, 4*time.Minute)            // excluded from earnings
	mk(models.TxAdminAdjustmentSubtract, 50, 5*time.Minute) // excluded from earnings

	stats, err := svc.GetUserReferralStats(owner.ID)
	if err != nil {
		t.Fatalf("GetUserReferralStats: %v", err)
	}

	if stats.ReferralCode != "TRADAAAA0001" {
		t.Errorf("referral code = %q", stats.ReferralCode)
	}
	if stats.DirectReferrals != 2 {
		t.Errorf("direct referrals = %d, want 2", stats.DirectReferrals)
	}
	if stats.IndirectReferrals != 1 {
		t.Errorf("indirect referrals = %d, want 1", stats.IndirectReferrals)
	}
	if stats.TotalEarned != 42 {
		t.Errorf("total earned = %v, want 42 (10+5+20+7)", stats.TotalEarned)
	}
	if len(stats.TransferHistory) != 6 {
		t.Fatalf("history length = %d, want 6", len(stats.TransferHistory))
	}
	// most recent first
	if stats.TransferHistory[0].TransactionType != string(models.TxAdminAdjustmentSubtract) {
		t.Errorf("history[0] = %s, want admin_adjustment_subtract", stats.TransferHistory[0].TransactionType)
	}
	if stats.TransferHistory[5].TransactionType != string(models.TxReferralRewardL1) {
		t.Errorf("history[5] = %s, want referral_reward_l1", stats.TransferHistory[5].TransactionType)
	}
}

func TestGetUserReferralStatsNoDirectsSkipsIndirectQuery(t *testing.T) {
	svc, db := newTestReferralService(t)
	owner := seedUser(t, db, "alice", "alice@example.com", "TRADAAAA0001", nil)

	stats, err := svc.GetUserReferralStats(owner.ID)
	if err != nil {
		t.Fatalf("GetUserReferralStats: %v", err)
	}
	if stats.DirectReferrals != 0 || stats.IndirectReferrals != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", stats.DirectReferrals, stats.IndirectReferrals)
	}
	if stats.TotalEarned != 0 || len(stats.TransferHistory) != 0 {
		t.Errorf("earned = %v history = %d, want zero values", stats.TotalEarned, len(stats.TransferHistory))
	}
}

func TestGetUserReferralStatsUnknownUser(t *testing.T) {
	svc, _ := newTestReferralService(t)
	if _, err := svc.GetUserReferralStats(uuid.NewString()); err == nil {
		t.Fatal("expected error for unknown user, got nil")
	}
}

func TestNewTransactionViewDefaults(t *testing.T) {
	view := newTransactionView(models.ReferralTransaction{
		ID:     "tx-1",
		UserID: "u-1",
		Amount: 3,
	})
	if view.Currency != models.DefaultCurrency {
		t.Errorf("currency = %q, want %q", view.Currency, models.DefaultCurrency)
	}
	if view.Status != "unknown" {
		t.Errorf("status = %q, want \"unknown\"", view.Status)
	}
}

func TestGetUserReferralNetwork(t *testing.T) {
	svc, db := newTestReferralService(t)
	seedSettings(t, db, 10, 50, 0, 0)

	a := seedUser(t, db, "a", "a@example.com", "TRADAAAA0001", nil)
	b := seedUser(t, db, "b", "b@example.com", "TRADBBBB0001", &a.ID)
	svc.DistributeRewards(b.ID, "TRADAAAA0001", a.ID)
	c := seedUser(t, db, "c", "c@example.com", "TRADCCCC0001", &b.ID)
	svc.DistributeRewards(c.ID, "TRADBBBB0001", b.ID)
	// direct referral without any reward rows (e.g. settings were absent then)
	d := seedUser(t, db, "d", "d@example.com", "TRADDDDD0001", &a.ID)

	network, err := svc.GetUserReferralNetwork(a.ID)
	if err != nil {
		t.Fatalf("GetUserReferralNetwork: %v", err)
	}

	if network.User.ID != a.ID || network.User.ReferralCode != "TRADAAAA0001" {
		t.Errorf("owner = %+v", network.User)
	}
	if len(network.DirectReferrals) != 2 {
		t.Fatalf("direct referrals = %d, want 2", len(network.DirectReferrals))
	}
	earned := map[string]float64{}
	for _, ref := range network.DirectReferrals {
		earned[ref.ID] = ref.CoinsEarned
	}
	if earned[b.ID] != 10 {
		t.Errorf("coins earned from B = %v, want 10", earned[b.ID])
	}
	if earned[d.ID] != 0 {
		t.Errorf("coins earned from D = %v, want 0 (no reward row is not an error)", earned[d.ID])
	}

	if len(network.IndirectReferrals) != 1 {
		t.Fatalf("indirect referrals = %d, want 1", len(network.IndirectReferrals))
	}
	ind := network.IndirectReferrals[0]
	if ind.ID != c.ID || ind.ReferredBy != b.ID || ind.CoinsEarned != 5 {
		t.Errorf("indirect = %+v, want id=%s referredBy=%s coins=5", ind, c.ID, b.ID)
	}
}
