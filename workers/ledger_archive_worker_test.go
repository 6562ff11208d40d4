package workers

import (
	"strings"
	"testing"
	"time"

	"trading-referral-system/models"
)

func TestEncodeCSV(t *testing.T) {
	referred := "user-c"
	intermediate := "user-b"
	created := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	txs := []models.ReferralTransaction{
		{
			ID:                     "tx-1",
			UserID:                 "user-a",
			TransactionType:        models.TxReferralRewardL2,
			Amount:                 5,
			Currency:               "TDC",
			Status:                 models.TxStatusCompleted,
			ReferredUserID:         &referred,
			IntermediateReferrerID: &intermediate,
		},
		{
			ID:              "tx-2",
			UserID:          "user-b",
			TransactionType: models.TxTransferOut,
			Amount:          12.5,
			Currency:        "TDC",
			Fee:             1.25,
			Status:          models.TxStatusCompleted,
			Reason:          "coin transfer",
		},
	}
	txs[0].CreatedAt = created
	txs[1].CreatedAt = created.Add(time.Minute)

	data, err := encodeCSV(txs)
	if err != nil {
		t.Fatalf("encodeCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,user_id,transaction_type,amount,currency,fee,status") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "tx-1,user-a,referral_reward_l2,5,TDC,0,completed,user-c,user-b,,,,2026-03-15T10:30:00Z" {
		t.Errorf("row 1 = %s", lines[1])
	}
	if !strings.Contains(lines[2], ",12.5,TDC,1.25,completed,") {
		t.Errorf("row 2 missing amount/fee columns: %s", lines[2])
	}
	if !strings.Contains(lines[2], "coin transfer") {
		t.Errorf("row 2 missing reason: %s", lines[2])
	}
}

func TestEncodeCSVEmpty(t *testing.T) {
	data, err := encodeCSV(nil)
	if err != nil {
		t.Fatalf("encodeCSV: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 1 {
		t.Errorf("empty ledger should encode to header only, got %d lines", got)
	}
}
