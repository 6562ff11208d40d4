package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"trading-referral-system/models"
	"trading-referral-system/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// LedgerArchiveClient exports completed ledger rows to object storage. The
// ledger itself is append-only, so snapshots by created_at window are stable.
type LedgerArchiveClient struct {
	DB    *gorm.DB
	Label string // slugged into every object key
}

func NewLedgerArchiveClient(db *gorm.DB) *LedgerArchiveClient {
	label := os.Getenv("LEDGER_ARCHIVE_LABEL")
	if label == "" {
		label = "referral ledger"
	}

	return &LedgerArchiveClient{
		DB:    db,
		Label: slug.Make(label),
	}
}

// PollLedgerArchive runs one export immediately, then on every tick until the
// context is cancelled. The watermark only advances after a successful
// upload, so a failed cycle re-selects the same rows next time.
func PollLedgerArchive(ctx context.Context, client *LedgerArchiveClient, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	watermark := time.Time{}
	if err := client.ArchiveSince(ctx, &watermark); err != nil {
		log.Printf("❌ [ARCHIVE] initial export failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Ledger archive worker stopping...")
			return
		case <-ticker.C:
			if err := client.ArchiveSince(ctx, &watermark); err != nil {
				log.Printf("❌ [ARCHIVE] export failed: %v", err)
			}
		}
	}
}

// ArchiveSince uploads all completed rows in (watermark, now] as one CSV
// object and advances the watermark on success.
func (c *LedgerArchiveClient) ArchiveSince(ctx context.Context, watermark *time.Time) error {
	cutoff := time.Now().UTC()

	var txs []models.ReferralTransaction
	if err := c.DB.WithContext(ctx).
		Where("status = ? AND created_at > ? AND created_at <= ?", models.TxStatusCompleted, *watermark, cutoff).
		Order("created_at ASC").
		Find(&txs).Error; err != nil {
		return fmt.Errorf("failed to select ledger rows: %w", err)
	}

	if len(txs) == 0 {
		*watermark = cutoff
		return nil
	}

	data, err := encodeCSV(txs)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("ledger/%s/%s.csv", c.Label, cutoff.Format("2006-01-02T15-04-05Z"))
	if err := utils.UploadToR2(ctx, key, data, "text/csv"); err != nil {
		return err
	}

	*watermark = cutoff
	log.Printf("🗄️ [ARCHIVE] uploaded %d ledger rows to %s", len(txs), key)
	return nil
}

func encodeCSV(txs []models.ReferralTransaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "user_id", "transaction_type", "amount", "currency", "fee",
		"status", "referred_user_id", "intermediate_referrer_id",
		"recipient_id", "reason", "created_by", "created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	for _, tx := range txs {
		record := []string{
			tx.ID,
			tx.UserID,
			string(tx.TransactionType),
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			tx.Currency,
			strconv.FormatFloat(tx.Fee, 'f', -1, 64),
			string(tx.Status),
			deref(tx.ReferredUserID),
			deref(tx.IntermediateReferrerID),
			deref(tx.RecipientID),
			tx.Reason,
			deref(tx.CreatedBy),
			tx.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
