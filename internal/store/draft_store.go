package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/maildraft/internal/model"
)

// draftRow mirrors the drafts table; attachments are stored as a JSON array.
type draftRow struct {
	model.DraftRecord
	AttachmentsJSON string `db:"attachments"`
}

// RecordDraft appends a draft attempt to the journal. Generates a UUID if
// ID is empty and stamps CreatedAt when unset.
func (s *SQLiteStore) RecordDraft(ctx context.Context, rec model.DraftRecord) error {
	if strings.TrimSpace(rec.Recipient) == "" {
		return fmt.Errorf("draft recipient must not be empty")
	}
	switch rec.Status {
	case model.DraftStatusCreated, model.DraftStatusSkipped, model.DraftStatusFailed:
	default:
		return fmt.Errorf("invalid draft status %q", rec.Status)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	attachments := rec.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	encoded, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("encoding attachments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (
			id, recipient, subject, folder, attachments,
			backend, draft_ref, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Recipient, rec.Subject, rec.Folder, string(encoded),
		rec.Backend, rec.DraftRef, rec.Status, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording draft for %s: %w", rec.Recipient, err)
	}
	return nil
}

// GetDrafts lists journal entries newest first, applying the filter.
func (s *SQLiteStore) GetDrafts(
	ctx context.Context,
	filter DraftFilter,
) ([]model.DraftRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Recipient != nil {
		where = append(where, "recipient = ?")
		args = append(args, *filter.Recipient)
	}

	query := `SELECT id, recipient, subject, folder, attachments,
		backend, draft_ref, status, error, created_at FROM drafts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var rows []draftRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}

	records := make([]model.DraftRecord, 0, len(rows))
	for _, r := range rows {
		rec := r.DraftRecord
		if r.AttachmentsJSON != "" {
			if err := json.Unmarshal([]byte(r.AttachmentsJSON), &rec.Attachments); err != nil {
				return nil, fmt.Errorf("decoding attachments of draft %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetDraftCounts returns the number of journal entries per status.
func (s *SQLiteStore) GetDraftCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS n FROM drafts GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting drafts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
