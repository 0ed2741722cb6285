package store

import (
	"context"

	"github.com/nhle/maildraft/internal/model"
)

// DraftFilter controls filtering and pagination for journal queries.
type DraftFilter struct {
	Status    *string // "created", "skipped", "failed", or nil (all)
	Recipient *string // exact recipient match
	Limit     int
	Offset    int
}

// Store defines the persistence interface of the draft journal.
type Store interface {
	RecordDraft(ctx context.Context, rec model.DraftRecord) error
	GetDrafts(ctx context.Context, filter DraftFilter) ([]model.DraftRecord, error)
	GetDraftCounts(ctx context.Context) (map[string]int, error)
	Close() error
}
