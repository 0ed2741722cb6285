package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nhle/maildraft/internal/composer"
	"github.com/nhle/maildraft/internal/model"
)

// Drafter creates drafts and journals skipped requests.
type Drafter interface {
	Compose(ctx context.Context, req model.DraftRequest) (*composer.Result, error)
	RecordSkip(ctx context.Context, req model.DraftRequest, reason string)
}

// Folders answers folder existence and attachment questions.
type Folders interface {
	FolderExists(folder string) bool
	Select(folder string) []string
}

// Options controls a batch run.
type Options struct {
	// Subject and Body are used for every draft. Body is literal HTML.
	Subject string
	Body    string

	// KeepGoing continues past a failed draft instead of aborting.
	KeepGoing bool

	// DryRun reports what would be drafted without touching the mail client.
	DryRun bool
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total   int
	Created int
	Skipped int
	Failed  int
}

// Runner processes batch entries strictly in order, one at a time.
type Runner struct {
	drafter Drafter
	folders Folders
	out     io.Writer
	opts    Options
}

// NewRunner returns a runner writing progress lines to out.
func NewRunner(drafter Drafter, folders Folders, out io.Writer, opts Options) *Runner {
	return &Runner{
		drafter: drafter,
		folders: folders,
		out:     out,
		opts:    opts,
	}
}

// Run creates one draft per entry whose folder exists. Entries with a
// missing folder are skipped. A failed draft aborts the run and returns
// its error unless KeepGoing is set.
func (r *Runner) Run(ctx context.Context, entries []model.BatchEntry) (Summary, error) {
	var sum Summary

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Total++

		req := model.DraftRequest{
			Recipient: e.Recipient,
			Subject:   r.opts.Subject,
			HTMLBody:  r.opts.Body,
			Folder:    e.Folder,
		}

		if e.Recipient == "" {
			fmt.Fprintf(r.out, "Skipped: no receiver on row %d\n", e.Row)
			slog.Info("batch row skipped", "row", e.Row, "reason", "empty receiver")
			sum.Skipped++
			continue
		}

		if !r.folders.FolderExists(e.Folder) {
			fmt.Fprintf(r.out, "Skipped: folder not found for %s -> %s\n", e.Recipient, e.Folder)
			slog.Info("batch row skipped", "row", e.Row, "recipient", e.Recipient, "folder", e.Folder)
			sum.Skipped++
			if !r.opts.DryRun {
				r.drafter.RecordSkip(ctx, req, "folder not found")
			}
			continue
		}

		if r.opts.DryRun {
			files := r.folders.Select(e.Folder)
			fmt.Fprintf(r.out, "Would create draft for %s from folder %s (%d attachments)\n",
				e.Recipient, e.Folder, len(files))
			sum.Created++
			continue
		}

		fmt.Fprintf(r.out, "Creating draft for %s from folder %s\n", e.Recipient, e.Folder)
		res, err := r.drafter.Compose(ctx, req)
		if err != nil {
			fmt.Fprintf(r.out, "  ✗ %v\n", err)
			slog.Error("batch draft failed", "row", e.Row, "recipient", e.Recipient, "error", err)
			sum.Failed++
			if !r.opts.KeepGoing {
				return sum, fmt.Errorf("row %d: %w", e.Row, err)
			}
			continue
		}
		fmt.Fprintf(r.out, "  ✓ Draft saved with %d attachments\n", len(res.Attachments))
		sum.Created++
	}

	return sum, nil
}

// String renders the summary line printed at the end of a run.
func (s Summary) String() string {
	return fmt.Sprintf("%d rows: %d created, %d skipped, %d failed",
		s.Total, s.Created, s.Skipped, s.Failed)
}
