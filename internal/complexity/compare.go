package complexity

import (
	"context"
	"log/slog"
)

// RevisionReader supplies file content at a prior committed revision.
// Implemented by the git collaborator.
type RevisionReader interface {
	ShowFileAt(ctx context.Context, path, revision string) (string, error)
}

// Comparison is the score delta for one file between the prior
// committed revision and the working copy.
type Comparison struct {
	Path         string  `json:"path"`
	Previous     int     `json:"previous"`
	Current      int     `json:"current"`
	Delta        int     `json:"delta"`
	PercentDelta float64 `json:"percent_delta"`
	Increased    bool    `json:"increased"`
}

// Compare analyzes the current text against the file's content at the
// prior committed revision. Both texts are analyzed independently in
// isolated buffers; the working copy is never touched. When the prior
// revision is unavailable the comparison is not an error, just absent:
// the result is nil.
func Compare(ctx context.Context, reader RevisionReader, path, currentText string) *Comparison {
	if reader == nil {
		return nil
	}

	priorText, err := reader.ShowFileAt(ctx, path, "HEAD")
	if err != nil {
		slog.Debug("prior revision unavailable", "path", path, "error", err)
		return nil
	}

	previous := FileTotal(Analyze(priorText))
	current := FileTotal(Analyze(currentText))
	delta := current - previous

	pct := 0.0
	if previous != 0 {
		pct = float64(delta) / float64(previous) * 100
	}

	return &Comparison{
		Path:         path,
		Previous:     previous,
		Current:      current,
		Delta:        delta,
		PercentDelta: pct,
		Increased:    delta > 0,
	}
}
