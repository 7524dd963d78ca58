package review

import "context"

// Placeholder is posted when the provider returns no content. Posting a
// stand-in comment beats dropping the job's outcome silently.
const Placeholder = "The automated reviewer did not produce any feedback for this change."

// Request carries the diff text handed to a provider. Truncated tells the
// provider the diff was cut down so the review can caveat partial coverage.
type Request struct {
	Diff      string
	Truncated bool
}

// Provider produces review text for a unified diff.
type Provider interface {
	Review(ctx context.Context, req Request) (string, error)
}

// Truncate cuts diff down to limit characters. The second return reports
// whether anything was cut.
func Truncate(diff string, limit int) (string, bool) {
	if limit <= 0 || len(diff) <= limit {
		return diff, false
	}
	return diff[:limit], true
}
