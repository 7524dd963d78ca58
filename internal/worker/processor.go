package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/domain"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/review"
)

// GitHub covers the installation-scoped operations one job needs.
type GitHub interface {
	FetchDiff(ctx context.Context, repoFullName string, prNumber int) (string, error)
	PostComment(ctx context.Context, repoFullName string, prNumber int, body string) error
}

// ClientFactory builds a GitHub client scoped to one installation. A fresh
// client per job keeps the cached installation token owned by that job's
// processing chain.
type ClientFactory func(installationID int64) GitHub

// Processor runs the full job chain: installation auth, diff fetch, review,
// comment. The three network steps are strictly sequential; each depends on
// the previous one's output.
type Processor struct {
	github    ClientFactory
	provider  review.Provider
	diffLimit int
	logger    *zap.Logger
}

func NewProcessor(github ClientFactory, provider review.Provider, diffLimit int, logger *zap.Logger) *Processor {
	return &Processor{
		github:    github,
		provider:  provider,
		diffLimit: diffLimit,
		logger:    logger,
	}
}

// Process handles one job message. An empty diff completes the job without
// invoking the provider or posting anything.
func (p *Processor) Process(ctx context.Context, job *domain.JobMessage) error {
	logger := p.logger.With(
		zap.Int("pr_number", job.PRNumber),
		zap.String("repo", job.Repository.FullName),
	)
	logger.Info("processing pull request")

	gh := p.github(job.InstallationId)

	diff, err := gh.FetchDiff(ctx, job.Repository.FullName, job.PRNumber)
	if err != nil {
		return fmt.Errorf("fetching diff for PR #%d: %w", job.PRNumber, err)
	}
	if diff == "" {
		logger.Warn("no diff found, skipping review")
		return nil
	}

	text, truncated := review.Truncate(diff, p.diffLimit)
	if truncated {
		logger.Info("diff truncated before review",
			zap.Int("limit", p.diffLimit),
			zap.Int("original_size", len(diff)),
		)
	}
	comment, err := p.provider.Review(ctx, review.Request{Diff: text, Truncated: truncated})
	if err != nil {
		return fmt.Errorf("requesting review for PR #%d: %w", job.PRNumber, err)
	}
	if strings.TrimSpace(comment) == "" {
		comment = review.Placeholder
	}

	if err := gh.PostComment(ctx, job.Repository.FullName, job.PRNumber, comment); err != nil {
		return fmt.Errorf("posting review comment on PR #%d: %w", job.PRNumber, err)
	}

	logger.Info("review posted")
	return nil
}
