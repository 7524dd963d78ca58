package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/domain"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// Only these pull_request actions result in a review job.
var actionableActions = map[string]bool{
	"opened":      true,
	"reopened":    true,
	"synchronize": true,
}

// BuildJob projects an actionable pull_request event into a JobMessage.
// It returns (nil, nil) for events that should be ignored, and
// ErrMalformedPayload when an actionable event is missing a required object.
// Nothing beyond the JobMessage fields is retained from the payload.
func BuildJob(eventType string, body []byte) (*domain.JobMessage, error) {
	if eventType != "pull_request" {
		return nil, nil
	}

	var event domain.PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if !actionableActions[event.Action] {
		return nil, nil
	}

	switch {
	case event.PullRequest == nil:
		return nil, fmt.Errorf("%w: missing pull_request object", ErrMalformedPayload)
	case event.Repository == nil:
		return nil, fmt.Errorf("%w: missing repository object", ErrMalformedPayload)
	case event.Repository.Owner.Login == "":
		return nil, fmt.Errorf("%w: missing repository owner", ErrMalformedPayload)
	case event.Installation == nil:
		return nil, fmt.Errorf("%w: missing installation object", ErrMalformedPayload)
	}

	return &domain.JobMessage{
		PullRequestId:  event.PullRequest.Id,
		PRNumber:       event.PullRequest.Number,
		PRUrl:          event.PullRequest.Url,
		InstallationId: event.Installation.Id,
		Repository: domain.Repository{
			Name:     event.Repository.Name,
			FullName: event.Repository.FullName,
			Owner:    domain.GitHubUser{Login: event.Repository.Owner.Login},
		},
	}, nil
}
