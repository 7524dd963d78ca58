package domain

import (
	"encoding/json"
	"fmt"
)

// JobMessage is the durable unit placed on the review queue. It must be
// self-contained: a worker processes it with nothing but these fields and
// credentials derived from InstallationId.
type JobMessage struct {
	PullRequestId  int64      `json:"pull_request_id"`
	PRNumber       int        `json:"pr_number"`
	PRUrl          string     `json:"pr_url"`
	InstallationId int64      `json:"installation_id"`
	Repository     Repository `json:"repository"`
}

// Encode serializes the message for the queue wire contract (UTF-8 JSON,
// no version field).
func (m *JobMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeJobMessage(body []byte) (*JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding job message: %w", err)
	}
	return &m, nil
}
