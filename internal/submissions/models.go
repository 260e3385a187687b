package submissions

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusEmailSent Status = "email_sent"
	StatusFailed    Status = "failed"
)

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	switch status := Status(strings.ToLower(strings.TrimSpace(value))); status {
	case StatusPending, StatusEmailSent, StatusFailed:
		return status, nil
	case "":
		return StatusEmailSent, nil
	default:
		return "", fmt.Errorf("unknown submission status %q", value)
	}
}

// Source records which delivery path produced a submission.
const (
	SourceDirect = "direct"
	SourceStaged = "staged"
)

// Submission is a persisted delivery record. The artifact itself is loaded
// separately.
type Submission struct {
	ID           int64
	Recipient    string
	Subject      string
	Body         string
	Status       Status
	Source       string
	FileID       string
	PageCount    int
	ArtifactSize int64
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSubmission is the input to Store.Create.
type NewSubmission struct {
	Recipient string
	Subject   string
	Body      string
	Status    Status
	Source    string
	FileID    string
	PageCount int
	Artifact  []byte
}
