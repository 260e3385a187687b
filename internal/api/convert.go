package api

import (
	"time"

	"redline/internal/submissions"
)

// FromSubmission converts a stored record into its transport form.
func FromSubmission(rec submissions.Submission) Submission {
	return Submission{
		ID:           rec.ID,
		Recipient:    rec.Recipient,
		Subject:      rec.Subject,
		Body:         rec.Body,
		Status:       string(rec.Status),
		Source:       rec.Source,
		FileID:       rec.FileID,
		PageCount:    rec.PageCount,
		ArtifactSize: rec.ArtifactSize,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    formatTime(rec.CreatedAt),
	}
}

// FromSubmissions converts a slice, preserving order.
func FromSubmissions(recs []submissions.Submission) []Submission {
	out := make([]Submission, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromSubmission(rec))
	}
	return out
}

// FormatTime renders t in the API timestamp format, or "" for the zero time.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp. The zero time is returned for "".
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateTimeFormat, value)
}
