package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Page is one annotated page. Raster is PNG data.
type Page struct {
	Page   int    `json:"page"`
	Raster []byte `json:"raster"`
}

// StageRequest uploads pages for composition into a staged bundle.
type StageRequest struct {
	FileID string `json:"fileId,omitempty"`
	Pages  []Page `json:"pages"`
}

// StageResponse carries the token for a staged bundle.
type StageResponse struct {
	Token     string `json:"token"`
	Pages     []int  `json:"pages"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// EmailMessage is the user-entered part of a delivery.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// RecordFailure asks the server to store a failed submission when the
	// SMTP step fails.
	RecordFailure bool `json:"recordFailure,omitempty"`
}

// DirectEmailRequest sends pages composed on the server without staging.
type DirectEmailRequest struct {
	EmailMessage
	Pages []Page `json:"pages"`
}

// EmailResponse acknowledges a sent message.
type EmailResponse struct {
	Sent       bool   `json:"sent"`
	Recipients int    `json:"recipients"`
	MessageID  string `json:"messageId,omitempty"`
}

// SubmissionUpload is the metadata sent alongside an artifact when persisting.
type SubmissionUpload struct {
	Recipient string
	Subject   string
	Body      string
	Status    string
	Source    string
	FileID    string
	PageCount int
}

// Submission describes a persisted submission in a transport-friendly format.
type Submission struct {
	ID           int64  `json:"id"`
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	Status       string `json:"status"`
	Source       string `json:"source,omitempty"`
	FileID       string `json:"fileId,omitempty"`
	PageCount    int    `json:"pageCount"`
	ArtifactSize int64  `json:"artifactSize"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// SubmissionList is returned by the list route, newest first.
type SubmissionList struct {
	Submissions []Submission `json:"submissions"`
}

// Status summarizes daemon runtime state.
type Status struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	DatabasePath  string `json:"databasePath"`
	LockFilePath  string `json:"lockFilePath,omitempty"`
	StagedBundles int    `json:"stagedBundles"`
	MailEnabled   bool   `json:"mailEnabled"`
	Submissions   int    `json:"submissions"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
