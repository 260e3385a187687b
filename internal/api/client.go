package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"redline/internal/services"
)

// Client talks to the redline daemon over HTTP.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for serverURL. A bare host:port is treated as http.
func NewClient(serverURL, token string, timeout time.Duration) (*Client, error) {
	serverURL = strings.TrimSpace(serverURL)
	if serverURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new client", "server url is empty", nil)
	}
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new client", "parse server url", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// BaseURL returns a copy of the daemon base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// FetchPage downloads the rendered page image for fileID.
func (c *Client) FetchPage(ctx context.Context, fileID string, page int) ([]byte, error) {
	endpoint := c.base.JoinPath("api", "files", fileID, "pages", strconv.Itoa(page))
	return c.getBinary(ctx, "fetch page", endpoint)
}

// Stage uploads pages and returns the token for the composed bundle.
func (c *Client) Stage(ctx context.Context, req StageRequest) (StageResponse, error) {
	var resp StageResponse
	err := c.doJSON(ctx, "stage pages", http.MethodPost, c.base.JoinPath("api", "staging"), req, &resp)
	return resp, err
}

// FetchStaged downloads the composed artifact for token.
func (c *Client) FetchStaged(ctx context.Context, token string) ([]byte, error) {
	return c.getBinary(ctx, "fetch staged artifact", c.base.JoinPath("api", "staging", token))
}

// SendStagedEmail asks the daemon to email the bundle behind token.
func (c *Client) SendStagedEmail(ctx context.Context, token string, msg EmailMessage) (EmailResponse, error) {
	var resp EmailResponse
	err := c.doJSON(ctx, "send staged email", http.MethodPost, c.base.JoinPath("api", "staging", token, "email"), msg, &resp)
	return resp, err
}

// SendDirectEmail asks the daemon to compose pages and email them.
func (c *Client) SendDirectEmail(ctx context.Context, fileID string, req DirectEmailRequest) (EmailResponse, error) {
	var resp EmailResponse
	err := c.doJSON(ctx, "send direct email", http.MethodPost, c.base.JoinPath("api", "files", fileID, "email"), req, &resp)
	return resp, err
}

// PersistSubmission records a delivered artifact.
func (c *Client) PersistSubmission(ctx context.Context, meta SubmissionUpload, artifact []byte) (Submission, error) {
	const op = "persist submission"
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"recipient", meta.Recipient},
		{"subject", meta.Subject},
		{"body", meta.Body},
		{"status", meta.Status},
		{"source", meta.Source},
		{"fileId", meta.FileID},
		{"pageCount", strconv.Itoa(meta.PageCount)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return Submission{}, services.Wrap(services.ErrTransport, "api", op, "encode form", err)
		}
	}
	part, err := mw.CreateFormFile("artifact", "submission.pdf")
	if err != nil {
		return Submission{}, services.Wrap(services.ErrTransport, "api", op, "encode form", err)
	}
	if _, err := part.Write(artifact); err != nil {
		return Submission{}, services.Wrap(services.ErrTransport, "api", op, "encode form", err)
	}
	if err := mw.Close(); err != nil {
		return Submission{}, services.Wrap(services.ErrTransport, "api", op, "encode form", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.base.JoinPath("api", "submissions"), &body)
	if err != nil {
		return Submission{}, services.Wrap(services.ErrTransport, "api", op, "build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var created Submission
	if err := c.send(req, op, &created); err != nil {
		return Submission{}, err
	}
	return created, nil
}

// ListSubmissions returns submission summaries in the order the daemon
// supplies (newest first).
func (c *Client) ListSubmissions(ctx context.Context) ([]Submission, error) {
	var resp SubmissionList
	if err := c.doJSON(ctx, "list submissions", http.MethodGet, c.base.JoinPath("api", "submissions"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Submissions, nil
}

// GetSubmission returns one submission summary.
func (c *Client) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	var resp Submission
	err := c.doJSON(ctx, "get submission", http.MethodGet, c.base.JoinPath("api", "submissions", strconv.FormatInt(id, 10)), nil, &resp)
	return resp, err
}

// FetchSubmissionArtifact downloads the stored artifact for id.
func (c *Client) FetchSubmissionArtifact(ctx context.Context, id int64) ([]byte, error) {
	return c.getBinary(ctx, "fetch submission artifact", c.base.JoinPath("api", "submissions", strconv.FormatInt(id, 10), "artifact"))
}

// Status returns daemon runtime state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.doJSON(ctx, "status", http.MethodGet, c.base.JoinPath("api", "status"), nil, &resp)
	return resp, err
}

func (c *Client) doJSON(ctx context.Context, op, method string, endpoint *url.URL, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrValidation, "api", op, "encode request", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return services.Wrap(services.ErrTransport, "api", op, "build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, op, out)
}

func (c *Client) getBinary(ctx context.Context, op string, endpoint *url.URL) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "api", op, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "api", op, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeStatusError(op, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "api", op, "read body", err)
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method string, endpoint *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "api", op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransport, "api", op, "decode response", err)
	}
	return nil
}

func decodeStatusError(op string, resp *http.Response) error {
	statusErr := &StatusError{Operation: op, Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload ErrorResponse
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		statusErr.Message = payload.Error
		statusErr.Kind = payload.Kind
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}

// String is used in log fields.
func (c *Client) String() string {
	return fmt.Sprintf("api client %s", c.base.Redacted())
}
