package preview

import (
	"net/url"
	"path"
	"strings"
	"sync"

	"redline/internal/services"
	"redline/internal/staging"
)

// RoutePrefix is the path under which preview pages are served.
const RoutePrefix = "/preview/"

// Prefill is optional send-dialog data carried by a preview location.
type Prefill struct {
	To      string
	Subject string
	Body    string
}

// IsZero reports whether no field is set.
func (p Prefill) IsZero() bool {
	return p.To == "" && p.Subject == "" && p.Body == ""
}

// Query encodes the non-empty fields.
func (p Prefill) Query() url.Values {
	values := url.Values{}
	if p.To != "" {
		values.Set("to", p.To)
	}
	if p.Subject != "" {
		values.Set("subject", p.Subject)
	}
	if p.Body != "" {
		values.Set("body", p.Body)
	}
	return values
}

// PrefillFromQuery reads to, subject and body.
func PrefillFromQuery(values url.Values) Prefill {
	return Prefill{
		To:      strings.TrimSpace(values.Get("to")),
		Subject: values.Get("subject"),
		Body:    values.Get("body"),
	}
}

// PreviewURL returns the preview location for token under base.
func PreviewURL(base *url.URL, token staging.Token, prefill Prefill) string {
	target := base.JoinPath("preview", string(token))
	target.RawQuery = prefill.Query().Encode()
	return target.String()
}

// Once hands out its prefill a single time.
type Once struct {
	mu       sync.Mutex
	prefill  Prefill
	consumed bool
}

// NewOnce wraps p.
func NewOnce(p Prefill) *Once {
	return &Once{prefill: p}
}

// Consume returns the prefill on the first call and the zero value afterwards.
func (o *Once) Consume() (Prefill, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.consumed {
		return Prefill{}, false
	}
	o.consumed = true
	return o.prefill, true
}

// ParsePreview extracts the token and prefill from a preview location.
func ParsePreview(raw string) (staging.Token, *Once, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", nil, services.Wrap(services.ErrValidation, "preview", "parse", "invalid preview url", err)
	}
	dir, token := path.Split(strings.TrimRight(u.Path, "/"))
	if !strings.HasSuffix(dir, RoutePrefix) || token == "" {
		return "", nil, services.Wrap(services.ErrValidation, "preview", "parse", "not a preview url: "+raw, nil)
	}
	return staging.Token(token), NewOnce(PrefillFromQuery(u.Query())), nil
}
