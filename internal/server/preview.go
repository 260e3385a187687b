package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"redline/internal/api"
	"redline/internal/logging"
	"redline/internal/preview"
	"redline/internal/services"
	"redline/internal/submissions"
)

var previewPage = template.Must(template.New("preview").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Send annotated pages</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; height: 100vh; }
iframe { flex: 1; border: 0; }
form { width: 22rem; padding: 1rem; display: flex; flex-direction: column; gap: .5rem; }
textarea { flex: 1; }
.notice { padding: .5rem; border-radius: 4px; }
.ok { background: #e8f5e9; }
.warn { background: #fff8e1; }
.err { background: #ffebee; }
</style>
</head>
<body>
<iframe src="{{.ArtifactURL}}" title="Annotated pages"></iframe>
<form method="post" action="{{.SendURL}}" onsubmit="this.querySelector('button').disabled = true;">
{{if .Notice}}<div class="notice {{.NoticeClass}}">{{.Notice}}</div>{{end}}
{{if .RegistryURL}}<p><a href="{{.RegistryURL}}">Open submissions</a></p>{{else if .RegistryHint}}<p>Review it with <code>{{.RegistryHint}}</code>.</p>{{end}}
<p>Pages: {{range $i, $p := .Pages}}{{if $i}}, {{end}}{{$p}}{{end}}</p>
<label>To <input name="to" type="text" value="{{.Prefill.To}}" required></label>
<label>Subject <input name="subject" type="text" value="{{.Prefill.Subject}}"></label>
<label for="body">Message</label>
<textarea id="body" name="body">{{.Prefill.Body}}</textarea>
<button type="submit"{{if .Done}} disabled{{end}}>Send</button>
</form>
<script>
if (window.location.search) { history.replaceState(null, "", window.location.pathname); }
</script>
</body>
</html>
`))

type previewView struct {
	ArtifactURL string
	SendURL     string
	Pages       []int
	Prefill     preview.Prefill
	Notice      string
	NoticeClass string
	Done        bool
	// RegistryURL links to the submission list when the API is open to
	// browsers; otherwise RegistryHint names the CLI command.
	RegistryURL  string
	RegistryHint string
}

func (s *Server) previewView(token string, pages []int) previewView {
	base := preview.RoutePrefix + token
	return previewView{
		ArtifactURL: base + "/artifact",
		SendURL:     base + "/send",
		Pages:       pages,
	}
}

func (s *Server) renderPreview(w http.ResponseWriter, status int, view previewView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := previewPage.Execute(w, view); err != nil {
		s.logger.Error("render preview", logging.Error(err))
	}
}

func (s *Server) handlePreviewPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	bundle, err := s.cache.Get(token)
	if err != nil {
		status, _ := mapDomainError(err)
		http.Error(w, "This preview has expired. Stage the pages again.", status)
		return
	}
	view := s.previewView(token, bundle.Pages)
	view.Prefill = preview.PrefillFromQuery(r.URL.Query())
	s.renderPreview(w, http.StatusOK, view)
}

// handlePreviewSend delivers a staged bundle on behalf of the preview page.
// Only one send per token runs at a time; a second submit answers 409.
func (s *Server) handlePreviewSend(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	token := chi.URLParam(r, "token")
	ctx := services.WithToken(r.Context(), token)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	msg := api.EmailMessage{
		To:      r.PostForm.Get("to"),
		Subject: r.PostForm.Get("subject"),
		Body:    r.PostForm.Get("body"),
	}

	artifact, bundle, err := s.cache.Artifact(token)
	if err != nil {
		status, _ := mapDomainError(err)
		http.Error(w, "This preview has expired. Stage the pages again.", status)
		return
	}
	view := s.previewView(token, bundle.Pages)
	view.Prefill = preview.Prefill{To: msg.To, Subject: msg.Subject, Body: msg.Body}

	if _, busy := s.previewSends.LoadOrStore(token, struct{}{}); busy {
		view.Notice = "A send for these pages is already in progress."
		view.NoticeClass = "warn"
		view.Done = true
		s.renderPreview(w, http.StatusConflict, view)
		return
	}
	defer s.previewSends.Delete(token)

	outcome, err := s.deliver(context.WithoutCancel(ctx), msg, artifact, origin{
		source:    submissions.SourceStaged,
		fileID:    bundle.FileID,
		pageCount: len(bundle.Pages),
	})
	if err != nil {
		status, _ := mapDomainError(err)
		view.Notice = "Email was not sent: " + err.Error()
		view.NoticeClass = "err"
		s.renderPreview(w, status, view)
		return
	}

	view.Done = true
	if outcome.recordErr != nil {
		view.Notice = "Email sent, but the submission could not be recorded."
		view.NoticeClass = "warn"
		s.renderPreview(w, http.StatusOK, view)
		return
	}
	view.Notice = fmt.Sprintf("Sent and recorded as submission #%d.", outcome.submission.ID)
	view.NoticeClass = "ok"
	if s.cfg.Server.APIToken == "" {
		view.RegistryURL = "/api/submissions"
	} else {
		view.RegistryHint = fmt.Sprintf("redline submissions show %d", outcome.submission.ID)
	}
	s.renderPreview(w, http.StatusOK, view)
}
