package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"redline/internal/registry"
	"redline/internal/submissions"
	"redline/internal/testsupport"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return home
}

func TestConfigInitWritesSample(t *testing.T) {
	home := isolatedHome(t)
	target := filepath.Join(home, "redline.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatalf("expected refusal to overwrite without --overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	home := isolatedHome(t)
	target := filepath.Join(home, "redline.toml")
	if err := os.WriteFile(target, []byte("[server]\napi_token = \"s3cret\"\n[client]\napi_token = \"s3cret\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", target, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if strings.Contains(out, "s3cret") {
		t.Fatalf("secret leaked:\n%s", out)
	}
	if !strings.Contains(out, "********") {
		t.Fatalf("expected redaction marker:\n%s", out)
	}
}

func TestSubmissionsListAndDownload(t *testing.T) {
	home := isolatedHome(t)
	b := testsupport.NewBackend(t)
	rec, err := b.Store.Create(context.Background(), submissions.NewSubmission{
		Recipient: "a@b.com",
		Subject:   "Markup",
		Status:    submissions.StatusEmailSent,
		PageCount: 2,
		Artifact:  []byte("%PDF cli"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := runCLI(t, "--server", b.HTTP.URL, "submissions", "list")
	if err != nil {
		t.Fatalf("submissions list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "a@b.com") || !strings.Contains(out, "Email Sent") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	dir := filepath.Join(home, "out")
	out, err = runCLI(t, "--server", b.HTTP.URL, "submissions", "download", strconv.FormatInt(rec.ID, 10), "--dir", dir)
	if err != nil {
		t.Fatalf("download: %v\n%s", err, out)
	}
	data, err := os.ReadFile(filepath.Join(dir, registry.FileName(rec.ID)))
	if err != nil || string(data) != "%PDF cli" {
		t.Fatalf("downloaded %q, %v", data, err)
	}
}

func TestSendPagesRecordsSubmission(t *testing.T) {
	home := isolatedHome(t)
	b := testsupport.NewBackend(t)
	overlay := filepath.Join(home, "p2.png")
	if err := os.WriteFile(overlay, testsupport.PNG(t, 40, 60, 90), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--server", b.HTTP.URL, "send",
		"--file", "doc-7", "--page", "2="+overlay,
		"--to", "a@b.com", "--subject", "Page two")
	if err != nil {
		t.Fatalf("send: %v\n%s", err, out)
	}
	items, err := b.Store.List(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one submission, got %v %v", items, err)
	}
	if items[0].FileID != "doc-7" || items[0].Status != submissions.StatusEmailSent {
		t.Fatalf("unexpected record %+v", items[0])
	}
	if len(b.SMTP.Messages()) != 1 {
		t.Fatalf("expected one email relayed")
	}
}

func TestParsePageSpec(t *testing.T) {
	tests := []struct {
		spec    string
		page    int
		wantErr bool
	}{
		{spec: "1=a.png", page: 1},
		{spec: " 12 = b.png ", page: 12},
		{spec: "0=a.png", wantErr: true},
		{spec: "x=a.png", wantErr: true},
		{spec: "3", wantErr: true},
		{spec: "3=", wantErr: true},
	}
	for _, tt := range tests {
		page, _, err := parsePageSpec(tt.spec)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err = %v, wantErr %v", tt.spec, err, tt.wantErr)
		}
		if err == nil && page != tt.page {
			t.Fatalf("%q: page %d, want %d", tt.spec, page, tt.page)
		}
	}
}

func TestHumanStatus(t *testing.T) {
	if got := humanStatus("email_sent"); got != "Email Sent" {
		t.Fatalf("humanStatus = %q", got)
	}
}
