package staging_test

import (
	"context"
	"errors"
	"testing"

	"redline/internal/api"
	"redline/internal/cart"
	"redline/internal/services"
	"redline/internal/staging"
)

type fakeTransport struct {
	stageCalls int
	pages      []api.Page
	stageResp  api.StageResponse
	stageErr   error
	fetchErr   error
	artifact   []byte
}

func (f *fakeTransport) Stage(_ context.Context, req api.StageRequest) (api.StageResponse, error) {
	f.stageCalls++
	f.pages = req.Pages
	return f.stageResp, f.stageErr
}

func (f *fakeTransport) FetchStaged(context.Context, string) ([]byte, error) {
	return f.artifact, f.fetchErr
}

func TestStageEmptyCartMakesNoCall(t *testing.T) {
	transport := &fakeTransport{}
	client := staging.NewClient(transport, nil)

	token, err := client.Stage(context.Background(), cart.New())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected no token, got %q", token)
	}
	if transport.stageCalls != 0 {
		t.Fatalf("expected no network call, got %d", transport.stageCalls)
	}
}

func TestStageSendsAscendingPages(t *testing.T) {
	transport := &fakeTransport{stageResp: api.StageResponse{Token: "T"}}
	client := staging.NewClient(transport, nil)

	c := cart.New()
	for _, page := range []int{3, 1} {
		if _, err := c.Save(page, []byte{byte(page)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	token, err := client.Stage(context.Background(), c)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if token != "T" {
		t.Fatalf("unexpected token %q", token)
	}
	if len(transport.pages) != 2 || transport.pages[0].Page != 1 || transport.pages[1].Page != 3 {
		t.Fatalf("expected pages [1,3], got %+v", transport.pages)
	}
}

func TestStageFailureProducesNoToken(t *testing.T) {
	tests := []struct {
		name string
		resp api.StageResponse
		err  error
	}{
		{name: "status error", err: &api.StatusError{Operation: "stage pages", Status: 500}},
		{name: "network error", err: errors.New("connection refused")},
		{name: "blank token", resp: api.StageResponse{Token: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := staging.NewClient(&fakeTransport{stageResp: tt.resp, stageErr: tt.err}, nil)
			c := cart.New()
			_, _ = c.Save(1, []byte("r"))
			token, err := client.Stage(context.Background(), c)
			if !errors.Is(err, services.ErrTransport) {
				t.Fatalf("expected transport error, got %v", err)
			}
			if token != "" {
				t.Fatalf("expected no token, got %q", token)
			}
		})
	}
}

func TestResolveExpiredToken(t *testing.T) {
	transport := &fakeTransport{fetchErr: &api.StatusError{Operation: "fetch staged artifact", Status: 404, Kind: "expired"}}
	client := staging.NewClient(transport, nil)
	if _, err := client.Resolve(context.Background(), "T"); !errors.Is(err, services.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
	if _, err := client.Resolve(context.Background(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank token, got %v", err)
	}
}
