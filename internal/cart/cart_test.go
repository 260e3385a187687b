package cart_test

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"redline/internal/cart"
	"redline/internal/services"
)

func TestSaveOverwritesNotAccumulates(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		c := cart.New()
		last := map[int][]byte{}
		for i := 0; i < 40; i++ {
			page := rng.IntN(6) + 1
			raster := []byte{byte(trial), byte(i), byte(page)}
			if _, err := c.Save(page, raster); err != nil {
				t.Fatalf("Save: %v", err)
			}
			last[page] = raster
		}
		if c.Size() != len(last) {
			t.Fatalf("trial %d: size %d, want %d distinct pages", trial, c.Size(), len(last))
		}
		for page, want := range last {
			got, ok := c.Get(page)
			if !ok || !bytes.Equal(got.Raster, want) {
				t.Fatalf("trial %d page %d: got %v want %v", trial, page, got.Raster, want)
			}
		}
	}
}

func TestSaveReportsReplacement(t *testing.T) {
	c := cart.New()
	replaced, err := c.Save(3, []byte("a"))
	if err != nil || replaced {
		t.Fatalf("first save: replaced=%v err=%v", replaced, err)
	}
	replaced, err = c.Save(3, []byte("b"))
	if err != nil || !replaced {
		t.Fatalf("second save: replaced=%v err=%v", replaced, err)
	}
}

func TestSaveCopiesRaster(t *testing.T) {
	c := cart.New()
	raster := []byte("abc")
	if _, err := c.Save(1, raster); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raster[0] = 'z'
	got, _ := c.Get(1)
	if string(got.Raster) != "abc" {
		t.Fatalf("expected cart to own its copy, got %q", got.Raster)
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	c := cart.New()
	tests := []struct {
		name   string
		page   int
		raster []byte
	}{
		{name: "zero page", page: 0, raster: []byte("x")},
		{name: "negative page", page: -2, raster: []byte("x")},
		{name: "empty raster", page: 1, raster: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Save(tt.page, tt.raster); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if !c.Empty() {
		t.Fatal("expected cart unchanged after rejected saves")
	}
}

func TestPagesAscending(t *testing.T) {
	c := cart.New()
	for _, page := range []int{7, 2, 9, 1} {
		if _, err := c.Save(page, []byte{byte(page)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if got := c.Pages(); !slices.Equal(got, []int{1, 2, 7, 9}) {
		t.Fatalf("unexpected page order %v", got)
	}
	captures := c.Captures()
	for i, capture := range captures {
		if capture.PageNumber != c.Pages()[i] {
			t.Fatalf("captures not ascending: %v", captures)
		}
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	c := cart.New()
	if _, err := c.Save(1, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var prompts []string
	decline := cart.ConfirmFunc(func(p string) bool { prompts = append(prompts, p); return false })
	if c.Clear(decline) {
		t.Fatal("expected declined clear to report false")
	}
	if c.Size() != 1 {
		t.Fatal("expected cart unchanged after declined clear")
	}
	if c.Clear(nil) || c.Size() != 1 {
		t.Fatal("expected nil confirmer to leave cart unchanged")
	}

	accept := cart.ConfirmFunc(func(p string) bool { prompts = append(prompts, p); return true })
	if !c.Clear(accept) || !c.Empty() {
		t.Fatal("expected confirmed clear to empty the cart")
	}
	if len(prompts) != 2 || prompts[0] != cart.ClearPrompt {
		t.Fatalf("unexpected prompts %v", prompts)
	}
}

func TestSettleKeepsPagesSavedAfterSnapshot(t *testing.T) {
	c := cart.New()
	for _, page := range []int{1, 2, 3} {
		if _, err := c.Save(page, []byte{byte(page)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	delivered := c.Captures()

	if _, err := c.Save(2, []byte{0xee}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := c.Save(7, []byte{7}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if removed := c.Settle(delivered); removed != 2 {
		t.Fatalf("Settle removed %d captures, want 2", removed)
	}
	if got := c.Pages(); !slices.Equal(got, []int{2, 7}) {
		t.Fatalf("pages after settle = %v, want [2 7]", got)
	}
	if capture, _ := c.Get(2); !bytes.Equal(capture.Raster, []byte{0xee}) {
		t.Fatalf("re-saved page lost its newer capture: %v", capture.Raster)
	}
}

func TestConcurrentSaveAndSnapshot(t *testing.T) {
	c := cart.New()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			_, _ = c.Save(i%9+1, []byte{byte(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Settle(c.Captures())
		}
	}()
	wg.Wait()
	if c.Size() > 9 {
		t.Fatalf("size %d exceeds distinct pages", c.Size())
	}
}
