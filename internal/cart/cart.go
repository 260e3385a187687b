package cart

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"redline/internal/services"
)

// Capture is the committed raster for one page.
type Capture struct {
	PageNumber int
	// Raster is PNG-encoded at the page's intrinsic size.
	Raster     []byte
	CapturedAt time.Time
	// Revision increases with every Save on the cart; a re-saved page gets a new one.
	Revision uint64
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// ClearPrompt is the question put to the Confirmer by Clear.
const ClearPrompt = "Discard all saved pages? This cannot be undone."

// Cart maps page numbers to captures. It is safe for concurrent use, so a
// delivery can read its snapshot while the user keeps saving pages.
type Cart struct {
	mu       sync.Mutex
	fileID   string
	captures map[int]Capture
	revision uint64
	now      func() time.Time
}

// New returns an empty cart.
func New() *Cart {
	return NewForFile("")
}

// NewForFile returns an empty cart for pages of the document fileID.
func NewForFile(fileID string) *Cart {
	return &Cart{fileID: fileID, captures: make(map[int]Capture), now: time.Now}
}

// FileID names the document the captures belong to, if known.
func (c *Cart) FileID() string { return c.fileID }

// Save stores raster at page, replacing any existing capture. It reports
// whether a capture was replaced.
func (c *Cart) Save(page int, raster []byte) (bool, error) {
	if page <= 0 {
		return false, services.Wrap(services.ErrValidation, "cart", "save", fmt.Sprintf("page number %d must be positive", page), nil)
	}
	if len(raster) == 0 {
		return false, services.Wrap(services.ErrValidation, "cart", "save", "raster is empty", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, replaced := c.captures[page]
	c.revision++
	c.captures[page] = Capture{
		PageNumber: page,
		Raster:     append([]byte(nil), raster...),
		CapturedAt: c.now().UTC(),
		Revision:   c.revision,
	}
	return replaced, nil
}

// Get returns the capture for page.
func (c *Cart) Get(page int) (Capture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	capture, ok := c.captures[page]
	return capture, ok
}

// Has reports whether page has a capture.
func (c *Cart) Has(page int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.captures[page]
	return ok
}

// Size returns the number of distinct pages captured.
func (c *Cart) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.captures)
}

// Empty reports whether no page has been captured. Stage and send are
// unavailable while true.
func (c *Cart) Empty() bool { return c.Size() == 0 }

// Pages returns the captured page numbers in ascending order.
func (c *Cart) Pages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagesLocked()
}

func (c *Cart) pagesLocked() []int {
	pages := make([]int, 0, len(c.captures))
	for page := range c.captures {
		pages = append(pages, page)
	}
	slices.Sort(pages)
	return pages
}

// Captures returns every capture ordered by ascending page number.
func (c *Cart) Captures() []Capture {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Capture, 0, len(c.captures))
	for _, page := range c.pagesLocked() {
		out = append(out, c.captures[page])
	}
	return out
}

// Clear empties the cart once confirmer approves. It reports whether the cart
// was cleared; a nil confirmer or a declined prompt leaves it unchanged.
func (c *Cart) Clear(confirmer Confirmer) bool {
	if confirmer == nil || !confirmer.Confirm(ClearPrompt) {
		return false
	}
	c.Reset()
	return true
}

// Reset empties the cart without confirmation. Reserved for completion of a
// fully successful delivery.
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.captures)
}

// Settle drops the delivered captures that are still current. A page saved
// again after the snapshot was taken keeps its newer capture. It returns the
// number of captures removed.
func (c *Cart) Settle(delivered []Capture) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for _, d := range delivered {
		if current, ok := c.captures[d.PageNumber]; ok && current.Revision == d.Revision {
			delete(c.captures, d.PageNumber)
			removed++
		}
	}
	return removed
}
