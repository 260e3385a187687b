package canvas

import (
	"errors"
	"fmt"
	"image/color"

	"redline/internal/services"
)

// State is the drawing lifecycle state.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind enumerates the input transitions the canvas understands.
type EventKind int

const (
	Down EventKind = iota
	Move
	Up
	Leave
)

func (k EventKind) String() string {
	switch k {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Leave:
		return "leave"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Source records where an event came from. Pointer and touch input are
// handled identically.
type Source int

const (
	Pointer Source = iota
	Touch
)

// Event is one input event. X and Y are screen pixels in the same space as
// the Rect passed to Layout.
type Event struct {
	Kind   EventKind
	Source Source
	X      float64
	Y      float64
}

// ErrIgnored reports an event that has no transition from the current state.
var ErrIgnored = errors.New("event ignored")

// Stroke is one committed or in-progress freehand line.
type Stroke struct {
	Points []Point
	// Width is in intrinsic pixels.
	Width float64
}

// Options configures drawing defaults.
type Options struct {
	// BaseWidth is the on-screen stroke thickness in screen pixels.
	BaseWidth float64
	Color     color.RGBA
}

// DefaultOptions returns a 2px red pen.
func DefaultOptions() Options {
	return Options{BaseWidth: 2, Color: color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff}}
}

// Canvas is the annotation overlay for a single page. It is not safe for
// concurrent use.
type Canvas struct {
	opts       Options
	page       int
	intrinsic  Size
	displayed  Rect
	zoom       float64
	scale      scale
	laidOut    bool
	annotating bool
	state      State
	strokes    []Stroke
	current    *Stroke
	surface    *overlay
}

// New returns an unbound canvas.
func New(opts Options) *Canvas {
	if opts.BaseWidth <= 0 {
		opts.BaseWidth = DefaultOptions().BaseWidth
	}
	if opts.Color == (color.RGBA{}) {
		opts.Color = DefaultOptions().Color
	}
	return &Canvas{opts: opts}
}

// Bind establishes a fresh overlay for page whose raster size equals the
// page's intrinsic size. Prior strokes are discarded and the state is Idle.
// Display geometry must be supplied again through Layout.
func (c *Canvas) Bind(page int, intrinsic Size) error {
	if page <= 0 {
		return services.Wrap(services.ErrValidation, "canvas", "bind", fmt.Sprintf("page %d must be positive", page), nil)
	}
	if !intrinsic.Valid() {
		return services.Wrap(services.ErrValidation, "canvas", "bind", fmt.Sprintf("invalid intrinsic size %dx%d", intrinsic.Width, intrinsic.Height), nil)
	}
	c.page = page
	c.intrinsic = intrinsic
	c.surface = newOverlay(intrinsic, c.opts.Color)
	c.strokes = nil
	c.current = nil
	c.state = Idle
	c.laidOut = false
	return nil
}

// Layout records where the overlay is displayed and at which zoom. An
// in-progress stroke is committed; committed strokes are kept because they are
// stored in intrinsic space.
func (c *Canvas) Layout(displayed Rect, zoom float64) error {
	if c.surface == nil {
		return services.Wrap(services.ErrValidation, "canvas", "layout", "canvas is not bound to a page", nil)
	}
	if !displayed.valid() || zoom <= 0 {
		return services.Wrap(services.ErrValidation, "canvas", "layout", fmt.Sprintf("invalid display geometry %s at zoom %g", displayed, zoom), nil)
	}
	c.commit()
	c.displayed = displayed
	c.zoom = zoom
	c.scale = newScale(c.intrinsic, displayed)
	c.laidOut = true
	return nil
}

// SetAnnotationMode toggles drawing. Turning it off ends any active stroke.
func (c *Canvas) SetAnnotationMode(on bool) {
	if !on {
		c.commit()
	}
	c.annotating = on
}

// AnnotationMode reports whether drawing is enabled.
func (c *Canvas) AnnotationMode() bool { return c.annotating }

// InterceptsPointer reports whether the overlay should receive pointer input.
func (c *Canvas) InterceptsPointer() bool { return c.annotating }

// UnderlayInteractive reports whether the page's own layers (text selection)
// should stay enabled.
func (c *Canvas) UnderlayInteractive() bool { return !c.annotating }

// Handle applies one input event. ErrIgnored is returned for events that have
// no transition from the current state; the canvas is unchanged in that case.
func (c *Canvas) Handle(ev Event) error {
	switch ev.Kind {
	case Down:
		if c.state != Idle || !c.annotating || !c.laidOut || !c.displayed.Contains(ev.X, ev.Y) {
			return ErrIgnored
		}
		p := c.ToIntrinsic(ev.X, ev.Y)
		c.current = &Stroke{Points: []Point{p}, Width: c.StrokeWidth()}
		c.surface.dot(p, c.current.Width)
		c.state = Drawing
		return nil
	case Move:
		if c.state != Drawing {
			return ErrIgnored
		}
		p := c.ToIntrinsic(ev.X, ev.Y)
		last := c.current.Points[len(c.current.Points)-1]
		c.current.Points = append(c.current.Points, p)
		c.surface.segment(last, p, c.current.Width)
		return nil
	case Up, Leave:
		if c.state != Drawing {
			return ErrIgnored
		}
		c.commit()
		return nil
	default:
		return ErrIgnored
	}
}

func (c *Canvas) commit() {
	if c.current != nil {
		c.strokes = append(c.strokes, *c.current)
		c.current = nil
	}
	c.state = Idle
}

// ToIntrinsic maps a screen position into page space using the current layout.
func (c *Canvas) ToIntrinsic(screenX, screenY float64) Point {
	return c.scale.toIntrinsic(c.displayed, screenX, screenY)
}

// StrokeWidth is the pen width in intrinsic pixels that renders as BaseWidth
// screen pixels at the current layout.
func (c *Canvas) StrokeWidth() float64 {
	if !c.laidOut {
		return c.opts.BaseWidth
	}
	return c.opts.BaseWidth * c.scale.mean()
}

// Clear erases the uncommitted overlay content. Captures already saved
// elsewhere are unaffected.
func (c *Canvas) Clear() {
	c.strokes = nil
	c.current = nil
	c.state = Idle
	if c.surface != nil {
		c.surface.clear()
	}
}

// Strokes returns committed strokes followed by the in-progress one, if any.
func (c *Canvas) Strokes() []Stroke {
	out := make([]Stroke, 0, len(c.strokes)+1)
	for _, s := range c.strokes {
		out = append(out, Stroke{Points: append([]Point(nil), s.Points...), Width: s.Width})
	}
	if c.current != nil {
		out = append(out, Stroke{Points: append([]Point(nil), c.current.Points...), Width: c.current.Width})
	}
	return out
}

// Empty reports whether nothing has been drawn since the last Bind or Clear.
func (c *Canvas) Empty() bool {
	return len(c.strokes) == 0 && c.current == nil
}

func (c *Canvas) State() State { return c.state }

// Page returns the bound page number, or 0 before Bind.
func (c *Canvas) Page() int { return c.page }

func (c *Canvas) Intrinsic() Size { return c.intrinsic }

func (c *Canvas) Zoom() float64 { return c.zoom }

// Snapshot encodes the overlay raster as PNG at intrinsic size.
func (c *Canvas) Snapshot() ([]byte, error) {
	if c.surface == nil {
		return nil, services.Wrap(services.ErrValidation, "canvas", "snapshot", "canvas is not bound to a page", nil)
	}
	return c.surface.encode()
}
