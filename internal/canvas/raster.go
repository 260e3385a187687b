package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

// overlay is the RGBA raster strokes are painted into.
type overlay struct {
	img   *image.RGBA
	ink   *image.Uniform
	raser *vector.Rasterizer
}

func newOverlay(size Size, ink color.Color) *overlay {
	return &overlay{
		img:   image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
		ink:   image.NewUniform(ink),
		raser: vector.NewRasterizer(size.Width, size.Height),
	}
}

func (o *overlay) clear() {
	draw.Draw(o.img, o.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// dot paints a round-ish cap so single taps and segment joints stay visible.
func (o *overlay) dot(p Point, width float64) {
	r := o.reset()
	addDisc(r, p, width/2)
	r.Draw(o.img, o.img.Bounds(), o.ink, image.Point{})
}

// segment paints a line of the given width from a to b with round joins.
func (o *overlay) segment(a, b Point, width float64) {
	half := width / 2
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		o.dot(b, width)
		return
	}
	nx, ny := -dy/length*half, dx/length*half

	r := o.reset()
	r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ClosePath()
	r.Draw(o.img, o.img.Bounds(), o.ink, image.Point{})

	o.dot(b, width)
}

func (o *overlay) reset() *vector.Rasterizer {
	b := o.img.Bounds()
	o.raser.Reset(b.Dx(), b.Dy())
	o.raser.DrawOp = draw.Over
	return o.raser
}

func addDisc(r *vector.Rasterizer, c Point, radius float64) {
	if radius < 0.5 {
		radius = 0.5
	}
	const steps = 16
	for i := 0; i <= steps; i++ {
		theta := 2 * math.Pi * float64(i) / steps
		x := float32(c.X + radius*math.Cos(theta))
		y := float32(c.Y + radius*math.Sin(theta))
		if i == 0 {
			r.MoveTo(x, y)
			continue
		}
		r.LineTo(x, y)
	}
	r.ClosePath()
}

func (o *overlay) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, o.img); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}
