package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"slices"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"redline/internal/services"
)

// Page is one annotated page awaiting composition.
type Page struct {
	Number int
	// Overlay is the PNG annotation raster at the page's intrinsic size.
	Overlay []byte
	// Base is the rendered page image, if known.
	Base []byte
}

// Composer builds PDF artifacts.
type Composer struct {
	conf *model.Configuration
}

// New returns a composer using pdfcpu defaults.
func New() *Composer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Composer{conf: conf}
}

// Compose flattens every page and returns the combined PDF. Pages are sorted
// ascending by number; duplicate numbers are rejected.
func (c *Composer) Compose(pages []Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, services.Wrap(services.ErrValidation, "compose", "compose", "no pages", nil)
	}
	ordered := slices.Clone(pages)
	slices.SortFunc(ordered, func(a, b Page) int { return a.Number - b.Number })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Number == ordered[i-1].Number {
			return nil, services.Wrap(services.ErrValidation, "compose", "compose", fmt.Sprintf("page %d appears twice", ordered[i].Number), nil)
		}
	}

	images := make([]io.Reader, 0, len(ordered))
	for _, page := range ordered {
		if page.Number <= 0 {
			return nil, services.Wrap(services.ErrValidation, "compose", "compose", fmt.Sprintf("page number %d must be positive", page.Number), nil)
		}
		flat, err := Flatten(page.Base, page.Overlay)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "compose", "compose", fmt.Sprintf("page %d", page.Number), err)
		}
		images = append(images, bytes.NewReader(flat))
	}

	imp := pdfcpu.DefaultImportConfig()
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, images, imp, c.conf); err != nil {
		return nil, fmt.Errorf("import page images: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount reports the number of pages in a PDF artifact.
func (c *Composer) PageCount(artifact []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(artifact), c.conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}

// Flatten draws overlay over base and returns an opaque PNG. A missing base
// becomes a white page of the overlay's size; a base of a different size is
// drawn at its own size with the overlay anchored top-left.
func Flatten(base, overlay []byte) ([]byte, error) {
	if len(overlay) == 0 {
		return nil, fmt.Errorf("overlay is empty")
	}
	over, err := png.Decode(bytes.NewReader(overlay))
	if err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}

	bounds := over.Bounds()
	var under image.Image = image.White
	if len(base) > 0 {
		decoded, _, err := image.Decode(bytes.NewReader(base))
		if err != nil {
			return nil, fmt.Errorf("decode page image: %w", err)
		}
		under = decoded
		bounds = decoded.Bounds()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), under, bounds.Min, draw.Over)
	draw.Draw(canvas, canvas.Bounds(), over, over.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return buf.Bytes(), nil
}
