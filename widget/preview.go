package widget

import (
	"fmt"
	"image"
	"image/color"

	"github.com/openclaw/qrstudio/render"
)

// PlaceholderMessage is shown in the preview area while the payload is empty.
const PlaceholderMessage = "Enter text to generate QR code"

var (
	defaultBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	defaultForeground = color.RGBA{A: 0xff}
)

// Preview is the visual output for one DisplayConfig. Exactly one of
// Placeholder or Surface describes what is shown; Err carries an encoding
// failure, in which case Surface is nil.
type Preview struct {
	Placeholder     bool
	Width           int
	Height          int
	Message         string
	Label           string
	DownloadEnabled bool
	Surface         *render.Surface
	Err             error
}

// RenderPreview computes the preview for cfg. An empty payload yields a
// placeholder of PixelSize x PixelSize and never calls the encoder.
func RenderPreview(cfg DisplayConfig) Preview {
	p := Preview{
		Width:           cfg.PixelSize,
		Height:          cfg.PixelSize,
		Label:           SizeLabel(cfg.PixelSize),
		DownloadEnabled: cfg.PayloadText != "",
	}

	if cfg.PayloadText == "" {
		p.Placeholder = true
		p.Message = PlaceholderMessage
		return p
	}

	surface, err := render.Encode(render.Params{
		Text:          cfg.PayloadText,
		Size:          cfg.PixelSize,
		Background:    render.ParseColor(cfg.BackgroundColor, defaultBackground),
		Foreground:    render.ParseColor(cfg.ForegroundColor, defaultForeground),
		Level:         render.Level,
		IncludeMargin: true,
	})
	if err != nil {
		p.Err = err
		return p
	}

	b := surface.Bounds()
	p.Surface = surface
	p.Width, p.Height = b.Dx(), b.Dy()
	return p
}

// Image returns the raster to show in the preview area: the rendered code,
// or the placeholder box. It is nil after an encoding failure.
func (p Preview) Image() image.Image {
	if p.Placeholder {
		return render.Placeholder(p.Width, p.Message)
	}
	if p.Surface == nil {
		return nil
	}
	return p.Surface.Image()
}

// SizeLabel formats the slider label for size.
func SizeLabel(size int) string {
	return fmt.Sprintf("Size: %dpx", size)
}
