// Package render is the boundary to the QR encoding library. It turns a text
// payload and style parameters into a drawable raster and serialises that
// raster for export.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// Level is the fixed error-correction level used for every rendered code.
const Level = qrcode.Highest

// Params describes a single render call.
type Params struct {
	Text          string
	Size          int
	Background    color.Color
	Foreground    color.Color
	Level         qrcode.RecoveryLevel
	IncludeMargin bool
}

// Surface is a rendered QR code. The PNG encoding is computed once and
// reused, so repeated exports of the same surface are byte-identical.
type Surface struct {
	code *qrcode.QRCode
	img  image.Image

	pngOnce sync.Once
	png     []byte
	pngErr  error
}

// Encode builds the QR matrix for p.Text and rasterises it at exactly p.Size
// pixels square. The quiet-zone margin, when included, is drawn inside that
// square. Errors from the encoding library (e.g. payload too long for the
// level) are returned as is.
func Encode(p Params) (*Surface, error) {
	q, err := qrcode.New(p.Text, p.Level)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	if p.Background != nil {
		q.BackgroundColor = p.Background
	}
	if p.Foreground != nil {
		q.ForegroundColor = p.Foreground
	}
	q.DisableBorder = !p.IncludeMargin

	return &Surface{
		code: q,
		img:  fitSize(q.Image(p.Size), p.Size),
	}, nil
}

// fitSize scales img down to size x size when the library grew it to fit more
// modules than there are pixels.
func fitSize(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || (b.Dx() <= size && b.Dy() <= size) {
		return img
	}
	rect := image.Rect(0, 0, size, size)
	var dst draw.Image
	if pal, ok := img.(*image.Paletted); ok {
		dst = image.NewPaletted(rect, pal.Palette)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.NearestNeighbor.Scale(dst, rect, img, b, draw.Src, nil)
	return dst
}

// Image returns the rendered raster.
func (s *Surface) Image() image.Image { return s.img }

// Bounds returns the raster bounds.
func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Matrix returns the module bitmap, true for dark modules. The margin is
// part of the bitmap when it was requested.
func (s *Surface) Matrix() [][]bool { return s.code.Bitmap() }

// PNG returns the PNG encoding of the surface.
func (s *Surface) PNG() ([]byte, error) {
	s.pngOnce.Do(func() {
		var buf bytes.Buffer
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buf, s.img); err != nil {
			s.pngErr = fmt.Errorf("encode png: %w", err)
			return
		}
		s.png = buf.Bytes()
	})
	return s.png, s.pngErr
}

// DataURI returns the surface as a base64 PNG data URI.
func (s *Surface) DataURI() (string, error) {
	data, err := s.PNG()
	if err != nil {
		return "", err
	}
	return PNGDataURI(data), nil
}

// PNGDataURI wraps PNG bytes in a data URI.
func PNGDataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
