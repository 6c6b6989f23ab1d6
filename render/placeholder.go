package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	placeholderText       = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

// Placeholder draws a size x size neutral box with message centred in it.
// It never touches the encoding library.
func Placeholder(size int, message string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(placeholderText),
		Face: face,
	}

	lines := wrapText(d, message, size-8)
	lineHeight := face.Height
	top := (size-lineHeight*len(lines))/2 + face.Ascent
	for i, line := range lines {
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P((size-w)/2, top+i*lineHeight)
		d.DrawString(line)
	}
	return img
}

// wrapText greedily breaks s on spaces so each line fits in width pixels.
// A single word wider than width gets a line of its own.
func wrapText(d *font.Drawer, s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if d.MeasureString(candidate).Ceil() > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
