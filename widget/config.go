// Package widget holds the QR generator's interactive state: the live
// display configuration, the preview rendered from it and the export of
// that preview as a PNG download.
package widget

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size range accepted by the pixel-size slider.
const (
	MinPixelSize = 100
	MaxPixelSize = 400
)

// ErrInvalidSize is returned when a size input cannot be coerced to a number.
var ErrInvalidSize = errors.New("size is not a number")

// DisplayConfig is the full state of one widget view.
type DisplayConfig struct {
	PayloadText     string `json:"payload_text"`
	PixelSize       int    `json:"pixel_size"`
	BackgroundColor string `json:"background_color"`
	ForegroundColor string `json:"foreground_color"`
}

// DefaultDisplayConfig returns the values a freshly mounted view starts with.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		PayloadText:     "https://example.com",
		PixelSize:       200,
		BackgroundColor: "#FFFFFF",
		ForegroundColor: "#000000",
	}
}

// CoerceSize converts raw slider input to a pixel size. Decimals are
// truncated and the result is clamped to [MinPixelSize, MaxPixelSize], the
// way a range input clamps its value.
func CoerceSize(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidSize)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSize, input)
		}
		n = clampFloat(f)
	}
	return clampSize(n), nil
}

func clampFloat(f float64) int {
	switch {
	case f < MinPixelSize:
		return MinPixelSize
	case f > MaxPixelSize:
		return MaxPixelSize
	}
	return int(f)
}

func clampSize(n int) int {
	if n < MinPixelSize {
		return MinPixelSize
	}
	if n > MaxPixelSize {
		return MaxPixelSize
	}
	return n
}
