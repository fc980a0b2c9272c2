package racing

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Racer colors are stored as CSS "rgb(r, g, b)" strings.

func ParseColor(s string) (colorful.Color, error) {
	var r, g, b int
	if _, err := fmt.Sscanf(s, "rgb(%d, %d, %d)", &r, &g, &b); err != nil {
		return colorful.Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	if r < 0 || r > 255 || g < 0 || g > 255 || b < 0 || b > 255 {
		return colorful.Color{}, fmt.Errorf("color %q out of range", s)
	}
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}

func FormatColor(c colorful.Color) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}

// ColorRGBA renders the stored color as an "rgba(r, g, b, a)" string with
// the given alpha, for translucent backgrounds.
func ColorRGBA(s string, alpha float64) (string, error) {
	c, err := ParseColor(s)
	if err != nil {
		return "", err
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %v)", r, g, b, alpha), nil
}

// TextColor picks black or white text to keep racer cards readable on the
// stored background color.
func TextColor(s string) (string, error) {
	c, err := ParseColor(s)
	if err != nil {
		return "", err
	}
	if l, _, _ := c.Lab(); l > 0.5 {
		return "#000000", nil
	}
	return "#ffffff", nil
}
