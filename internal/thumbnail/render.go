// Package thumbnail renders movie posters as 24-bit ANSI half-block art.
package thumbnail

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"github.com/anticine/anticine/internal/cinema"
)

// Default scaled size in pixels; each terminal cell covers two pixel rows.
const (
	DefaultWidth  = 24
	DefaultHeight = 36
)

const (
	halfBlock = "▄"
	reset     = "\x1b[0m"
)

// Scale resizes img to exactly width x height pixels.
func Scale(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Render scales img and encodes it as rows of half-block cells. The cell
// background is the upper pixel, the foreground the lower one. A fully
// transparent upper pixel yields an empty (reset) cell. Every row ends in
// a newline.
func Render(img image.Image, width, height int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	scaled := Scale(img, width, height)
	b := scaled.Bounds()

	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y-1; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := nrgba(scaled.At(x, y))
			if top.A == 0 {
				sb.WriteString(reset)
				continue
			}
			bottom := nrgba(scaled.At(x, y+1))
			fmt.Fprintf(&sb, "\x1b[48;2;%d;%d;%dm\x1b[38;2;%d;%d;%dm%s%s",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B, halfBlock, reset)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// AverageColor returns the mean color of the opaque-weighted pixels of img.
func AverageColor(img image.Image) cinema.RGB {
	b := img.Bounds()
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := nrgba(img.At(x, y))
			if c.A == 0 {
				continue
			}
			r += uint64(c.R)
			g += uint64(c.G)
			bl += uint64(c.B)
			n++
		}
	}
	if n == 0 {
		return cinema.RGB{}
	}
	return cinema.RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n)}
}

func nrgba(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
