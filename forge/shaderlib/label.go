package shaderlib

import (
	"errors"
	"image"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// RasterizeLabel renders a line of text as white-on-transparent RGBA sized
// to fit heightPx, ready to feed [TextDecal]. ttf holds the raw bytes of a
// TrueType font file; no fonts ship with this module.
func RasterizeLabel(ttf []byte, text string, heightPx int) (*image.RGBA, error) {
	if text == "" {
		return nil, errors.New("no text provided")
	}
	if heightPx < 8 {
		return nil, errors.New("label height too small")
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	// At 72 DPI one point equals one pixel. The em box overshoots the
	// visible glyphs so 3/4 of the height leaves a sane margin.
	face := truetype.NewFace(f, &truetype.Options{
		Size:    0.75 * float64(heightPx),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	margin := heightPx / 4
	width := font.MeasureString(face, text).Ceil() + 2*margin
	img := image.NewRGBA(image.Rect(0, 0, width, heightPx))

	metrics := face.Metrics()
	baseline := (heightPx + metrics.Ascent.Ceil() - metrics.Descent.Ceil()) / 2
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(margin, baseline),
	}
	d.DrawString(text)
	return img, nil
}
