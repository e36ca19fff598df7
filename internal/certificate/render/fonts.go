package render

import (
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font resolution is a total function: any family the template asks for maps
// to one of the embedded Go fonts, and anything unknown falls back to the
// regular face. A template can therefore never fail a render through font
// configuration alone.

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	italicFont  *opentype.Font
)

func loadFonts() {
	// The embedded fonts are compile-time constants; parse failures would
	// mean a broken toolchain, so treat them as impossible and fall through
	// to nil checks in resolveFont.
	regularFont, _ = opentype.Parse(goregular.TTF)
	boldFont, _ = opentype.Parse(gobold.TTF)
	italicFont, _ = opentype.Parse(goitalic.TTF)
}

// resolveFont picks the embedded font for a family/weight pair.
func resolveFont(family, weight string) *opentype.Font {
	fontsOnce.Do(loadFonts)

	if weight == "700" && boldFont != nil {
		return boldFont
	}
	switch strings.ToLower(family) {
	case "italic", "cursive":
		if italicFont != nil {
			return italicFont
		}
	}
	return regularFont
}

// newFace builds a face at the given pixel size.
func newFace(f *opentype.Font, size int) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
