// Package render draws personalized certificates from an event template.
//
// The pipeline writes the participant's name at the configured position
// (auto-scaling the font for long names), stamps the verification code as a
// text line, embeds a scannable QR of the code, and emits a PNG document plus
// a JPEG thumbnail. Output is byte-stable for identical inputs.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	// maxWidthRatio bounds the rendered name to 60% of the template width.
	maxWidthRatio = 0.6
	// minFontSize is the auto-scaling floor. Below it we accept overflow
	// rather than failing a long name.
	minFontSize = 24
	// scaleStep is the per-iteration font size decrement.
	scaleStep = 2

	qrSize         = 80
	qrMargin       = 100
	codeLineOffset = 80
	codeMinSize    = 16

	thumbnailWidth = 480
	thumbnailJPEGQ = 85
)

// Options configures one certificate render.
type Options struct {
	FullName   string
	Code       string
	NameX      int
	NameY      int
	FontSize   int
	FontColor  string
	FontFamily string
	FontWeight string
}

// Output is a rendered certificate document.
type Output struct {
	// Document is the single-page certificate as PNG bytes.
	Document []byte
	// Thumbnail is a 480px-wide JPEG preview.
	Thumbnail []byte
	// FontSize is the effective name font size after auto-scaling.
	FontSize int
}

// DecodeTemplate decodes an uploaded template image (PNG or JPEG).
func DecodeTemplate(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode template image: %w", err)
	}
	return img, nil
}

// Render draws one certificate. Only genuine I/O-class failures (image
// encoding, QR generation) return errors; font and color fallbacks keep
// cosmetic configuration problems non-fatal.
func Render(template image.Image, opts Options) (Output, error) {
	canvas := imaging.Clone(template)
	bounds := canvas.Bounds()

	// Name, auto-scaled to fit.
	face, effectiveSize, err := fitFace(opts, bounds.Dx())
	if err != nil {
		return Output{}, err
	}
	defer face.Close()
	drawCenteredText(canvas, face, opts.FullName, opts.NameX, opts.NameY, parseHexColor(opts.FontColor, color.Black))

	// Verification code line, bottom-centered in muted gray.
	codeSize := opts.FontSize / 3
	if codeSize < codeMinSize {
		codeSize = codeMinSize
	}
	codeFace, err := newFace(resolveFont(opts.FontFamily, "400"), codeSize)
	if err != nil {
		return Output{}, fmt.Errorf("code line face: %w", err)
	}
	defer codeFace.Close()
	codeY := bounds.Dy() - codeLineOffset + codeSize/2
	drawCenteredText(canvas, codeFace, opts.Code, bounds.Dx()/2, codeY, color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff})

	// Scannable QR in the bottom-right corner.
	canvas, err = pasteQR(canvas, opts.Code, bounds)
	if err != nil {
		return Output{}, err
	}

	var doc bytes.Buffer
	if err := imaging.Encode(&doc, canvas, imaging.PNG); err != nil {
		return Output{}, fmt.Errorf("encode certificate: %w", err)
	}

	thumb := imaging.Resize(canvas, thumbnailWidth, 0, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQ)); err != nil {
		return Output{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return Output{
		Document:  doc.Bytes(),
		Thumbnail: thumbBuf.Bytes(),
		FontSize:  effectiveSize,
	}, nil
}

// fitFace returns a face for the name at the configured size, reduced in
// fixed steps until the name fits 60% of the template width or the floor is
// reached. At the floor the name is drawn anyway; overflow is a known
// cosmetic limitation, never a failure.
func fitFace(opts Options, templateWidth int) (font.Face, int, error) {
	maxWidth := int(float64(templateWidth) * maxWidthRatio)
	fnt := resolveFont(opts.FontFamily, opts.FontWeight)

	size := opts.FontSize
	if size <= 0 {
		size = minFontSize
	}
	for {
		face, err := newFace(fnt, size)
		if err != nil {
			return nil, 0, fmt.Errorf("font face at %dpx: %w", size, err)
		}
		width := font.MeasureString(face, opts.FullName).Ceil()
		if width <= maxWidth || size-scaleStep < minFontSize {
			return face, size, nil
		}
		face.Close()
		size -= scaleStep
	}
}

// drawCenteredText draws s with its horizontal center at x and optical
// vertical center at y.
func drawCenteredText(dst draw.Image, face font.Face, s string, x, y int, c color.Color) {
	width := font.MeasureString(face, s)
	metrics := face.Metrics()
	// Baseline so the glyph box is vertically centered on y.
	baseline := fixed.I(y) + (metrics.Ascent-metrics.Descent)/2

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x) - width/2, Y: baseline},
	}
	drawer.DrawString(s)
}

// pasteQR renders the verification code as an 80x80 QR pasted 100px from the
// bottom-right corner.
func pasteQR(canvas *image.NRGBA, code string, bounds image.Rectangle) (*image.NRGBA, error) {
	qrPNG, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode verification QR: %w", err)
	}
	qrImg, err := imaging.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		return nil, fmt.Errorf("decode verification QR: %w", err)
	}
	qr := imaging.Resize(qrImg, qrSize, qrSize, imaging.Lanczos)
	pos := image.Pt(bounds.Dx()-qrMargin, bounds.Dy()-qrMargin)
	return imaging.Paste(canvas, qr, pos), nil
}

// parseHexColor parses #RRGGBB; malformed values fall back to def so a bad
// template color never fails a render.
func parseHexColor(s string, def color.Color) color.Color {
	if len(s) != 7 || s[0] != '#' {
		return def
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return def
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
