// Package qr renders QR codes as raster images, SVG or terminal text
package qr

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultText   = "https://www.devtoolshub.org"
	DefaultSize   = 400
	MinSize       = 64
	MaxSize       = 2048
	DefaultMargin = 2
	MaxMargin     = 16
	MaxTextBytes  = 2048
	DefaultStyle  = "mono"
)

var (
	// ErrTextTooLong is returned for text over MaxTextBytes
	ErrTextTooLong = errors.New("text is too long to encode")

	// ErrUnknownStyle is returned for a style that is not a preset
	ErrUnknownStyle = errors.New("unknown QR style")

	// ErrInvalidColour is returned for a colour that is not #RGB or #RRGGBB
	ErrInvalidColour = errors.New("invalid colour")
)

// Format selects the output encoding
type Format string

const (
	FormatPNG      Format = "png"
	FormatJPEG     Format = "jpeg"
	FormatSVG      Format = "svg"
	FormatTerminal Format = "terminal"
	FormatDataURL  Format = "data-url"
)

// Formats lists every supported format
var Formats = []Format{FormatPNG, FormatJPEG, FormatSVG, FormatTerminal, FormatDataURL}

// Style is a named colour pair
type Style struct {
	Foreground string
	Background string
}

// Styles holds the colour presets
var Styles = map[string]Style{
	"mono":  {Foreground: "#000000", Background: "#FFFFFF"},
	"neo":   {Foreground: "#111827", Background: "#FFFFFF"},
	"glass": {Foreground: "#74b9ff", Background: "#FFFFFF"},
	"candy": {Foreground: "#F472B6", Background: "#FFFFFF"},
}

// Options describe a render. Zero values select the defaults.
type Options struct {
	Text string
	// Level is the error correction level: L, M, Q or H
	Level  string
	Size   int
	Margin *int
	Style  string
	// Foreground and Background override the style's colours
	Foreground string
	Background string
	Format     Format
}

// Image is a rendered code
type Image struct {
	Data     []byte
	MIMEType string
	// Modules is the side length of the code in modules, margin included
	Modules int
}

// IsText reports whether Data is text rather than binary image data
func (i *Image) IsText() bool {
	return strings.HasPrefix(i.MIMEType, "text/") || i.MIMEType == "image/svg+xml"
}

type normalised struct {
	text   string
	level  qrcode.RecoveryLevel
	ecc    string
	size   int
	margin int
	fg, bg color.RGBA
	format Format
}

func (n normalised) key() string {
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s|%s", n.ecc, n.size, n.margin, hexColour(n.fg), hexColour(n.bg), n.format, n.text)
}

// Renderer renders codes, caching the results when it has a cache
type Renderer struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewRenderer returns a renderer; c may be nil to disable caching
func NewRenderer(c *cache.Cache, logger *logrus.Logger) *Renderer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Renderer{cache: c, logger: logger}
}

// Render encodes opts.Text and draws it in opts.Format
func (r *Renderer) Render(ctx context.Context, opts Options) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := normalise(opts)
	if err != nil {
		return nil, err
	}

	key := n.key()
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			if img, ok := cached.(*Image); ok {
				r.logger.WithField("format", n.format).Debug("QR render served from cache")
				return img, nil
			}
		}
	}

	img, err := render(n)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(key, img)
	}
	r.logger.WithFields(logrus.Fields{
		"format":  n.format,
		"size":    n.size,
		"modules": img.Modules,
	}).Debug("Rendered QR code")
	return img, nil
}

func normalise(opts Options) (normalised, error) {
	n := normalised{text: opts.Text}
	if strings.TrimSpace(n.text) == "" {
		n.text = DefaultText
	}
	if len(n.text) > MaxTextBytes {
		return n, fmt.Errorf("%w: %d bytes, the limit is %d", ErrTextTooLong, len(n.text), MaxTextBytes)
	}

	level, ecc, err := ParseLevel(opts.Level)
	if err != nil {
		return n, err
	}
	n.level, n.ecc = level, ecc

	n.size = opts.Size
	switch {
	case n.size <= 0:
		n.size = DefaultSize
	case n.size < MinSize:
		n.size = MinSize
	case n.size > MaxSize:
		n.size = MaxSize
	}

	n.margin = DefaultMargin
	if opts.Margin != nil {
		n.margin = min(max(*opts.Margin, 0), MaxMargin)
	}

	styleName := strings.ToLower(strings.TrimSpace(opts.Style))
	if styleName == "" {
		styleName = DefaultStyle
	}
	style, ok := Styles[styleName]
	if !ok {
		return n, fmt.Errorf("%w %q", ErrUnknownStyle, opts.Style)
	}
	fg, bg := style.Foreground, style.Background
	if opts.Foreground != "" {
		fg = opts.Foreground
	}
	if opts.Background != "" {
		bg = opts.Background
	}
	if n.fg, err = ParseColour(fg); err != nil {
		return n, err
	}
	if n.bg, err = ParseColour(bg); err != nil {
		return n, err
	}

	n.format, err = ParseFormat(string(opts.Format))
	if err != nil {
		return n, err
	}
	return n, nil
}

func render(n normalised) (*Image, error) {
	code, err := qrcode.New(n.text, n.level)
	if err != nil {
		// go-qrcode reports "content too long to encode" when no version fits at this level
		if strings.Contains(err.Error(), "too long") {
			return nil, fmt.Errorf("%w: %d bytes do not fit at error correction %s", ErrTextTooLong, len(n.text), n.ecc)
		}
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	code.DisableBorder = true
	// Bitmap re-runs the encoder, so it is called exactly once
	grid := withMargin(code.Bitmap(), n.margin)
	modules := len(grid)

	switch n.format {
	case FormatSVG:
		return &Image{Data: []byte(svg(grid, n.size, n.fg, n.bg)), MIMEType: "image/svg+xml", Modules: modules}, nil
	case FormatTerminal:
		return &Image{Data: []byte(terminal(grid)), MIMEType: "text/plain; charset=utf-8", Modules: modules}, nil
	}

	var buf bytes.Buffer
	raster := rasterise(grid, n.size, n.fg, n.bg)
	switch n.format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, raster, &jpeg.Options{Quality: 95}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		return &Image{Data: buf.Bytes(), MIMEType: "image/jpeg", Modules: modules}, nil
	default:
		if err := png.Encode(&buf, raster); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
		if n.format == FormatDataURL {
			url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
			return &Image{Data: []byte(url), MIMEType: "text/plain; charset=utf-8", Modules: modules}, nil
		}
		return &Image{Data: buf.Bytes(), MIMEType: "image/png", Modules: modules}, nil
	}
}

func withMargin(bitmap [][]bool, margin int) [][]bool {
	side := len(bitmap) + 2*margin
	grid := make([][]bool, side)
	for y := range grid {
		grid[y] = make([]bool, side)
	}
	for y, row := range bitmap {
		copy(grid[y+margin][margin:], row)
	}
	return grid
}

// rasterise maps each pixel to its nearest module; the image grows to one pixel per
// module when size is smaller than the code
func rasterise(grid [][]bool, size int, fg, bg color.RGBA) *image.RGBA {
	modules := len(grid)
	size = max(size, modules)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scale := float64(modules) / float64(size)
	for y := 0; y < size; y++ {
		row := grid[int(float64(y)*scale)]
		for x := 0; x < size; x++ {
			if row[int(float64(x)*scale)] {
				img.SetRGBA(x, y, fg)
			} else {
				img.SetRGBA(x, y, bg)
			}
		}
	}
	return img
}

// svg draws one rect per horizontal run of dark modules
func svg(grid [][]bool, size int, fg, bg color.RGBA) string {
	modules := len(grid)
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, size, modules, modules)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, modules, modules, hexColour(bg))
	fmt.Fprintf(&b, `<path fill="%s" d="`, hexColour(fg))
	for y, row := range grid {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < len(row) && row[x] {
				x++
			}
			fmt.Fprintf(&b, "M%d %dh%dv1h-%dz", start, y, x-start, x-start)
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}

// terminal packs two module rows into each line using half blocks. Light modules are
// drawn so the code scans on a dark terminal background.
func terminal(grid [][]bool) string {
	var b strings.Builder
	for y := 0; y < len(grid); y += 2 {
		for x := range grid[y] {
			top := !grid[y][x]
			bottom := false
			if y+1 < len(grid) {
				bottom = !grid[y+1][x]
			}
			switch {
			case top && bottom:
				b.WriteString("█")
			case top:
				b.WriteString("▀")
			case bottom:
				b.WriteString("▄")
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ParseLevel maps L, M, Q or H (any case) to a recovery level; empty selects H
func ParseLevel(s string) (qrcode.RecoveryLevel, string, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return qrcode.Low, "L", nil
	case "M":
		return qrcode.Medium, "M", nil
	case "Q":
		return qrcode.High, "Q", nil
	case "H", "":
		return qrcode.Highest, "H", nil
	default:
		return qrcode.Highest, "", fmt.Errorf("invalid error correction level %q: expected L, M, Q or H", s)
	}
}

// ParseFormat accepts a format name, "jpg" and "dataurl" included; empty selects png
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	case "terminal", "text", "ascii":
		return FormatTerminal, nil
	case "data-url", "dataurl", "data_url":
		return FormatDataURL, nil
	default:
		return "", fmt.Errorf("unsupported QR format %q", s)
	}
}

// ParseColour parses #RGB or #RRGGBB, with or without the hash
func ParseColour(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("%w %q", ErrInvalidColour, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w %q", ErrInvalidColour, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func hexColour(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
