package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when content is empty or only whitespace.
	ErrEmptyContent = errors.New("qrcode: content cannot be empty")
	// ErrGenerate wraps failures from the encoder.
	ErrGenerate = errors.New("qrcode: failed to generate QR code")
	// ErrSizeTooLarge is returned when the requested edge exceeds MaxSize.
	ErrSizeTooLarge = fmt.Errorf("qrcode: size must not exceed %d pixels", MaxSize)
)

const (
	// DefaultSize is the PNG edge in pixels when size <= 0.
	DefaultSize = 256
	// MaxSize caps the PNG edge; the encoder allocates size*size pixels.
	MaxSize = 1024
)

// Generate renders content as a PNG.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return nil, ErrSizeTooLarge
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerate, err)
	}
	return png, nil
}

// GenerateDataURL renders content as a data:image/png;base64 URL that can be pasted into a browser.
func GenerateDataURL(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Terminal renders content with half-block characters, two modules per line.
// Dark modules are drawn as spaces on a light background so the code scans on dark terminals.
func Terminal(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	q, err := skipqrcode.New(content, skipqrcode.Medium)
	if err != nil {
		return "", errors.Join(ErrGenerate, err)
	}
	bits := q.Bitmap()
	var b strings.Builder
	for y := 0; y < len(bits); y += 2 {
		for x := range bits[y] {
			top := bits[y][x]
			bottom := y+1 < len(bits) && bits[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune(' ')
			case top:
				b.WriteRune('▄')
			case bottom:
				b.WriteRune('▀')
			default:
				b.WriteRune('█')
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
