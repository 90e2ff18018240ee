// Package qr renders session QR payloads as PNG data URLs.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// PNGRenderer encodes text as a QR code PNG.
type PNGRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Size: defaultSize, Level: qrcode.Medium}
}

// DataURL returns the QR image for content as a data:image/png;base64 URL.
func (r *PNGRenderer) DataURL(content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr: empty content")
	}
	size := r.Size
	if size <= 0 {
		size = defaultSize
	}
	png, err := qrcode.Encode(content, r.Level, size)
	if err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
