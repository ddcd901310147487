package utils

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderPNG encodes a payload string as a PNG QR image. Medium error
// correction matches what the marking printers expect.
func RenderPNG(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// RenderDataURI returns the PNG as a base64 data URI for clients that inline
// the image directly.
func RenderDataURI(payload string, size int) (string, error) {
	png, err := RenderPNG(payload, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
