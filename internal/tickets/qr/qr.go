package qr

import "github.com/skip2/go-qrcode"

// pngSize is the side length in pixels of the rendered QR image. 256 is
// comfortably scannable on a phone screen from arm's length.
const pngSize = 256

// PNG renders a redemption code as a QR PNG.
func PNG(code string) ([]byte, error) {
	return qrcode.Encode(code, qrcode.Medium, pngSize)
}
