package qrlink

import (
	"encoding/base64"
	"fmt"

	"order_video/internal/apperr"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURIPrefix = "data:image/png;base64,"

// Encoder renders text as a PNG QR code data URI.
type Encoder struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 256
	}
	return &Encoder{size: size, level: qrcode.Medium}
}

// DataURI encodes text. Empty text is a validation error.
func (e *Encoder) DataURI(text string) (string, error) {
	if text == "" {
		return "", apperr.Validation("data is required")
	}
	png, err := qrcode.Encode(text, e.level, e.size)
	if err != nil {
		// content too long for any QR version
		return "", apperr.Validation(fmt.Sprintf("cannot encode data as QR code: %v", err))
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}
