package qrlink

import (
	"net/url"
	"strings"

	"order_video/internal/apperr"
)

const (
	// UnknownPhone replaces the phone suffix when fewer than 10 digits are available.
	UnknownPhone = "unknown"

	tagSep      = "-"
	phoneDigits = 10
	scanPrefix  = "/qr/"
	playerPath  = "/video-player.html"
)

// PhoneTag keeps the last 10 digits of phone, or UnknownPhone.
func PhoneTag(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < phoneDigits {
		return UnknownPhone
	}
	return digits[len(digits)-phoneDigits:]
}

// ScanTag joins the order id and phone tag as embedded in the scan path.
func ScanTag(orderID, phone string) string {
	return orderID + tagSep + PhoneTag(phone)
}

// BuildScanLink returns host + "/qr/" + orderID + "-" + phoneTag.
// The order id cannot contain the separator, or the scan would resolve to a prefix of it.
func BuildScanLink(host, orderID, phone string) (string, error) {
	if orderID == "" {
		return "", apperr.Validation("order id is required")
	}
	if strings.Contains(orderID, tagSep) {
		return "", apperr.Validation("order id must not contain '-'")
	}
	return strings.TrimRight(host, "/") + scanPrefix + ScanTag(orderID, phone), nil
}

// ResolveScan extracts the order id from a scan tag: everything before the first "-".
// A tag without a separator is taken whole.
func ResolveScan(tag string) (string, error) {
	orderID, _, _ := strings.Cut(tag, tagSep)
	if orderID == "" {
		return "", apperr.Validation("scan tag has no order id")
	}
	return orderID, nil
}

// RedirectTarget is the player page URL carrying videoURL as the "video" parameter.
func RedirectTarget(host, videoURL string) string {
	return strings.TrimRight(host, "/") + playerPath + "?video=" + url.QueryEscape(videoURL)
}
