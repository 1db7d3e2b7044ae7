package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownBrowser = "unknown browser"

// BrowserFamily normalizes a raw User-Agent header to the coarse browser
// family recorded in audit events. Audit consumers aggregate on the family,
// not on full UA strings.
func BrowserFamily(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return unknownBrowser
	}
	name, _ := useragent.New(rawUA).Browser()
	switch name {
	case "Edge":
		return "Edge"
	case "Firefox":
		return "Mozilla"
	case "Opera":
		return "Opera"
	case "Safari":
		return "Safari"
	case "Internet Explorer", "MSIE":
		return "IE"
	case "Chrome", "Chromium":
		return "Chrome"
	case "Konqueror":
		return "Konqueror"
	}
	if name != "" {
		return name
	}
	return unknownBrowser
}
