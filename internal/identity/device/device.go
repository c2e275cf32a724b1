// Package device derives human-readable device labels for sessions.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a label such as "Chrome on Intel Mac OS X 10_15_7".
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if ua.Bot() {
		return strings.TrimSpace(browser + " (bot)")
	}

	platform := ua.OS()
	if p := ua.Platform(); p != "" && !strings.Contains(platform, p) {
		platform = strings.TrimSpace(p + " " + platform)
	}
	if platform == "" {
		platform = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + platform)
}
