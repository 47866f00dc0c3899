// Package device labels the client device from its User-Agent for logs.
package device

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"accai/pkg/requestcontext"
)

// UnknownDevice is the label used when no User-Agent was sent.
const UnknownDevice = "Unknown Device"

// ParseUserAgent renders a short "Browser on OS" label.
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return UnknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if ua.Bot() {
		browser = "Bot"
	}
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OSInfo().Name
	if platform := ua.Platform(); ua.Mobile() && platform != "" {
		os = platform
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, os))
}

// Middleware stores the device label of the caller in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), ParseUserAgent(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
