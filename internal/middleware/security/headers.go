package security

import (
	"net/http"
	"strconv"
	"time"
)

// apiHeaders go on every response. Nothing served by the API is meant to be
// rendered, framed or cached by a browser, and every body reflects the
// ledger at the moment of the request.
var apiHeaders = [][2]string{
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// Headers sets the fixed API response headers. With hstsMaxAge > 0,
// requests that arrived over TLS also get Strict-Transport-Security.
// Handlers may override any of them.
func Headers(hstsMaxAge time.Duration) func(http.Handler) http.Handler {
	hsts := ""
	if secs := int64(hstsMaxAge / time.Second); secs > 0 {
		hsts = "max-age=" + strconv.FormatInt(secs, 10) + "; includeSubDomains"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if hsts != "" && r.TLS != nil {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
