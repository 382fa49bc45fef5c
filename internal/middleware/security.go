// Package middleware provides HTTP middleware for the trading bridge.
package middleware

import (
	"net/http"
)

// SecurityHeaders adds security-related HTTP headers to responses.
// The bridge serves JSON only, so the browser-rendering directives are
// locked all the way down.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent embedding in iframes
		w.Header().Set("X-Frame-Options", "DENY")

		// Responses carry account identifiers, never leak them via referrer
		w.Header().Set("Referrer-Policy", "no-referrer")

		// Nothing here should ever execute as a document
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Session credentials must not end up in shared caches
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
