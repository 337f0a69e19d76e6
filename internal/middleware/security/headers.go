package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig lists the response headers set on every API answer. Empty
// strings leave a header out.
type HeadersConfig struct {
	CSP                 string
	FrameOptions        string
	ContentTypeOptions  string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginResource string

	// HSTSMaxAge is in seconds; HSTS is sent only on TLS requests.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// NoStore adds Cache-Control: no-store.
	NoStore bool
}

// DefaultHeadersConfig suits a JSON-only API carrying personal data.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginResource:   "same-origin",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		NoStore:               true,
	}
}

type HeadersMiddleware struct {
	always http.Header
	hsts   string
}

// NewHeadersMiddleware resolves cfg once into the fixed header set.
func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{always: http.Header{}}
	for key, value := range map[string]string{
		"Content-Security-Policy":      cfg.CSP,
		"X-Frame-Options":              cfg.FrameOptions,
		"X-Content-Type-Options":       cfg.ContentTypeOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Permissions-Policy":           cfg.PermissionsPolicy,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResource,
	} {
		if value != "" {
			h.always.Set(key, value)
		}
	}
	if cfg.NoStore {
		h.always.Set("Cache-Control", "no-store")
	}
	if cfg.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for key, values := range h.always {
			out[key] = append([]string(nil), values...)
		}
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
