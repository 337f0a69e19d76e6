package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"

	"fatura/internal/log"
)

const (
	maxURLLength   = 2048
	maxForwardHops = 6
)

var (
	attackMarkers = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "scanner"}
	attackMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	privateNets = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
)

// Detector flags requests that look like scans or attacks. Flagged requests
// are logged and counted but always served.
type Detector struct {
	flagged atomic.Int64
	proxies []netip.Prefix
}

// NewDetector trusts forwarded headers from loopback and private networks.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range privateNets {
		d.proxies = append(d.proxies, netip.MustParsePrefix(cidr))
	}
	return d
}

// TrustProxy adds a network whose X-Forwarded-For and X-Real-IP headers are
// believed.
func (d *Detector) TrustProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("trusted proxy %q: %w", cidr, err)
	}
	d.proxies = append(d.proxies, p.Masked())
	return nil
}

// Inspect returns why r looks suspicious, or "" when it does not.
func (d *Detector) Inspect(r *http.Request) string {
	reason := suspicionReason(r)
	if reason != "" {
		d.flagged.Add(1)
	}
	return reason
}

func suspicionReason(r *http.Request) string {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	switch {
	case slices.Contains(attackMethods, r.Method):
		return "method"
	case hasAny(target, attackMarkers):
		return "path"
	case hasAny(strings.ToLower(r.UserAgent()), scannerAgents):
		return "user_agent"
	case len(r.URL.String()) > maxURLLength:
		return "url_length"
	case strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxForwardHops:
		return "forward_chain"
	}
	return ""
}

func hasAny(s string, subs []string) bool {
	return slices.ContainsFunc(subs, func(sub string) bool { return strings.Contains(s, sub) })
}

// Flagged is the number of requests Inspect has flagged.
func (d *Detector) Flagged() int64 {
	return d.flagged.Load()
}

func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Inspect(r); reason != "" {
			slog.WarnContext(r.Context(), "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldReason, reason,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !d.trusted(addr.Unmap()) {
		return peer
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return peer
}

func (d *Detector) trusted(addr netip.Addr) bool {
	return slices.ContainsFunc(d.proxies, func(p netip.Prefix) bool { return p.Contains(addr) })
}
