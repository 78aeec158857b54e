package middleware

import (
	"net/http"
	"strings"
)

// Normalize 规范化经过代理（Vercel/Cloudflare）的请求
//
// Whitespace around the path is trimmed and repeated slashes are collapsed
// before routing, so "/api//goals " still reaches /api/goals. Forwarded
// proto and host take the first hop when proxies chain their values.
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if clean := cleanPath(r.URL.Path); clean != r.URL.Path {
				r.URL.Path = clean
				r.URL.RawPath = ""
			}

			if proto := firstHop(r.Header.Get("X-Forwarded-Proto")); proto != "" {
				r.URL.Scheme = proto
			}
			if host := firstHop(r.Header.Get("X-Forwarded-Host")); host != "" {
				r.Host = host
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// firstHop 取逗号分隔列表中的第一个值
func firstHop(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
