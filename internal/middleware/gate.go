package middleware

import (
	"net/http"
	"path"
	"strings"
)

const (
	// LoginPath is where anonymous page requests are sent
	LoginPath = "/login"
	// DashboardPath is where signed-in users land
	DashboardPath = "/dashboard"
)

var publicPages = map[string]bool{
	"/login":  true,
	"/signup": true,
}

var ungatedPrefixes = []string{"/api/", "/health", "/metrics", "/uploads/", "/assets/", "/static/"}

// Gate redirects page requests based on session presence. Anonymous
// requests for private pages go to the login page and signed-in requests for
// the login or signup pages go to the dashboard. API routes, probes and
// static assets pass through untouched.
func (a *Authenticator) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isPageRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		_, _, err := a.Resolve(r)
		signedIn := err == nil
		page := strings.TrimSuffix(r.URL.Path, "/")

		switch {
		case !signedIn && !publicPages[page]:
			http.Redirect(w, r, LoginPath, http.StatusFound)
		case signedIn && publicPages[page]:
			http.Redirect(w, r, DashboardPath, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func isPageRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	p := r.URL.Path
	for _, prefix := range ungatedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	// files such as /favicon.ico or /app.js
	return path.Ext(p) == ""
}
