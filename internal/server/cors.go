package server

import (
	"net/http"
	"slices"
)

// CORSOptions holds simple CORS settings. An empty AllowedOrigins disables
// CORS; "*" allows any origin.
type CORSOptions struct {
	AllowedOrigins []string
}

func (o CORSOptions) enabled() bool { return len(o.AllowedOrigins) > 0 }

// apply writes the CORS response headers for an allowed Origin.
func (o CORSOptions) apply(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := slices.Contains(o.AllowedOrigins, "*")
	if !wildcard && !slices.Contains(o.AllowedOrigins, origin) {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
