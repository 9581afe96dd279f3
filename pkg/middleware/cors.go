package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/kashvi-shop/config"
)

// CORSOptions lists what browsers on other origins may do against the API.
type CORSOptions struct {
	Origins []string // "*" allows any origin
	Methods []string
	Headers []string
	Expose  []string
	MaxAge  int
}

// CORSFromConfig reads CORS_ORIGINS, a comma separated list that defaults
// to "*".
func CORSFromConfig() CORSOptions {
	var origins []string
	for _, o := range strings.Split(config.Get("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return CORSOptions{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		Headers: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		Expose:  []string{"Retry-After", "X-Request-ID"},
		MaxAge:  600,
	}
}

// CORS answers preflight requests itself and decorates every response from an
// allowed origin. A concrete origin is echoed back so caches key on it.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	anyOrigin := slices.Contains(opts.Origins, "*")
	methods := strings.Join(opts.Methods, ", ")
	headers := strings.Join(opts.Headers, ", ")
	expose := strings.Join(opts.Expose, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			if origin != "" && (anyOrigin || slices.Contains(opts.Origins, origin)) {
				if anyOrigin {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					if opts.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
					}
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
