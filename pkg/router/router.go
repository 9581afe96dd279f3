// Package router wraps chi with named routes and prefix groups.
//
//	r := router.New()
//	api := r.Group("/api", middleware.AuthMiddleware)
//	api.Post("/orders", "orders.store", orders.Store)
//	path, _ := r.URL("orders.show", map[string]string{"id": id})
//
// Unmatched paths and methods answer with the JSON error envelope.
package router

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/kashvi-shop/pkg/response"
)

type Middleware func(http.Handler) http.Handler

// RouteInfo describes one registered route, as printed by `shop route:list`.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Router owns the mux and the name table shared by every group.
type Router struct {
	root *Group
	mux  chi.Router

	mu    sync.RWMutex
	names map[string]string
	table []RouteInfo
}

// Group registers routes under a prefix with its middleware applied first.
type Group struct {
	root   *Router
	prefix string
	mws    []Middleware
}

func New() *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r := &Router{mux: mux, names: map[string]string{}}
	r.root = &Group{root: r, prefix: "/"}
	return r
}

func (r *Router) Group(prefix string, mws ...Middleware) *Group { return r.root.Group(prefix, mws...) }

func (r *Router) Get(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root.Get(path, name, h, mws...)
}

func (r *Router) Post(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root.Post(path, name, h, mws...)
}

func (r *Router) Put(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root.Put(path, name, h, mws...)
}

func (r *Router) Patch(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root.Patch(path, name, h, mws...)
}

func (r *Router) Delete(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root.Delete(path, name, h, mws...)
}

func (r *Router) Handler() http.Handler { return r.mux }

// Use adds global middleware. It must run before any route is registered.
func (r *Router) Use(mws ...Middleware) {
	for _, mw := range mws {
		r.mux.Use(mw)
	}
}

func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.names[name]
	return p, ok
}

// URL fills the {placeholders} of a named route, escaping each value.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	p, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("router: no route named %q", name)
	}
	for key, value := range params {
		p = strings.ReplaceAll(p, "{"+key+"}", url.PathEscape(value))
	}
	if strings.Contains(p, "{") {
		return "", fmt.Errorf("router: missing parameters for %q: %s", name, p)
	}
	return p, nil
}

// Routes lists every registered route sorted by path, then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := slices.Clone(r.table)
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b RouteInfo) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out
}

func (r *Router) register(method, path, name string, h http.Handler) {
	r.mu.Lock()
	if name != "" {
		if prev, dup := r.names[name]; dup {
			r.mu.Unlock()
			panic(fmt.Sprintf("router: route name %q already used by %s", name, prev))
		}
		r.names[name] = path
	}
	r.table = append(r.table, RouteInfo{Method: method, Path: path, Name: name})
	r.mu.Unlock()

	r.mux.Method(method, path, h)
}

// Group nests a prefix; the parent's middleware runs before mws.
func (g *Group) Group(prefix string, mws ...Middleware) *Group {
	return &Group{root: g.root, prefix: joinPath(g.prefix, prefix), mws: concat(g.mws, mws)}
}

// Handle registers any method. The verb helpers below cover the common ones.
func (g *Group) Handle(method, path, name string, h http.HandlerFunc, mws ...Middleware) {
	var handler http.Handler = h
	all := concat(g.mws, mws)
	for i := len(all) - 1; i >= 0; i-- {
		handler = all[i](handler)
	}
	g.root.register(method, joinPath(g.prefix, path), name, handler)
}

func (g *Group) Get(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodGet, path, name, h, mws...)
}

func (g *Group) Post(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodPost, path, name, h, mws...)
}

func (g *Group) Put(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodPut, path, name, h, mws...)
}

func (g *Group) Patch(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodPatch, path, name, h, mws...)
}

func (g *Group) Delete(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodDelete, path, name, h, mws...)
}

func concat(a, b []Middleware) []Middleware {
	return append(slices.Clip(a), b...)
}

// joinPath joins segments with single slashes: ("/api/", "orders") → "/api/orders".
func joinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		if t := strings.Trim(p, "/"); t != "" {
			segs = append(segs, t)
		}
	}
	return "/" + strings.Join(segs, "/")
}
