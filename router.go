/*
 *    Copyright 2025 Jeff Galyan
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package numbat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// Handler is one step of a navigation chain. It receives the dispatch
// Context and the continuation that runs the following handler; a handler
// that does not call next ends the dispatch. Handlers must tolerate a nil
// Context and a nil next.
type Handler func(c *Context, next func())

// Resolution is the outcome of Find. Params and Handlers are never nil.
type Resolution struct {
	Params   Params
	Handlers []Handler
}

// Config configures a Router. The zero value is usable.
type Config struct {
	// Base is prefixed to templates registered with Use. Default "/".
	Base string

	// Compiler compiles templates. nil uses NewPatterns(PatternConfig{}).
	Compiler PatternCompiler

	// Navigator supplies the location and change notifications.
	// nil uses an in-memory navigator positioned at "/".
	Navigator Navigator

	// Logger receives diagnostics. nil uses slog.Default().
	Logger *slog.Logger

	// Sanitize redacts parameter values in log output. nil logs values as is.
	Sanitize *SanitizeConfig

	// Metrics, when set, counts dispatches, suppressed navigations,
	// unmatched urls and rejected templates.
	Metrics *Metrics

	// TracerProvider is used for dispatch spans. nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// Router matches navigation urls against registered templates and runs the
// matching handler chains.
type Router struct {
	mu     sync.RWMutex
	routes []route
	base   string

	compiler PatternCompiler
	nav      Navigator
	logger   *slog.Logger
	san      *Sanitizer
	metrics  *Metrics
	tracer   trace.Tracer

	last     atomic.Pointer[string]
	listener *listener
}

type route struct {
	pattern  string
	base     string
	keys     []Key
	matcher  Matcher
	toPath   PathFunc
	handlers []Handler
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Pattern  string
	Base     string
	Keys     []string
	Handlers int
}

type listener struct{ r *Router }

func (l *listener) Navigated() { l.r.Dispatch() }

// New creates a Router.
func New(cfg Config) *Router {
	r := &Router{
		base:     "/",
		compiler: cfg.Compiler,
		nav:      cfg.Navigator,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   newTracer(cfg.TracerProvider),
	}
	if cfg.Base != "" {
		r.base = cfg.Base
	}
	if r.compiler == nil {
		r.compiler = NewPatterns(PatternConfig{})
	}
	if r.nav == nil {
		r.nav = NewMemoryNavigator("/")
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if cfg.Sanitize != nil {
		r.san = NewSanitizer(*cfg.Sanitize)
	}
	r.listener = &listener{r: r}
	return r
}

// Base sets the prefix applied to templates registered afterwards.
// Routes already registered keep their prefix.
func (r *Router) Base(p string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == "" {
		p = "/"
	}
	r.base = p
	return r
}

// Use registers handlers for template. A template that fails to compile is
// logged and skipped; the router stays usable.
func (r *Router) Use(template string, handlers ...Handler) *Router {
	for _, h := range handlers {
		if h == nil {
			panic("numbat: nil handler")
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	full := template
	if r.base != "/" {
		full = r.base + template
	}
	base := routeBase(r.compiler, full)

	m, err := r.compiler.Compile(full)
	if err != nil {
		r.logger.Error("route rejected", slog.String("pattern", full), slog.Any("err", err))
		r.metrics.rejected()
		return r
	}
	toPath, err := r.compiler.ToPath(base)
	if err != nil {
		// The guard falls back to comparing raw urls for this route.
		r.logger.Warn("route base cannot be rendered", slog.String("pattern", full), slog.String("base", base), slog.Any("err", err))
		toPath = nil
	}

	r.routes = append(r.routes, route{
		pattern:  full,
		base:     base,
		keys:     m.Keys(),
		matcher:  m,
		toPath:   toPath,
		handlers: append([]Handler(nil), handlers...),
	})
	return r
}

// routeBase cuts template before its catch-all wildcard. Compilers that
// parse templates report the cut themselves so escaped or embedded "*" survive.
func routeBase(pc PatternCompiler, template string) string {
	if b, ok := pc.(interface{ RouteBase(string) string }); ok {
		return b.RouteBase(template)
	}
	if i := strings.Index(template, "*"); i >= 0 {
		return template[:i]
	}
	return template
}

// Routes lists the registered routes in table order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RouteInfo, 0, len(r.routes))
	for _, rt := range r.routes {
		keys := make([]string, len(rt.keys))
		for i, k := range rt.keys {
			keys[i] = k.Name
		}
		out = append(out, RouteInfo{Pattern: rt.pattern, Base: rt.base, Keys: keys, Handlers: len(rt.handlers)})
	}
	return out
}

// Find resolves u against every registered route. Each matching route
// contributes a guard followed by its own handlers, in table order. When
// several matching routes capture the same parameter name, the later route
// wins.
func (r *Router) Find(u string) Resolution {
	res := Resolution{Params: Params{}, Handlers: []Handler{}}

	r.mu.RLock()
	routes := r.routes
	r.mu.RUnlock()

	for i := range routes {
		rt := &routes[i]
		if !rt.matcher.Match(u) {
			continue
		}
		res.Handlers = append(res.Handlers, r.guard(rt, u))
		if len(rt.keys) > 0 {
			if vals, ok := rt.matcher.Exec(u); ok {
				for j, k := range rt.keys {
					if j < len(vals) {
						res.Params[k.Name] = vals[j]
					}
				}
			}
		}
		res.Handlers = append(res.Handlers, rt.handlers...)
	}
	return res
}

// guard renders the route base with the dispatch params and continues only
// when the result differs from the last resolved path.
func (r *Router) guard(rt *route, u string) Handler {
	return func(c *Context, next func()) {
		var params Params
		if c != nil {
			params = c.Params
		}
		p := u
		if rt.toPath != nil {
			rendered, err := rt.toPath(params)
			if err != nil {
				r.logger.Warn("cannot render route base", slog.String("base", rt.base), slog.Any("err", err))
			} else {
				p = rendered
			}
		}
		if !r.advance(p) {
			r.logger.Debug("navigation suppressed", slog.String("path", r.san.Path(p, params)))
			r.metrics.suppressed()
			if c != nil {
				trace.SpanFromContext(c.Context()).AddEvent("navigation suppressed")
			}
			return
		}
		if next != nil {
			next()
		}
	}
}

// advance stores p as the last resolved path and reports whether it changed.
func (r *Router) advance(p string) bool {
	for {
		old := r.last.Load()
		if old != nil && *old == p {
			return false
		}
		if r.last.CompareAndSwap(old, &p) {
			return true
		}
	}
}

// LastPath returns the most recent path a guard let through.
func (r *Router) LastPath() (string, bool) {
	p := r.last.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Reset forgets the last resolved path so the next navigation always runs.
func (r *Router) Reset() { r.last.Store(nil) }

// Dispatch resolves the navigator's current location and runs the matched
// chain. A location outside the root path is first rewritten into hash form.
func (r *Router) Dispatch() { r.dispatch() }

// dispatch runs one navigation and returns the url it resolved.
func (r *Router) dispatch() string {
	if p := r.nav.Path(); p != "" && p != "/" {
		r.nav.Replace("/#" + p)
	}
	u := r.currentURL()

	res := r.Find(u)
	if len(res.Handlers) == 0 {
		r.logger.Debug("no route", slog.String("url", u))
		r.metrics.unmatchedURL()
		return u
	}

	ctx, span := r.startDispatch(context.Background(), r.san.Path(u, res.Params), len(res.Handlers))
	defer span.End()
	r.metrics.dispatched()
	r.logger.Debug("dispatch", slog.String("url", r.san.Path(u, res.Params)), slog.Int("handlers", len(res.Handlers)))

	c := newContext(ctx, r, u, res.Params)
	cursor := 0
	var next func()
	next = func() {
		if cursor >= len(res.Handlers) {
			return
		}
		h := res.Handlers[cursor]
		cursor++
		h(c, next)
	}
	next()
	return u
}

func (r *Router) currentURL() string {
	u := strings.TrimPrefix(r.nav.Hash(), "#")
	if u == "" {
		u = "/"
	}
	return u
}

// Start dispatches the current location and then follows navigation changes.
// Redirects raised before the listener is attached are dispatched here.
func (r *Router) Start() {
	for u := r.dispatch(); r.currentURL() != u; {
		u = r.dispatch()
	}
	r.nav.AddListener(r.listener)
}

// Stop stops following navigation changes.
func (r *Router) Stop() { r.nav.RemoveListener(r.listener) }

// Redirect moves the navigator to path. The resulting change notification
// triggers the dispatch.
func (r *Router) Redirect(path string) { r.nav.SetHash(path) }

// Context key types to avoid collisions

type ctxKey string

const (
	ctxKeyNavigationID ctxKey = "navigation_id"
)

// WithNavigationID injects a navigation id into ctx.
func WithNavigationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyNavigationID, id)
}

// NavigationID extracts the navigation correlation ID from ctx.
func NavigationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyNavigationID).(string)
	return v, ok
}
