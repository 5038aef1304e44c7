// Package router wires handler registrars onto the gin engine.
package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// mount binds registrars to a custom path prefix
type mount struct {
	prefix     string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// Router manages HTTP route registration. Registrars land under the
// versioned API prefix; the marketplace entry points mount under their own
// contract-defined prefixes.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	mounts     []mount
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar under the versioned API prefix
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterAt adds registrars under a custom path prefix with optional
// middleware, for endpoints whose paths the marketplace contract fixes.
func (r *Router) RegisterAt(prefix string, middleware []gin.HandlerFunc, registrars ...RouteRegistrar) *Router {
	r.mounts = append(r.mounts, mount{prefix: prefix, middleware: middleware, registrars: registrars})
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	// Create versioned API group
	api := r.engine.Group("/api/" + r.apiVersion)

	// Register all route registrars
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	// Register contract-prefixed mounts
	for _, m := range r.mounts {
		group := r.engine.Group(m.prefix)
		if len(m.middleware) > 0 {
			group.Use(m.middleware...)
		}
		for _, registrar := range m.registrars {
			registrar.RegisterRoutes(group)
		}
	}
}
