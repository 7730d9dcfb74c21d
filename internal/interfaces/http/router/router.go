package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realestate/backend/internal/infrastructure/auth"
	"github.com/realestate/backend/internal/interfaces/http/handler"
	"github.com/realestate/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithMiddleware adds middleware to the versioned API group only. Routes
// registered on the engine directly (health checks) do not run it.
func WithMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup creates a route group for a specific domain
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// FinancingRoutes builds the financing, payment and amendment routes.
// Reads need financing:read; mutations need financing:write, except payment
// cancellation which has its own permission.
func FinancingRoutes(h *handler.FinancingHandler) []RouteRegistrar {
	read := middleware.RequirePermission(auth.PermissionFinancingRead)
	write := middleware.RequirePermission(auth.PermissionFinancingWrite)
	cancel := middleware.RequirePermission(auth.PermissionPaymentCancel)

	financings := NewDomainGroup("financings", "/financings")
	financings.POST("/schedule/preview", read, h.PreviewSchedule)
	financings.POST("/validate-dates", read, h.ValidateSaleDates)
	financings.POST("", write, h.Create)
	financings.GET("/:id", read, h.GetByID)
	financings.GET("/:id/installments", read, h.GetCalendar)
	financings.PUT("/:id/installments/:installmentId/late-fee", write, h.RecordLateFee)
	financings.POST("/:id/payments", write, h.ApplyPayment)
	financings.GET("/:id/payments", read, h.ListPayments)
	financings.POST("/:id/payments/auto-approved", write, h.ApplyAutoApprovedBatch)
	financings.POST("/:id/payments/auto-approved/import", write, h.ImportAutoApprovedBatch)
	financings.POST("/:id/amendments", write, h.ApplyAmendment)
	financings.GET("/:id/amendments", read, h.ListAmendments)

	payments := NewDomainGroup("payments", "/payments")
	payments.POST("/:id/cancel", cancel, h.CancelPayment)

	return []RouteRegistrar{financings, payments}
}

// SystemRoutes builds the system information routes under the API group
func SystemRoutes(h *handler.SystemHandler) RouteRegistrar {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}

// RegisterHealth mounts the health check on the engine and under the API
// prefix, outside the authenticated middleware chain
func RegisterHealth(engine *gin.Engine, h *handler.SystemHandler) {
	engine.GET("/health", h.Health)
	engine.GET("/api/v1/health", h.Health)
}
