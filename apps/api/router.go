package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	accountshandler "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/handler"
	cartshandler "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/handler"
	cataloghandler "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/handler"
	ordershandler "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/handler"
	reportshandler "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/handler"
	shippinghandler "github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/handler"
	tenantshandler "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/handler"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/access"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/tenant/middleware"
)

// apiDeps is everything the /api/v1 router needs once the services are built.
type apiDeps struct {
	Logger         *zap.Logger
	JWT            func(http.Handler) http.Handler
	Validate       func(http.Handler) http.Handler
	RequestTimeout time.Duration
	Profiles       accountshandler.ProfileResolver
	Spaces         tenantmiddleware.Resolver
	SpaceCache     *tenantmiddleware.Cache
	EnvKey         string

	Accounts *accountshandler.Handler
	Tenants  *tenantshandler.Handler
	Catalog  *cataloghandler.Handler
	Carts    *cartshandler.Handler
	Orders   *ordershandler.Handler
	Reports  *reportshandler.Handler
	Shipping *shippinghandler.Handler
}

// newAPIRouter assembles the versioned API: auth, the role-gated areas and contract validation.
func newAPIRouter(d apiDeps) chi.Router {
	timeout := chimw.Timeout(d.RequestTimeout)

	r := chi.NewRouter()
	r.Use(d.JWT)

	r.Route("/auth", func(r chi.Router) {
		r.Use(timeout, platformmiddleware.RequestTrace, d.Validate)
		d.Accounts.Routes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(accountshandler.ProfileMiddleware(d.Profiles, d.Logger), platformmiddleware.RequestTrace)

		// Access policies run ahead of contract validation.
		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Group(func(r chi.Router) {
				r.Use(d.Validate)
				r.Get("/me", accountshandler.Me)
				r.Get("/navigation", access.NavigationHandler())

				d.Tenants.PublicRoutes(r)
				d.Catalog.PublicRoutes(r)
				d.Orders.InvoiceRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(access.Require(access.GuestOnly()), d.Validate)
				d.Carts.GuestRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(access.Require(access.CustomerOnly()), d.Validate)
				d.Carts.Routes(r)
				d.Orders.CustomerRoutes(r)
			})
		})

		// Websocket feeds stay outside the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(access.Require(access.CustomerOnly()))
			d.Orders.CustomerFeedRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(access.Require(access.AdminOnly()))
			r.Use(tenantmiddleware.WithTenantSpace(d.Spaces, tenantmiddleware.Config{
				EnvKey: d.EnvKey,
				Cache:  d.SpaceCache,
			}))

			r.Group(func(r chi.Router) {
				r.Use(timeout, d.Validate)
				d.Tenants.AdminRoutes(r)
				d.Catalog.AdminRoutes(r)
				d.Orders.AdminRoutes(r)
				d.Reports.AdminRoutes(r)
				d.Shipping.AdminRoutes(r)
			})
			d.Orders.AdminFeedRoutes(r)
		})

		r.Route("/superadmin", func(r chi.Router) {
			r.Use(access.Require(access.SuperAdminOnly()), timeout)
			d.Tenants.SuperAdminRoutes(r)
		})
	})

	return r
}
