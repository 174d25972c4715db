package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mercerie-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/mercerie-backend/api/controllers/cart"
	eventcontrollers "github.com/angelmondragon/mercerie-backend/api/controllers/events"
	ordercontrollers "github.com/angelmondragon/mercerie-backend/api/controllers/orders"
	"github.com/angelmondragon/mercerie-backend/api/middleware"
	"github.com/angelmondragon/mercerie-backend/internal/auth"
	"github.com/angelmondragon/mercerie-backend/internal/cart"
	"github.com/angelmondragon/mercerie-backend/internal/orders"
	"github.com/angelmondragon/mercerie-backend/internal/products"
	"github.com/angelmondragon/mercerie-backend/internal/session"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

// Dependencies is everything the HTTP surface needs. DB and Redis are only
// used by the readiness check; RateLimitStore, IdempotencyStore and Redis
// may be nil.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer

	DB               controllers.Pinger
	Redis            controllers.Pinger
	RateLimitStore   middleware.RateLimiterStore
	IdempotencyStore middleware.IdempotencyStore

	Tracker  *session.Tracker
	Events   eventcontrollers.Subscriber
	Auth     auth.Service
	Users    users.Service
	Products products.Service
	Orders   orders.Service
	Cart     cart.Service
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)
	loginLimit := middleware.AuthRateLimit(loginPolicy, d.RateLimitStore, logg)
	registerLimit := middleware.AuthRateLimit(registerPolicy, d.RateLimitStore, logg)
	idempotent := middleware.Idempotency(d.IdempotencyStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/clients/login", controllers.ClientLogin(d.Auth, logg))
		r.With(registerLimit).Post("/auth/clients/register", controllers.ClientRegister(d.Auth, logg))
		r.With(loginLimit).Post("/auth/employees/login", controllers.EmployeeLogin(d.Auth, logg))

		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Tracker, logg))

			r.Post("/auth/logout", controllers.Logout(d.Auth, logg))
			r.Get("/session", controllers.Session(d.Tracker, logg))
			r.Get("/events", eventcontrollers.Stream(d.Events, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(d.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePatron(logg))
				r.Post("/auth/employees/register", controllers.EmployeeRegister(d.Auth, logg))

				r.Post("/products", controllers.ProductCreate(d.Products, logg))
				r.Put("/products/{productId}", controllers.ProductUpdate(d.Products, logg))
				r.Delete("/products/{productId}", controllers.ProductDelete(d.Products, logg))

				r.Get("/employees", controllers.EmployeeList(d.Users, logg))
				r.Post("/employees", controllers.EmployeeCreate(d.Users, logg))
				r.Put("/employees/{employeeId}", controllers.EmployeeUpdate(d.Users, logg))
				r.Delete("/employees/{employeeId}", controllers.EmployeeDelete(d.Users, logg))
				r.Get("/employees/online", controllers.EmployeesOnline(d.Tracker))
				r.Get("/employees/least-loaded", controllers.EmployeeLeastLoaded(d.Orders, logg))
				r.Get("/employees/workloads", controllers.EmployeeWorkloads(d.Orders, d.Tracker, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Get("/clients", controllers.ClientList(d.Users, logg))
				r.Post("/clients", controllers.ClientCreate(d.Users, logg))
				r.Put("/clients/{clientId}", controllers.ClientUpdate(d.Users, logg))
				r.Delete("/clients/{clientId}", controllers.ClientDelete(d.Users, logg))

				r.Get("/orders", ordercontrollers.List(d.Orders, logg))
				r.Patch("/orders/{orderId}/status", ordercontrollers.UpdateStatus(d.Orders, logg))
				r.Put("/orders/{orderId}/quantities", ordercontrollers.UpdateQuantities(d.Orders, logg))
				r.Get("/me/assigned-orders", ordercontrollers.AssignedOrders(d.Orders, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireClient(logg))
				r.With(idempotent).Post("/orders", ordercontrollers.Place(d.Orders, logg))
				r.With(idempotent).Post("/orders/{orderId}/returns", ordercontrollers.Return(d.Orders, logg))
				r.Get("/me/orders", ordercontrollers.MyOrders(d.Orders, logg))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartcontrollers.CartFetch(d.Cart, logg))
					r.Delete("/", cartcontrollers.CartClear(d.Cart, logg))
					r.Post("/items", cartcontrollers.CartAddItem(d.Cart, logg))
					r.Put("/items/{productId}", cartcontrollers.CartUpdateItem(d.Cart, logg))
					r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(d.Cart, logg))
					r.With(idempotent).Post("/checkout", cartcontrollers.CartCheckout(d.Cart, logg))
				})
			})
		})
	})

	return r
}
