package http

import (
	"net/http"

	"dress-rental/internal/handlers"
	"dress-rental/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Customers *handlers.CustomerHandler
	Dresses   *handlers.DressHandler
	Rentals   *handlers.RentalHandler
	Payments  *handlers.PaymentHandler
	Reports   *handlers.ReportHandler
	Settings  *handlers.SystemSettingHandler
	Activity  *handlers.ActivityLogHandler
	Health    *handlers.HealthHandler
	Realtime  http.Handler
}

// NewRouter mounts the API. CORS wraps the returned router in main so
// preflight requests are answered before route matching.
func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.PanicRecovery)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.MetricsMiddleware)

	admin := authMiddleware.RequireAdmin
	adminOnly := func(fn http.HandlerFunc) http.HandlerFunc {
		return admin(fn).ServeHTTP
	}

	// Public routes
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")

	// Session routes
	authAPI := r.PathPrefix("/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/logout", h.Auth.Logout).Methods("POST")
	authAPI.HandleFunc("/me", h.Auth.Me).Methods("GET")
	authAPI.HandleFunc("/change-password", h.Auth.ChangePassword).Methods("POST")
	authAPI.HandleFunc("/2fa/setup", h.Auth.SetupTOTP).Methods("POST")
	authAPI.HandleFunc("/2fa/enable", h.Auth.EnableTOTP).Methods("POST")
	authAPI.HandleFunc("/2fa/disable", h.Auth.DisableTOTP).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Users (admin only)
	usersAPI := api.PathPrefix("/users").Subrouter()
	usersAPI.Use(admin)
	usersAPI.HandleFunc("", h.Users.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", h.Users.CreateUser).Methods("POST")
	usersAPI.HandleFunc("/{id}", h.Users.GetUser).Methods("GET")
	usersAPI.HandleFunc("/{id}", h.Users.UpdateUser).Methods("PUT")
	usersAPI.HandleFunc("/{id}", h.Users.DeleteUser).Methods("DELETE")
	usersAPI.HandleFunc("/{id}/toggle-active", h.Users.ToggleActive).Methods("PATCH")

	// Customers
	api.HandleFunc("/customers", h.Customers.ListCustomers).Methods("GET")
	api.HandleFunc("/customers", h.Customers.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers/search", h.Customers.SearchCustomers).Methods("GET")
	api.HandleFunc("/customers/ic", h.Customers.GetCustomerByIC).Methods("GET")
	api.HandleFunc("/customers/{id}", h.Customers.GetCustomer).Methods("GET")
	api.HandleFunc("/customers/{id}", h.Customers.UpdateCustomer).Methods("PUT")
	api.HandleFunc("/customers/{id}", adminOnly(h.Customers.DeleteCustomer)).Methods("DELETE")
	api.HandleFunc("/customers/{id}/active-rentals", h.Customers.ActiveRentals).Methods("GET")

	// Dresses
	api.HandleFunc("/dresses", h.Dresses.ListDresses).Methods("GET")
	api.HandleFunc("/dresses", h.Dresses.CreateDress).Methods("POST")
	api.HandleFunc("/dresses/available", h.Dresses.ListAvailable).Methods("GET")
	api.HandleFunc("/dresses/search", h.Dresses.SearchDresses).Methods("GET")
	api.HandleFunc("/dresses/low-stock", h.Dresses.LowStock).Methods("GET")
	api.HandleFunc("/dresses/category/{category}", h.Dresses.ListByCategory).Methods("GET")
	api.HandleFunc("/dresses/{id}", h.Dresses.GetDress).Methods("GET")
	api.HandleFunc("/dresses/{id}", h.Dresses.UpdateDress).Methods("PUT")
	api.HandleFunc("/dresses/{id}", adminOnly(h.Dresses.DeleteDress)).Methods("DELETE")
	api.HandleFunc("/dresses/{id}/availability", h.Dresses.UpdateAvailability).Methods("PATCH")
	api.HandleFunc("/dresses/{id}/availability", h.Dresses.CheckAvailability).Methods("GET")

	// Rentals
	api.HandleFunc("/rentals", h.Rentals.ListRentals).Methods("GET")
	api.HandleFunc("/rentals", h.Rentals.CreateRental).Methods("POST")
	api.HandleFunc("/rentals/active", h.Rentals.ListActive).Methods("GET")
	api.HandleFunc("/rentals/overdue", h.Rentals.ListOverdue).Methods("GET")
	api.HandleFunc("/rentals/customer/{id}", h.Rentals.ListByCustomer).Methods("GET")
	api.HandleFunc("/rentals/{id}", h.Rentals.GetRental).Methods("GET")
	api.HandleFunc("/rentals/{id}/items", h.Rentals.ListItems).Methods("GET")
	api.HandleFunc("/rentals/{id}/return", h.Rentals.ReturnRental).Methods("POST")
	api.HandleFunc("/rentals/{id}/late-fee", h.Rentals.LateFee).Methods("GET")
	api.HandleFunc("/rentals/{id}/late-fee", h.Rentals.CalculateLateFee).Methods("POST")

	// Payments
	api.HandleFunc("/payments", h.Payments.ListPayments).Methods("GET")
	api.HandleFunc("/payments", h.Payments.RecordPayment).Methods("POST")
	api.HandleFunc("/payments/online/order", h.Payments.CreateOnlineOrder).Methods("POST")
	api.HandleFunc("/payments/online/verify", h.Payments.VerifyOnlinePayment).Methods("POST")
	api.HandleFunc("/payments/online/rental/{id}", h.Payments.ListOnlineTransactions).Methods("GET")
	api.HandleFunc("/payments/rental/{id}", h.Payments.ListByRental).Methods("GET")
	api.HandleFunc("/payments/rental/{id}/summary", h.Payments.RentalSummary).Methods("GET")
	api.HandleFunc("/payments/{id}", h.Payments.GetPayment).Methods("GET")
	api.HandleFunc("/payments/{id}/status", h.Payments.UpdateStatus).Methods("PUT")
	api.HandleFunc("/payments/{id}/receipt", h.Payments.Receipt).Methods("GET")

	// Reports
	api.HandleFunc("/reports", h.Reports.ListReports).Methods("GET")
	api.HandleFunc("/reports/dashboard", h.Reports.Dashboard).Methods("GET")
	api.HandleFunc("/reports/bundle", adminOnly(h.Reports.ExportBundle)).Methods("GET")
	api.HandleFunc("/reports/{name}", h.Reports.GetReport).Methods("GET")

	// Settings (updates admin only)
	api.HandleFunc("/settings", h.Settings.ListSettings).Methods("GET")
	api.HandleFunc("/settings/rules", h.Settings.Rules).Methods("GET")
	api.HandleFunc("/settings/{key}", h.Settings.GetSetting).Methods("GET")
	api.HandleFunc("/settings/{key}", adminOnly(h.Settings.UpdateSetting)).Methods("PUT")

	// Activity logs (admin only)
	api.HandleFunc("/activity-logs", adminOnly(h.Activity.ListActivityLogs)).Methods("GET")

	// Realtime dashboard feed
	if h.Realtime != nil {
		r.Handle("/ws/dashboard", authMiddleware.Authenticate(h.Realtime)).Methods("GET")
	}

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
