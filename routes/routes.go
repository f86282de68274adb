package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/handlers"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/middleware"
)

// RegisterRoutes wires the full REST surface.
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	customerHandler := handlers.NewCustomerHandler()
	vehicleHandler := handlers.NewVehicleHandler()
	jobHandler := handlers.NewJobHandler()
	stockHandler := handlers.NewStockHandler()
	ledgerHandler := handlers.NewLedgerHandler()
	paymentHandler := handlers.NewPaymentHandler()

	// Public routes. The gateway callback authenticates itself with the HMAC
	// signature; the gateway holds no user token.
	r.HandleFunc("/api/v1/auth/login", handlers.Login).Methods("POST")
	r.HandleFunc("/api/v1/payments/gateway/callback", paymentHandler.GatewayCallback).Methods("POST")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	frontDesk := []string{"manager", "receptionist"}
	managers := []string{"manager"}

	// Customers and vehicles
	api.Handle("/customers", middleware.RequireRole(frontDesk, http.HandlerFunc(customerHandler.CreateCustomer))).Methods("POST")
	api.HandleFunc("/customers/{id}", customerHandler.GetCustomer).Methods("GET")
	api.Handle("/customers/{id}", middleware.RequireRole(frontDesk, http.HandlerFunc(customerHandler.UpdateCustomer))).Methods("PUT")
	api.Handle("/vehicles", middleware.RequireRole(frontDesk, http.HandlerFunc(vehicleHandler.CreateVehicle))).Methods("POST")
	api.HandleFunc("/vehicles/{id}", vehicleHandler.GetVehicle).Methods("GET")
	api.Handle("/vehicles/{id}", middleware.RequireRole(frontDesk, http.HandlerFunc(vehicleHandler.UpdateVehicle))).Methods("PUT")

	// Job cards
	api.Handle("/jobs", middleware.RequireRole(frontDesk, http.HandlerFunc(jobHandler.CreateJob))).Methods("POST")
	api.HandleFunc("/jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/items", jobHandler.AddItem).Methods("POST")
	api.HandleFunc("/jobs/{id}/items/{itemId}", jobHandler.RemoveItem).Methods("DELETE")
	api.Handle("/jobs/{id}/approve", middleware.RequireRole(frontDesk, http.HandlerFunc(jobHandler.ApproveItems))).Methods("POST")
	api.HandleFunc("/jobs/{id}/status", jobHandler.ChangeStatus).Methods("POST")
	api.Handle("/jobs/{id}/billing", middleware.RequireRole(managers, http.HandlerFunc(jobHandler.UpdateBilling))).Methods("PUT")
	api.Handle("/jobs/{id}/mechanics", middleware.RequireRole(managers, http.HandlerFunc(jobHandler.AssignMechanics))).Methods("PUT")
	api.HandleFunc("/jobs/{id}/balance", jobHandler.BalanceDue).Methods("GET")
	api.HandleFunc("/jobs/{id}/payments", paymentHandler.ListJobPayments).Methods("GET")

	// Inventory
	api.Handle("/inventory/items", middleware.RequireRole(managers, http.HandlerFunc(stockHandler.CreateItem))).Methods("POST")
	api.HandleFunc("/inventory/items/{id}", stockHandler.GetItem).Methods("GET")
	api.Handle("/inventory/items/{id}/add", middleware.RequireRole(managers, http.HandlerFunc(stockHandler.AddStock))).Methods("POST")
	api.Handle("/inventory/items/{id}/deduct", middleware.RequireRole(managers, http.HandlerFunc(stockHandler.DeductStock))).Methods("POST")
	api.Handle("/inventory/items/{id}/adjust", middleware.RequireRole(managers, http.HandlerFunc(stockHandler.AdjustStock))).Methods("POST")
	api.Handle("/inventory/deduct-for-invoice", middleware.RequireRole(frontDesk, http.HandlerFunc(stockHandler.DeductForInvoice))).Methods("POST")
	api.Handle("/inventory/return-from-invoice", middleware.RequireRole(frontDesk, http.HandlerFunc(stockHandler.ReturnFromInvoice))).Methods("POST")
	api.HandleFunc("/inventory/low-stock", stockHandler.LowStock).Methods("GET")
	api.HandleFunc("/inventory/out-of-stock", stockHandler.OutOfStock).Methods("GET")

	// Ledger
	api.HandleFunc("/inventory/transactions", ledgerHandler.ListTransactions).Methods("GET")
	api.HandleFunc("/inventory/transactions/export", ledgerHandler.ExportTransactions).Methods("GET")

	// Payments
	api.Handle("/payments", middleware.RequireRole(frontDesk, http.HandlerFunc(paymentHandler.RecordPayment))).Methods("POST")
	api.Handle("/payments/{id}/refund", middleware.RequireRole(managers, http.HandlerFunc(paymentHandler.Refund))).Methods("POST")
	api.Handle("/payments/{id}/checkout", middleware.RequireRole(frontDesk, http.HandlerFunc(paymentHandler.CreateCheckoutOrder))).Methods("POST")

	return r
}
