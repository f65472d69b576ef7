package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pricing-wallet/wallet-service/internal/service"
)

func NewRouter(walletService *service.WalletService, pricingService *service.PricingService, origins []string, log *slog.Logger) *chi.Mux {
	wallets := NewWalletHandler(walletService, log)
	pricing := NewPricingHandler(pricingService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/ping", Ping)
	r.Get("/states", pricing.GetStates)
	r.Post("/total_price", pricing.ComputeTotalPrice)

	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", wallets.CreateWallet)
		r.Get("/{id}", wallets.GetWallet)
		r.Post("/{id}/add", wallets.AddMoney)
		r.Post("/{id}/send", wallets.SendMoney)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, ErrorDetail{Code: "not_found", Msg: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, ErrorDetail{Code: "method_not_allowed", Msg: "Method Not Allowed"})
	})
	return r
}

func Ping(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"text": "pong"})
}
