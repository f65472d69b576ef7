package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/service"
)

type WalletHandler struct {
	service  *service.WalletService
	validate *validator.Validate
	log      *slog.Logger
}

func NewWalletHandler(service *service.WalletService, log *slog.Logger) *WalletHandler {
	return &WalletHandler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWalletRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	wallet, err := h.service.CreateWallet(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"wallet": wallet})
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := walletIDParam(w, r)
	if !ok {
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), walletID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"wallet": wallet})
}

func (h *WalletHandler) AddMoney(w http.ResponseWriter, r *http.Request) {
	walletID, ok := walletIDParam(w, r)
	if !ok {
		return
	}

	var req models.AddMoneyRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	req.WalletID = walletID

	result, err := h.service.AddMoney(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, result)
}

func (h *WalletHandler) SendMoney(w http.ResponseWriter, r *http.Request) {
	walletID, ok := walletIDParam(w, r)
	if !ok {
		return
	}

	var req models.SendMoneyRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	req.FromWalletID = walletID

	result, err := h.service.SendMoney(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, result)
}

func walletIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, ErrorDetail{
			Code: "validation_error",
			Loc:  []string{"path", "id"},
			Msg:  "invalid wallet ID",
		})
		return 0, false
	}
	return id, true
}
