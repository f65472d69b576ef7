package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/service"
)

type PricingHandler struct {
	service  *service.PricingService
	validate *validator.Validate
	log      *slog.Logger
}

func NewPricingHandler(service *service.PricingService, log *slog.Logger) *PricingHandler {
	return &PricingHandler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

func (h *PricingHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListStateCodes(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"state_codes": codes})
}

func (h *PricingHandler) ComputeTotalPrice(w http.ResponseWriter, r *http.Request) {
	var req models.PriceRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if !req.PriceForOne.IsPositive() {
		respondWithError(w, http.StatusUnprocessableEntity, ErrorDetail{
			Code: "validation_error",
			Loc:  []string{"body", "price_for_one"},
			Msg:  "ensure this value is greater than 0",
			Type: "value_error.gt",
		})
		return
	}

	result, err := h.service.TotalPrice(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, result)
}
