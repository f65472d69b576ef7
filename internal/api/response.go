package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pricing-wallet/wallet-service/internal/service"
)

// BaseResponse is the envelope of every JSON answer except /ping.
type BaseResponse struct {
	Success bool          `json:"success"`
	Errors  []ErrorDetail `json:"errors"`
	Result  any           `json:"result"`
}

type ErrorDetail struct {
	Code string   `json:"code"`
	Msg  string   `json:"msg"`
	Loc  []string `json:"loc,omitempty"`
	Type string   `json:"type,omitempty"`
}

var statusByKind = map[string]int{
	"invalid_amount":     http.StatusUnprocessableEntity,
	"invalid_currency":   http.StatusUnprocessableEntity,
	"currency_mismatch":  http.StatusUnprocessableEntity,
	"invalid_state_code": http.StatusUnprocessableEntity,
	"self_transfer":      http.StatusBadRequest,
	"wallet_not_found":   http.StatusNotFound,
	"insufficient_funds": http.StatusPaymentRequired,
	"conflict":           http.StatusConflict,
	"duplicate_request":  http.StatusConflict,
	"transient":          http.StatusServiceUnavailable,
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondOK(w http.ResponseWriter, status int, result any) {
	respondWithJSON(w, status, BaseResponse{Success: true, Errors: []ErrorDetail{}, Result: result})
}

func respondWithError(w http.ResponseWriter, status int, details ...ErrorDetail) {
	respondWithJSON(w, status, BaseResponse{Success: false, Errors: details})
}

// writeError maps a service failure to its status code. Duplicate requests also
// return the transaction that already holds the request id.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := service.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		log.Error("request failed", slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, ErrorDetail{Code: kind, Msg: "internal server error"})
		return
	}

	detail := ErrorDetail{Code: kind, Msg: err.Error()}
	var dup *service.DuplicateRequestError
	if errors.As(err, &dup) {
		respondWithJSON(w, status, BaseResponse{
			Success: false,
			Errors:  []ErrorDetail{detail},
			Result:  map[string]any{"transaction": dup.Original},
		})
		return
	}
	if kind == "invalid_state_code" {
		detail.Msg = "invalid state code"
	}
	respondWithError(w, status, detail)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes a 422 answer and returns false when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, decodeErrorDetail(err))
		return false
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondWithError(w, http.StatusUnprocessableEntity, ErrorDetail{Code: "validation_error", Msg: err.Error()})
			return false
		}
		details := make([]ErrorDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, ErrorDetail{
				Code: "validation_error",
				Loc:  []string{"body", fe.Field()},
				Msg:  validationMessage(fe),
				Type: "value_error." + fe.Tag(),
			})
		}
		respondWithError(w, http.StatusUnprocessableEntity, details...)
		return false
	}
	return true
}

func decodeErrorDetail(err error) ErrorDetail {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return ErrorDetail{
			Code: "validation_error",
			Loc:  []string{"body", typeErr.Field},
			Msg:  fmt.Sprintf("value is not a valid %s", typeErr.Type.Kind()),
			Type: "type_error",
		}
	}
	return ErrorDetail{Code: "validation_error", Loc: []string{"body"}, Msg: "invalid request body", Type: "value_error.json"}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gt":
		return "ensure this value is greater than " + fe.Param()
	case "len":
		return "ensure this value has exactly " + fe.Param() + " characters"
	case "min":
		return "ensure this value has at least " + fe.Param() + " characters"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	case "uppercase":
		return "ensure this value is upper case"
	}
	return "invalid value"
}
