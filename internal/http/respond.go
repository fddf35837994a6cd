package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"fondi/internal/core"
	"fondi/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps domain errors onto HTTP statuses: referential failures are
// 404, idempotency refusals 409, business-rule rejections 422, and malformed
// input 400. Anything unrecognized is a 500 with the detail kept server-side.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var validationErrs validator.ValidationErrors
	var overAlloc *core.OverAllocationError
	var ambiguous *core.AmbiguousCashAssetError
	var lineReuse *core.LineReuseError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyHandled):
		status = http.StatusConflict
	case errors.As(err, &lineReuse):
		status = http.StatusConflict
	case errors.As(err, &overAlloc),
		errors.As(err, &ambiguous),
		errors.Is(err, core.ErrPercentSum),
		errors.Is(err, core.ErrNoRules),
		errors.Is(err, core.ErrNoSurplus):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errMalformedBody),
		errors.As(err, &validationErrs),
		isValidationError(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidMonthKey,
		core.ErrInvalidDate,
		core.ErrEmptyName,
		core.ErrNameTooLong,
		core.ErrInvalidCurrency,
		core.ErrInvalidPercent,
		core.ErrMissingOwner,
		core.ErrAssetVariant,
		core.ErrLiabilityVariant,
		core.ErrEmptyTicker,
		core.ErrEmptyCounterparty,
		core.ErrInvalidDueDay,
		core.ErrLineTarget,
		core.ErrLineKind,
		core.ErrMissingEventType,
		core.ErrMissingCategory,
		core.ErrRuleCategory,
		core.ErrCategoryRuleFixed,
		core.ErrRuleSource,
		core.ErrNegativeFee,
		core.ErrAllocationVariant,
		core.ErrTypeMismatch,
		core.ErrFundMismatch,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
