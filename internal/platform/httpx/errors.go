package httpx

import (
	"errors"
	"net/http"

	accshared "github.com/mizan-erp/mizan-erp/internal/accounting/shared"
	"github.com/mizan-erp/mizan-erp/internal/costing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// RespondError maps domain errors onto RFC7807 responses. Unrecognised errors
// become opaque 500s so internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Already Processed", err.Error())
	case errors.Is(err, accshared.ErrJournalNotFound), errors.Is(err, accshared.ErrAccountNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, accshared.ErrUnbalanced), errors.Is(err, accshared.ErrTooFewLines):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, accshared.ErrInvalidStatus), errors.Is(err, accshared.ErrSourceAlreadyLinked):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, accshared.ErrMappingNotFound):
		Problem(w, http.StatusUnprocessableEntity, "Mapping Missing", err.Error())
	case errors.Is(err, costing.ErrInsufficientLayers):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, costing.ErrCostLookup):
		Problem(w, http.StatusBadGateway, "Cost Lookup Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
