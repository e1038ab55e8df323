package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mizan-erp/mizan-erp/internal/costing"
	"github.com/mizan-erp/mizan-erp/internal/platform/httpx"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// Handler serves the stock card and manual adjustment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance", h.balance)
	r.Get("/movements", h.movements)
	r.Post("/adjustments", h.postAdjustment)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrBalanceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type balanceResponse struct {
	WarehouseID    int64   `json:"warehouse_id"`
	ProductID      int64   `json:"product_id"`
	Qty            float64 `json:"qty"`
	AvgCost        float64 `json:"avg_cost"`
	TotalCost      float64 `json:"total_cost"`
	AvgCostDisplay string  `json:"avg_cost_display"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	warehouseID, _ := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	productID, _ := strconv.ParseInt(q.Get("product_id"), 10, 64)

	balance, err := h.service.StockBalance(r.Context(), warehouseID, productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{
		WarehouseID:    balance.WarehouseID,
		ProductID:      balance.ProductID,
		Qty:            balance.Qty,
		AvgCost:        balance.AvgCost,
		TotalCost:      balance.Qty * balance.AvgCost,
		AvgCostDisplay: shared.FormatAmount(balance.AvgCost, q.Get("locale")),
	})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{}
	filter.WarehouseID, _ = strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	filter.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = t
		}
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	records, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": records})
}

type adjustmentRequest struct {
	WarehouseID int64   `json:"warehouse_id" validate:"required"`
	ProductID   int64   `json:"product_id" validate:"required"`
	Direction   string  `json:"direction" validate:"required,oneof=IN OUT in out"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
	Method      string  `json:"method"`
	Note        string  `json:"note"`
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	note := req.Note
	if note == "" {
		note = "تسوية مخزون يدوية"
	}

	var record MovementRecord
	var err error
	switch strings.ToUpper(req.Direction) {
	case "IN":
		record, err = h.service.PostInbound(r.Context(), InboundInput{
			WarehouseID:  req.WarehouseID,
			ProductID:    req.ProductID,
			Qty:          req.Qty,
			UnitCost:     req.UnitCost,
			DocumentType: DocumentTypeAdjustment,
			Note:         note,
		})
	default:
		record, _, err = h.service.PostOutbound(r.Context(), OutboundInput{
			WarehouseID:  req.WarehouseID,
			ProductID:    req.ProductID,
			Qty:          req.Qty,
			Method:       costing.ValuationMethod(strings.ToUpper(req.Method)),
			DocumentType: DocumentTypeAdjustment,
			Note:         note,
		})
	}
	if err != nil {
		h.logger.Error("post adjustment", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}
