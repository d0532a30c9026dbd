package sales

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tindero-pos/tindero/internal/payment"
	"github.com/tindero-pos/tindero/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the transaction pipeline.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.handleCommit)
	r.Post("/customers/{id}/tab/settlements", h.handleSettlement)
}

type itemRequest struct {
	ProductID   int64   `json:"productId" validate:"required"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
}

type commitRequest struct {
	Items               []itemRequest   `json:"items" validate:"required,min=1,dive"`
	Subtotal            float64         `json:"subtotal"`
	TaxAmount           float64         `json:"taxAmount"`
	Discount            float64         `json:"discount"`
	Total               float64         `json:"total" validate:"gt=0"`
	Status              *int            `json:"status"`
	PaymentType         string          `json:"paymentType"`
	PaymentInfo         json.RawMessage `json:"paymentInfo"`
	PaidAmount          float64         `json:"paidAmount"`
	ChangeAmount        float64         `json:"changeAmount"`
	CustomerID          int64           `json:"customerId"`
	IdempotencyKey      string          `json:"idempotencyKey"`
	OverrideCreditLimit bool            `json:"overrideCreditLimit"`
}

type transactionResponse struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	Status         int             `json:"status"`
	PaymentType    string          `json:"paymentType"`
	PaymentInfo    json.RawMessage `json:"paymentInfo,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Subtotal       float64         `json:"subtotal"`
	TaxAmount      float64         `json:"taxAmount"`
	Discount       float64         `json:"discount"`
	Total          float64         `json:"total"`
	PaidAmount     float64         `json:"paidAmount"`
	ChangeAmount   float64         `json:"changeAmount"`
	CustomerID     int64           `json:"customerId,omitempty"`
	Daypart        string          `json:"daypart"`
	DayType        string          `json:"dayType"`
	CreatedAt      time.Time       `json:"createdAt"`
	Items          []itemResponse  `json:"items"`
	Replayed       bool            `json:"replayed,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

type itemResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func toResponse(t Transaction) transactionResponse {
	resp := transactionResponse{
		ID:             t.ID,
		OrderNumber:    t.OrderNumber,
		Status:         int(t.Status),
		PaymentType:    string(t.PaymentType),
		PaymentInfo:    json.RawMessage(t.PaymentInfo),
		IdempotencyKey: t.IdempotencyKey,
		Subtotal:       t.Subtotal,
		TaxAmount:      t.TaxAmount,
		Discount:       t.Discount,
		Total:          t.Total,
		PaidAmount:     t.PaidAmount,
		ChangeAmount:   t.ChangeAmount,
		CustomerID:     t.CustomerID,
		Daypart:        t.Daypart,
		DayType:        t.DayType,
		CreatedAt:      t.CreatedAt,
	}
	for _, item := range t.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return resp
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.IdempotencyKey == "" {
		// Offline-queue replays carry the key as a header alongside the
		// original, unmodified payload.
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	status := StatusPaid
	if req.Status != nil {
		switch *req.Status {
		case int(StatusHeld), int(StatusPaid):
			status = Status(*req.Status)
		default:
			httpx.Error(w, http.StatusBadRequest, "status must be 0 (held) or 1 (paid)")
			return
		}
	}
	input := CommitRequest{
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		Discount:       req.Discount,
		Total:          req.Total,
		Status:         status,
		PaymentInfo:    req.PaymentInfo,
		PaidAmount:     req.PaidAmount,
		ChangeAmount:   req.ChangeAmount,
		CustomerID:     req.CustomerID,
		IdempotencyKey: req.IdempotencyKey,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	if status == StatusPaid {
		method, err := payment.Decode(req.PaymentType, req.PaymentInfo, req.CustomerID, req.OverrideCreditLimit)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		input.Method = method
	}

	outcome, err := h.service.Commit(r.Context(), input)
	if err != nil {
		h.logger.Error("commit transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	switch result := outcome.(type) {
	case Committed:
		resp := toResponse(result.Transaction)
		resp.Warnings = result.Warnings
		h.logger.Info("transaction committed",
			slog.String("order", result.Transaction.OrderNumber),
			slog.String("payment", string(result.Transaction.PaymentType)),
			slog.Float64("total", result.Transaction.Total))
		httpx.JSON(w, http.StatusOK, resp)
	case Replayed:
		resp := toResponse(result.Transaction)
		resp.Replayed = true
		h.logger.Info("transaction replayed", slog.String("key", result.Transaction.IdempotencyKey))
		httpx.JSON(w, http.StatusOK, resp)
	case Rejected:
		httpx.Error(w, http.StatusBadRequest, result.Reason.Error())
	}
}

type settlementRequest struct {
	Amount  float64 `json:"amount" validate:"required"`
	ActorID int64   `json:"actorId"`
}

func (h *Handler) handleSettlement(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req settlementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	customer, err := h.service.SettleTab(r.Context(), customerID, req.Amount, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrMustBePositive), errors.Is(err, payment.ErrExceedsBalance):
			httpx.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCustomerNotFound):
			httpx.Error(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("settle tab", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"customerId": customer.ID,
		"tabBalance": customer.TabBalance,
	})
}
