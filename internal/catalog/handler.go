package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tindero-pos/tindero/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{id}/availability", h.handleAvailability)
	r.Post("/ingredients/{id}/restock", h.handleRestock)
}

type availabilityResponse struct {
	ProductID            int64    `json:"productId"`
	Status               string   `json:"status"`
	MaxProducible        *int     `json:"maxProducible"`
	LimitingIngredientID int64    `json:"limitingIngredientId,omitempty"`
	Missing              []string `json:"missing,omitempty"`
	Low                  []string `json:"low,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	availability, err := h.service.Availability(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("compute availability", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := availabilityResponse{
		ProductID:            availability.ProductID,
		Status:               string(availability.Status),
		MaxProducible:        availability.MaxProducible,
		LimitingIngredientID: availability.LimitingIngredientID,
		Warnings:             availability.Warnings,
	}
	for _, ref := range availability.Missing {
		resp.Missing = append(resp.Missing, ref.Name)
	}
	for _, ref := range availability.Low {
		resp.Low = append(resp.Low, ref.Name)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type restockRequest struct {
	Quantity       float64 `json:"quantity" validate:"required,gt=0"`
	CostPerPackage float64 `json:"costPerPackage" validate:"gte=0"`
	PackageSize    float64 `json:"packageSize" validate:"gte=0"`
	ActorID        int64   `json:"actorId"`
	Note           string  `json:"note"`
}

type restockResponse struct {
	IngredientID int64   `json:"ingredientId"`
	Name         string  `json:"name"`
	PrevQty      float64 `json:"prevQty"`
	NewQty       float64 `json:"newQty"`
	ChangeID     string  `json:"changeId"`
	ParReached   bool    `json:"parReached"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid ingredient id")
		return
	}
	var req restockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.service.Restock(r.Context(), RestockInput{
		IngredientID:   id,
		Quantity:       req.Quantity,
		CostPerPackage: req.CostPerPackage,
		PackageSize:    req.PackageSize,
		ActorID:        req.ActorID,
		Note:           req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrIngredientNotFound):
			httpx.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidRestockQuantity):
			httpx.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("restock ingredient", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	h.logger.Info("ingredient restocked",
		slog.Int64("ingredient_id", id),
		slog.Float64("quantity", req.Quantity),
		slog.String("change_id", result.ChangeID))
	httpx.JSON(w, http.StatusOK, restockResponse{
		IngredientID: result.Ingredient.ID,
		Name:         result.Ingredient.Name,
		PrevQty:      result.PrevQty,
		NewQty:       result.NewQty,
		ChangeID:     result.ChangeID,
		ParReached:   result.ParReached,
	})
}
