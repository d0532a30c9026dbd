package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tindero-pos/tindero/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetIngredients(ctx context.Context, ids []int64) (map[int64]Ingredient, error)
	ListBelowPar(ctx context.Context) ([]Ingredient, error)
}

// Service coordinates catalog reads and ingredient restocks.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Availability computes the advisory availability for one product.
func (s *Service) Availability(ctx context.Context, productID int64) (Availability, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	var ids []int64
	if product.LinkedIngredientID != 0 {
		ids = append(ids, product.LinkedIngredientID)
	}
	for _, line := range product.Recipe {
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := s.repo.GetIngredients(ctx, ids)
	if err != nil {
		return Availability{}, err
	}
	return ComputeAvailability(product, ingredients), nil
}

// Restock receives a package delivery: bumps quantity and optionally updates
// cost and package size, writing one history row per changed field under a
// single change ID.
func (s *Service) Restock(ctx context.Context, input RestockInput) (RestockResult, error) {
	if input.IngredientID == 0 {
		return RestockResult{}, errors.New("catalog: ingredient required")
	}
	if input.Quantity <= 0 {
		return RestockResult{}, ErrInvalidRestockQuantity
	}
	changeID := uuid.NewString()
	var result RestockResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ing, err := tx.GetIngredientForUpdate(ctx, input.IngredientID)
		if err != nil {
			return err
		}
		prev := ing
		ing.Quantity += input.Quantity
		if input.CostPerPackage > 0 {
			ing.CostPerPackage = input.CostPerPackage
		}
		if input.PackageSize > 0 {
			ing.PackageSize = input.PackageSize
		}
		if err := tx.UpdateIngredient(ctx, ing); err != nil {
			return err
		}
		reason := input.Note
		if reason == "" {
			reason = "restock"
		}
		entries := []HistoryEntry{{
			IngredientID: ing.ID,
			ChangeID:     changeID,
			Field:        "quantity",
			OldValue:     prev.Quantity,
			NewValue:     ing.Quantity,
			Source:       "restock",
			Reason:       reason,
			ActorID:      input.ActorID,
		}}
		if ing.CostPerPackage != prev.CostPerPackage {
			entries = append(entries, HistoryEntry{
				IngredientID: ing.ID,
				ChangeID:     changeID,
				Field:        "cost_per_package",
				OldValue:     prev.CostPerPackage,
				NewValue:     ing.CostPerPackage,
				Source:       "restock",
				Reason:       reason,
				ActorID:      input.ActorID,
			})
		}
		if ing.PackageSize != prev.PackageSize {
			entries = append(entries, HistoryEntry{
				IngredientID: ing.ID,
				ChangeID:     changeID,
				Field:        "package_size",
				OldValue:     prev.PackageSize,
				NewValue:     ing.PackageSize,
				Source:       "restock",
				Reason:       reason,
				ActorID:      input.ActorID,
			})
		}
		for _, entry := range entries {
			if err := tx.InsertHistory(ctx, entry); err != nil {
				return err
			}
		}
		err = tx.InsertAudit(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "catalog:restock",
			Entity:   "ingredient",
			EntityID: fmt.Sprintf("%d", input.IngredientID),
			Meta: map[string]any{
				"change_id": changeID,
				"quantity":  input.Quantity,
				"prev_qty":  prev.Quantity,
				"new_qty":   ing.Quantity,
			},
		})
		if err != nil {
			return err
		}
		result = RestockResult{
			Ingredient: ing,
			PrevQty:    prev.Quantity,
			NewQty:     ing.Quantity,
			ChangeID:   changeID,
			ParReached: ing.ParLevel > 0 && ing.Quantity > ing.ParLevel,
		}
		return nil
	})
	if err != nil {
		return RestockResult{}, err
	}
	return result, nil
}

// BelowPar lists ingredients at or below their reorder threshold.
func (s *Service) BelowPar(ctx context.Context) ([]Ingredient, error) {
	return s.repo.ListBelowPar(ctx)
}
