package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tindero-pos/tindero/internal/shared"
)

var errAuditDown = errors.New("audit unavailable")

type memoryRepo struct {
	products    map[int64]Product
	ingredients map[int64]Ingredient
	history     []HistoryEntry
	audits      []shared.AuditLog
	failAudit   bool
}

type memoryTx struct {
	repo    *memoryRepo
	staged  map[int64]Ingredient
	history []HistoryEntry
	audits  []shared.AuditLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}, ingredients: map[int64]Ingredient{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, staged: map[int64]Ingredient{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, ing := range tx.staged {
		r.ingredients[id] = ing
	}
	r.history = append(r.history, tx.history...)
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryRepo) GetIngredients(ctx context.Context, ids []int64) (map[int64]Ingredient, error) {
	out := map[int64]Ingredient{}
	for _, id := range ids {
		if ing, ok := r.ingredients[id]; ok {
			out[id] = ing
		}
	}
	return out, nil
}

func (r *memoryRepo) ListBelowPar(ctx context.Context) ([]Ingredient, error) {
	var out []Ingredient
	for _, ing := range r.ingredients {
		if ing.ParLevel > 0 && ing.Quantity <= ing.ParLevel {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetIngredientForUpdate(ctx context.Context, id int64) (Ingredient, error) {
	if ing, ok := tx.staged[id]; ok {
		return ing, nil
	}
	ing, ok := tx.repo.ingredients[id]
	if !ok {
		return Ingredient{}, ErrIngredientNotFound
	}
	return ing, nil
}

func (tx *memoryTx) UpdateIngredient(ctx context.Context, ing Ingredient) error {
	tx.staged[ing.ID] = ing
	return nil
}

func (tx *memoryTx) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	tx.history = append(tx.history, entry)
	return nil
}

func (tx *memoryTx) InsertAudit(ctx context.Context, log shared.AuditLog) error {
	if tx.repo.failAudit {
		return errAuditDown
	}
	tx.audits = append(tx.audits, log)
	return nil
}

func TestRestock(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[1] = Ingredient{ID: 1, Name: "Flour", PackageSize: 1000, CostPerPackage: 50, Quantity: 2, ParLevel: 3}
	svc := NewService(repo)

	result, err := svc.Restock(context.Background(), RestockInput{IngredientID: 1, Quantity: 5, ActorID: 7})
	require.NoError(t, err)
	require.InDelta(t, 2.0, result.PrevQty, 0.0001)
	require.InDelta(t, 7.0, result.NewQty, 0.0001)
	require.True(t, result.ParReached)
	require.NotEmpty(t, result.ChangeID)

	require.Len(t, repo.history, 1)
	require.Equal(t, "quantity", repo.history[0].Field)
	require.Equal(t, "restock", repo.history[0].Source)
	require.Equal(t, int64(7), repo.history[0].ActorID)

	require.Len(t, repo.audits, 1)
	require.Equal(t, "catalog:restock", repo.audits[0].Action)
	require.Equal(t, int64(7), repo.audits[0].ActorID)
}

func TestRestockAuditFailureRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[1] = Ingredient{ID: 1, Name: "Flour", PackageSize: 1000, Quantity: 2}
	repo.failAudit = true
	svc := NewService(repo)

	_, err := svc.Restock(context.Background(), RestockInput{IngredientID: 1, Quantity: 5})
	require.ErrorIs(t, err, errAuditDown)
	require.InDelta(t, 2.0, repo.ingredients[1].Quantity, 0.0001)
	require.Empty(t, repo.history)
	require.Empty(t, repo.audits)
}

func TestRestockUpdatesCostAndPackageSize(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[1] = Ingredient{ID: 1, Name: "Flour", PackageSize: 1000, CostPerPackage: 50, Quantity: 2}
	svc := NewService(repo)

	_, err := svc.Restock(context.Background(), RestockInput{IngredientID: 1, Quantity: 1, CostPerPackage: 60, PackageSize: 900})
	require.NoError(t, err)

	ing := repo.ingredients[1]
	require.InDelta(t, 60.0, ing.CostPerPackage, 0.0001)
	require.InDelta(t, 900.0, ing.PackageSize, 0.0001)
	// Three history rows, all sharing one change ID.
	require.Len(t, repo.history, 3)
	require.Equal(t, repo.history[0].ChangeID, repo.history[1].ChangeID)
	require.Equal(t, repo.history[1].ChangeID, repo.history[2].ChangeID)
}

func TestRestockRejectsBadQuantity(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[1] = Ingredient{ID: 1, Name: "Flour", PackageSize: 1000, Quantity: 2}
	svc := NewService(repo)

	_, err := svc.Restock(context.Background(), RestockInput{IngredientID: 1, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidRestockQuantity)

	_, err = svc.Restock(context.Background(), RestockInput{IngredientID: 1, Quantity: -2})
	require.ErrorIs(t, err, ErrInvalidRestockQuantity)

	_, err = svc.Restock(context.Background(), RestockInput{IngredientID: 99, Quantity: 1})
	require.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestAvailabilityService(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[1] = Ingredient{ID: 1, Name: "Flour", PackageSize: 1000, Quantity: 1}
	repo.products[10] = Product{ID: 10, Name: "Empanada", Recipe: []RecipeItem{{ProductID: 10, IngredientID: 1, Quantity: 100}}}
	svc := NewService(repo)

	availability, err := svc.Availability(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, StatusLow, availability.Status)
	require.Equal(t, 10, *availability.MaxProducible)

	_, err = svc.Availability(context.Background(), 404)
	require.ErrorIs(t, err, ErrProductNotFound)
}
