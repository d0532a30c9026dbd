package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v int) *int { return &v }

func TestStatusBoundaries(t *testing.T) {
	require.Equal(t, StatusOut, StatusForProducible(0))
	require.Equal(t, StatusCritical, StatusForProducible(1))
	require.Equal(t, StatusCritical, StatusForProducible(5))
	require.Equal(t, StatusLow, StatusForProducible(6))
	require.Equal(t, StatusLow, StatusForProducible(20))
	require.Equal(t, StatusAvailable, StatusForProducible(21))
}

func TestAvailabilityUnbounded(t *testing.T) {
	got := ComputeAvailability(Product{ID: 1, Name: "Bottled Water"}, nil)
	require.Equal(t, StatusAvailable, got.Status)
	require.True(t, got.Unbounded())
	require.Empty(t, got.Warnings)
}

func TestAvailabilityDirectStock(t *testing.T) {
	got := ComputeAvailability(Product{ID: 1, TrackStock: true, Quantity: 4}, nil)
	require.Equal(t, StatusCritical, got.Status)
	require.Equal(t, ptr(4), got.MaxProducible)
}

func TestAvailabilityLinkedIngredient(t *testing.T) {
	ingredients := map[int64]Ingredient{
		7: {ID: 7, Name: "Empanada", PackageSize: 12, Quantity: 2},
	}
	got := ComputeAvailability(Product{ID: 1, LinkedIngredientID: 7}, ingredients)
	require.Equal(t, ptr(24), got.MaxProducible)
	require.Equal(t, int64(7), got.LimitingIngredientID)
	require.Equal(t, StatusAvailable, got.Status)
}

func TestAvailabilityRecipeLimitingIngredient(t *testing.T) {
	ingredients := map[int64]Ingredient{
		1: {ID: 1, Name: "Flour", PackageSize: 1000, Quantity: 2},  // 2000 g
		2: {ID: 2, Name: "Cheese", PackageSize: 500, Quantity: 1},  // 500 g
		3: {ID: 3, Name: "Oil", PackageSize: 1000, Quantity: 10},   // 10 L
	}
	product := Product{ID: 9, Recipe: []RecipeItem{
		{IngredientID: 1, Quantity: 100},
		{IngredientID: 2, Quantity: 50},
		{IngredientID: 3, Quantity: 10},
	}}
	got := ComputeAvailability(product, ingredients)
	require.Equal(t, ptr(10), got.MaxProducible)
	require.Equal(t, int64(2), got.LimitingIngredientID)
	require.Equal(t, StatusLow, got.Status)
	require.Empty(t, got.Missing)
	// Flour (20) and cheese (10) both sit at or under the low threshold.
	require.Len(t, got.Low, 2)
}

func TestAvailabilityRecipeTieKeepsFirst(t *testing.T) {
	ingredients := map[int64]Ingredient{
		1: {ID: 1, Name: "A", PackageSize: 10, Quantity: 1},
		2: {ID: 2, Name: "B", PackageSize: 10, Quantity: 1},
	}
	product := Product{ID: 9, Recipe: []RecipeItem{
		{IngredientID: 1, Quantity: 2},
		{IngredientID: 2, Quantity: 2},
	}}
	got := ComputeAvailability(product, ingredients)
	require.Equal(t, ptr(5), got.MaxProducible)
	require.Equal(t, int64(1), got.LimitingIngredientID)
}

func TestAvailabilityRecipeZeroRequirementUnconstrained(t *testing.T) {
	ingredients := map[int64]Ingredient{
		1: {ID: 1, Name: "Garnish", PackageSize: 10, Quantity: 0},
	}
	product := Product{ID: 9, Recipe: []RecipeItem{{IngredientID: 1, Quantity: 0}}}
	got := ComputeAvailability(product, ingredients)
	require.True(t, got.Unbounded())
	require.Equal(t, StatusAvailable, got.Status)
}

func TestAvailabilityMissingIngredientList(t *testing.T) {
	ingredients := map[int64]Ingredient{
		1: {ID: 1, Name: "Flour", PackageSize: 1000, Quantity: 0},
		2: {ID: 2, Name: "Cheese", PackageSize: 500, Quantity: 2},
	}
	product := Product{ID: 9, Recipe: []RecipeItem{
		{IngredientID: 1, Quantity: 100},
		{IngredientID: 2, Quantity: 50},
	}}
	got := ComputeAvailability(product, ingredients)
	require.Equal(t, ptr(0), got.MaxProducible)
	require.Equal(t, StatusOut, got.Status)
	require.Equal(t, []IngredientRef{{ID: 1, Name: "Flour"}}, got.Missing)
	// Low list is suppressed while something is fully missing.
	require.Empty(t, got.Low)
}

func TestAvailabilityInvalidPackageSizeSkipped(t *testing.T) {
	ingredients := map[int64]Ingredient{
		1: {ID: 1, Name: "Broken", PackageSize: 0, Quantity: 5},
		2: {ID: 2, Name: "Cheese", PackageSize: 500, Quantity: 2},
	}
	product := Product{ID: 9, Recipe: []RecipeItem{
		{IngredientID: 1, Quantity: 100},
		{IngredientID: 2, Quantity: 50},
	}}
	got := ComputeAvailability(product, ingredients)
	require.Len(t, got.Warnings, 1)
	require.Equal(t, ptr(20), got.MaxProducible)
	require.Equal(t, int64(2), got.LimitingIngredientID)
}

func TestAvailabilityAllIngredientsInvalid(t *testing.T) {
	ingredients := map[int64]Ingredient{
		1: {ID: 1, Name: "Broken", PackageSize: -1, Quantity: 5},
	}
	product := Product{ID: 9, Recipe: []RecipeItem{{IngredientID: 1, Quantity: 10}}}
	got := ComputeAvailability(product, ingredients)
	require.Equal(t, StatusOut, got.Status)
	require.Equal(t, ptr(0), got.MaxProducible)
	require.NotEmpty(t, got.Warnings)
}

func TestAvailabilityLinkedInvalidPackageSize(t *testing.T) {
	ingredients := map[int64]Ingredient{
		7: {ID: 7, Name: "Empanada", PackageSize: 0, Quantity: 2},
	}
	got := ComputeAvailability(Product{ID: 1, LinkedIngredientID: 7}, ingredients)
	require.Equal(t, StatusOut, got.Status)
	require.Equal(t, ptr(0), got.MaxProducible)
	require.NotEmpty(t, got.Warnings)
}
