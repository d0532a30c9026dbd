package catalog

import (
	"fmt"
	"math"
)

// Availability is the advisory read-side result for one product. It shapes
// the UI before a sale; the commit pipeline does not trust it and performs
// its own conditional decrement under row locks.
type Availability struct {
	ProductID            int64
	Status               StockStatus
	MaxProducible        *int
	LimitingIngredientID int64
	Missing              []IngredientRef
	Low                  []IngredientRef
	Warnings             []string
}

// IngredientRef names an ingredient in an advisory list.
type IngredientRef struct {
	ID   int64
	Name string
}

// Unbounded reports whether the product has no stock constraint.
func (a Availability) Unbounded() bool {
	return a.MaxProducible == nil
}

// ComputeAvailability calculates how many units of product are producible
// from the given ingredients. Ingredients are keyed by ID and must contain
// every ingredient the product references; absent or invalid ingredients
// degrade to warnings, never to a panic or a silent default.
func ComputeAvailability(product Product, ingredients map[int64]Ingredient) Availability {
	result := Availability{ProductID: product.ID, Status: StatusAvailable}

	switch {
	case product.TrackStock:
		max := int(math.Floor(product.Quantity))
		if max < 0 {
			max = 0
		}
		result.MaxProducible = &max
		result.Status = StatusForProducible(max)
		return result

	case product.LinkedIngredientID != 0:
		ing, ok := ingredients[product.LinkedIngredientID]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("ingredient %d missing", product.LinkedIngredientID))
			return zeroProducible(result)
		}
		total, err := ing.TotalBaseUnits()
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("ingredient %q has invalid package size", ing.Name))
			return zeroProducible(result)
		}
		max := int(math.Floor(total))
		result.MaxProducible = &max
		result.LimitingIngredientID = ing.ID
		result.Status = StatusForProducible(max)
		if total <= 0 {
			result.Missing = append(result.Missing, IngredientRef{ID: ing.ID, Name: ing.Name})
		}
		return result

	case len(product.Recipe) > 0:
		return computeRecipeAvailability(product, ingredients, result)
	}

	// No stock mechanism at all: always available, unbounded.
	return result
}

func computeRecipeAvailability(product Product, ingredients map[int64]Ingredient, result Availability) Availability {
	minPossible := math.Inf(1)
	validLines := 0
	var lowCandidates []IngredientRef

	for _, line := range product.Recipe {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("ingredient %d missing", line.IngredientID))
			continue
		}
		total, err := ing.TotalBaseUnits()
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("ingredient %q has invalid package size", ing.Name))
			continue
		}
		validLines++
		if total <= 0 {
			result.Missing = append(result.Missing, IngredientRef{ID: ing.ID, Name: ing.Name})
		}
		// A non-positive requirement cannot constrain production.
		if line.Quantity <= 0 {
			continue
		}
		possible := math.Floor(total / line.Quantity)
		if possible <= 20 {
			lowCandidates = append(lowCandidates, IngredientRef{ID: ing.ID, Name: ing.Name})
		}
		// Ties keep the first encountered ingredient.
		if possible < minPossible {
			minPossible = possible
			result.LimitingIngredientID = ing.ID
		}
	}

	if validLines == 0 {
		return zeroProducible(result)
	}
	if math.IsInf(minPossible, 1) {
		// Every valid line was unconstrained.
		return result
	}
	max := int(minPossible)
	result.MaxProducible = &max
	result.Status = StatusForProducible(max)
	if len(result.Missing) == 0 {
		result.Low = lowCandidates
	}
	return result
}

func zeroProducible(result Availability) Availability {
	zero := 0
	result.MaxProducible = &zero
	result.Status = StatusOut
	return result
}
