package catalog

import (
	"errors"
	"time"

	"github.com/tindero-pos/tindero/internal/units"
)

// StockStatus buckets producible quantity for UI surfacing.
type StockStatus string

const (
	// StatusOut means nothing can be produced.
	StatusOut StockStatus = "out"
	// StatusCritical means 1-5 units producible.
	StatusCritical StockStatus = "critical"
	// StatusLow means 6-20 units producible.
	StatusLow StockStatus = "low"
	// StatusAvailable means more than 20 units producible, or unbounded.
	StatusAvailable StockStatus = "available"
)

// StatusForProducible maps a producible count to its status bucket.
func StatusForProducible(max int) StockStatus {
	switch {
	case max <= 0:
		return StatusOut
	case max <= 5:
		return StatusCritical
	case max <= 20:
		return StatusLow
	default:
		return StatusAvailable
	}
}

// Product is a sellable item. It carries at most one of direct stock
// tracking, a linked ingredient, or a recipe; with none it is always
// available.
type Product struct {
	ID                 int64
	Name               string
	Price              float64
	TrackStock         bool
	Quantity           float64
	LinkedIngredientID int64
	Recipe             []RecipeItem
}

// Ingredient is a raw material purchased in packages and consumed in base
// units.
type Ingredient struct {
	ID             int64
	Name           string
	BaseUnit       string
	PackageUnit    string
	PackageSize    float64
	CostPerPackage float64
	Quantity       float64
	ParLevel       float64
	UpdatedAt      time.Time
}

// TotalBaseUnits returns the stock on hand expressed in base units.
func (i Ingredient) TotalBaseUnits() (float64, error) {
	if i.PackageSize <= 0 {
		return 0, units.ErrInvalidPackageSize
	}
	return units.TotalBaseUnits(i.Quantity, i.PackageSize), nil
}

// CostPerBaseUnit derives the unit cost from the package cost.
func (i Ingredient) CostPerBaseUnit() (float64, error) {
	return units.CostPerBaseUnit(i.CostPerPackage, i.PackageSize)
}

// RecipeItem links a product to one ingredient it consumes, in base units
// per product unit sold.
type RecipeItem struct {
	ProductID    int64
	IngredientID int64
	Quantity     float64
}

// RestockInput describes an inbound package delivery for one ingredient.
type RestockInput struct {
	IngredientID   int64
	Quantity       float64
	CostPerPackage float64
	PackageSize    float64
	ActorID        int64
	Note           string
}

// RestockResult reports the before/after state of a restock.
type RestockResult struct {
	Ingredient Ingredient
	PrevQty    float64
	NewQty     float64
	ChangeID   string
	ParReached bool
}

// HistoryEntry is one append-only audit row for an ingredient mutation.
// All mutations caused by a single sale or restock share one ChangeID.
type HistoryEntry struct {
	IngredientID int64
	ChangeID     string
	Field        string
	OldValue     float64
	NewValue     float64
	Source       string
	Reason       string
	ActorID      int64
	At           time.Time
}

// ErrIngredientNotFound indicates a missing ingredient row.
var ErrIngredientNotFound = errors.New("catalog: ingredient not found")

// ErrProductNotFound indicates a missing product row.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrInvalidRestockQuantity indicates a non-positive restock quantity.
var ErrInvalidRestockQuantity = errors.New("catalog: restock quantity must be greater than zero")
