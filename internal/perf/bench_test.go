package perf

import (
	"testing"

	"github.com/tindero-pos/tindero/internal/catalog"
	"github.com/tindero-pos/tindero/internal/payment"
)

// Availability is recomputed on every cart render, so it has to stay cheap
// even for recipe-heavy products.
func BenchmarkComputeAvailability(b *testing.B) {
	product := catalog.Product{ID: 1, Name: "Empanada"}
	ingredients := make(map[int64]catalog.Ingredient, 12)
	for i := int64(1); i <= 12; i++ {
		product.Recipe = append(product.Recipe, catalog.RecipeItem{ProductID: 1, IngredientID: i, Quantity: float64(10 * i)})
		ingredients[i] = catalog.Ingredient{ID: i, PackageSize: 1000, Quantity: 4}
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = catalog.ComputeAvailability(product, ingredients)
	}
}

func BenchmarkValidateSplitPayment(b *testing.B) {
	split := payment.Split{Components: []payment.Component{
		{Method: payment.Cash{Tendered: 60}, Amount: 60},
		{Method: payment.Wallet{Reference: "REF1234567890"}, Amount: 40},
	}}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := payment.Validate(split, 100, nil); err != nil {
			b.Fatal(err)
		}
	}
}
