// Package units converts between ingredient purchase units (packages) and
// recipe units (base units).
package units

import "errors"

// ErrInvalidPackageSize indicates a package size of zero or less. An
// ingredient carrying one cannot participate in cost or availability
// calculation; callers surface it as a warning rather than defaulting.
var ErrInvalidPackageSize = errors.New("units: package size must be greater than zero")

// CostPerBaseUnit derives the cost of one base unit from the package cost.
func CostPerBaseUnit(costPerPackage, packageSize float64) (float64, error) {
	if packageSize <= 0 {
		return 0, ErrInvalidPackageSize
	}
	return costPerPackage / packageSize, nil
}

// TotalBaseUnits converts a package quantity into base units.
func TotalBaseUnits(quantity, packageSize float64) float64 {
	return quantity * packageSize
}

// RecipeLineCost prices the base units consumed by one recipe line.
func RecipeLineCost(quantityUsed, costPerBaseUnit float64) float64 {
	return quantityUsed * costPerBaseUnit
}

// PackagesForBaseUnits converts a base-unit amount back into packages.
func PackagesForBaseUnits(baseUnits, packageSize float64) (float64, error) {
	if packageSize <= 0 {
		return 0, ErrInvalidPackageSize
	}
	return baseUnits / packageSize, nil
}
