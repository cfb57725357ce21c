package models

import (
	"time"
)

// Currency is the baseline's pricing currency. It selects both the
// marketplace list and the inflation reference.
type Currency string

const (
	CurrencySAR Currency = "SAR"
	CurrencyUSD Currency = "USD"
)

// Category is the closed product-category set. Categories drive the base
// demand elasticity, the validator bands, and the zone-velocity multipliers.
type Category string

const (
	CategoryElectronics    Category = "Electronics"
	CategoryAppliances     Category = "Appliances"
	CategoryHomeKitchen    Category = "Home & Kitchen"
	CategoryHealthBeauty   Category = "Health & Beauty"
	CategoryFoodBeverages  Category = "Food & Beverages"
	CategoryGroceries      Category = "Groceries"
	CategoryFashion        Category = "Fashion"
	CategorySportsOutdoors Category = "Sports & Outdoors"
	CategoryToysGames      Category = "Toys & Games"
	CategoryBooks          Category = "Books"
	CategoryAutomotive     Category = "Automotive"
	CategoryOfficeSupplies Category = "Office Supplies"
	CategoryBabyProducts   Category = "Baby Products"
	CategoryPetSupplies    Category = "Pet Supplies"
)

// baseElasticities maps each category to its demand elasticity. Values are
// negative (demand falls as price rises) with magnitude above 1 so the
// monopolist markup formula stays well defined.
var baseElasticities = map[Category]float64{
	CategoryElectronics:    -2.1,
	CategoryAppliances:     -1.9,
	CategoryHomeKitchen:    -1.7,
	CategoryHealthBeauty:   -1.4,
	CategoryFoodBeverages:  -1.3,
	CategoryGroceries:      -1.25,
	CategoryFashion:        -1.6,
	CategorySportsOutdoors: -1.5,
	CategoryToysGames:      -1.8,
	CategoryBooks:          -1.45,
	CategoryAutomotive:     -1.35,
	CategoryOfficeSupplies: -1.55,
	CategoryBabyProducts:   -1.3,
	CategoryPetSupplies:    -1.4,
}

// sizeVariable lists categories whose listings commonly differ in pack size
// or volume, which widens acceptable price bands during validation.
var sizeVariable = map[Category]bool{
	CategoryHealthBeauty:  true,
	CategoryFoodBeverages: true,
	CategoryGroceries:     true,
}

// Categories returns all valid categories.
func Categories() []Category {
	out := make([]Category, 0, len(baseElasticities))
	for c := range baseElasticities {
		out = append(out, c)
	}
	return out
}

// IsValid reports whether c belongs to the closed category set.
func (c Category) IsValid() bool {
	_, ok := baseElasticities[c]
	return ok
}

// BaseElasticity returns the category's demand elasticity.
func (c Category) BaseElasticity() float64 {
	return baseElasticities[c]
}

// IsSizeVariable reports whether the category gets relaxed validation bands.
func (c Category) IsSizeVariable() bool {
	return sizeVariable[c]
}

// ProductBaseline is the merchant's product as priced today. Immutable once
// created; rows are soft-deleted, never removed.
type ProductBaseline struct {
	ID              string     `db:"id" json:"id"`
	ProductName     string     `db:"product_name" json:"product_name"`
	Category        Category   `db:"category" json:"category"`
	CurrentPrice    float64    `db:"current_price" json:"current_price"`
	CurrentQuantity int        `db:"current_quantity" json:"current_quantity"`
	CostPerUnit     float64    `db:"cost_per_unit" json:"cost_per_unit"`
	Currency        Currency   `db:"currency" json:"currency"`
	BaseElasticity  float64    `db:"base_elasticity" json:"base_elasticity"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Validate checks the baseline's constraints and derives the base elasticity
// from the category. Returns a *ValidationError on the first violation.
func (b *ProductBaseline) Validate() error {
	if b.ProductName == "" {
		return &ValidationError{Field: "product_name", Reason: "must not be empty"}
	}
	if !b.Category.IsValid() {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(b.Category)}
	}
	if b.CurrentPrice <= 0 {
		return &ValidationError{Field: "current_price", Reason: "must be positive"}
	}
	if b.CurrentQuantity <= 0 {
		return &ValidationError{Field: "current_quantity", Reason: "must be a positive integer"}
	}
	if b.CostPerUnit <= 0 {
		return &ValidationError{Field: "cost_per_unit", Reason: "must be positive"}
	}
	if b.CostPerUnit >= b.CurrentPrice {
		return &ValidationError{Field: "cost_per_unit", Reason: "must be below current_price"}
	}
	if b.Currency != CurrencySAR && b.Currency != CurrencyUSD {
		return &ValidationError{Field: "currency", Reason: "must be SAR or USD"}
	}

	b.BaseElasticity = b.Category.BaseElasticity()
	return nil
}
