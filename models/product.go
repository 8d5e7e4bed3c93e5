package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotSize is the closed set of garment sizes a lot can be listed under.
type LotSize string

const (
	SizeS   LotSize = "S"
	SizeM   LotSize = "M"
	SizeL   LotSize = "L"
	SizeXL  LotSize = "XL"
	SizeXXL LotSize = "XXL"
	Size3XL LotSize = "3XL"
	Size4XL LotSize = "4XL"
	Size5XL LotSize = "5XL"
	Size6XL LotSize = "6XL"
	Size7XL LotSize = "7XL"
	Size8XL LotSize = "8XL"
)

var lotSizes = map[LotSize]struct{}{
	SizeS: {}, SizeM: {}, SizeL: {}, SizeXL: {}, SizeXXL: {},
	Size3XL: {}, Size4XL: {}, Size5XL: {}, Size6XL: {}, Size7XL: {}, Size8XL: {},
}

// Valid reports whether s is one of the allowed sizes.
func (s LotSize) Valid() bool {
	_, ok := lotSizes[s]
	return ok
}

// Lot is one size/quantity pair of a product's inventory. Duplicate sizes
// within one product are permitted.
type Lot struct {
	Size     LotSize `bson:"size" json:"size"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	Price           float64            `bson:"price" json:"price"`
	DiscountedPrice *float64           `bson:"discountedPrice" json:"discountedPrice"`
	Images          []string           `bson:"images" json:"images"`
	LotInfo         []Lot              `bson:"lotInfo" json:"lotInfo"`
}
