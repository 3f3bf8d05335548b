package model

// Item is a catalog entry in the pantry.  Stock is decremented by
// checkouts and incremented by restocks; MaxCheckout caps the quantity a
// single transaction line may take.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique, case-sensitive item name.
//  Stock       – units currently on the shelf (never negative).
//  MaxCheckout – upper bound for one checkout line.
type Item struct {
	ID          uint64 `json:"id"`           // items.id
	Name        string `json:"name"`         // items.name
	Stock       int    `json:"stock"`        // items.stock
	MaxCheckout int    `json:"max_checkout"` // items.max_checkout
}
