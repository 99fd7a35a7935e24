package service

import (
	"fmt"
	"strings"
)

// RuleError reports a violated cart rule. No mutation happens when one is returned.
type RuleError struct {
	Rule   string
	Detail string
}

func (e *RuleError) Error() string {
	return e.Detail
}

// Is matches any RuleError with the same rule, so wrapped variants compare equal to the sentinels.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Rule == e.Rule
}

// Cart rule sentinels.
var (
	ErrCrossTenant    = &RuleError{Rule: "same-tenant-only", Detail: "a cart holds products from one store only"}
	ErrInvalidProduct = &RuleError{Rule: "invalid-product", Detail: "product id and store are required"}
	ErrNotInCart      = &RuleError{Rule: "not-in-cart", Detail: "product is not in the cart"}
)

// Product is the catalog view a cart line is built from.
type Product struct {
	ID       string
	TenantID string
	Name     string
	Price    int64
	Stock    int
}

// Line is one product in the cart. UnitPrice is captured when the line is first added.
type Line struct {
	ProductID string `json:"productId"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
}

// Cart is an ordered list of lines bound to a single tenant. BoundTenantID survives removals
// and Clear so an empty cart still remembers where the customer last shopped.
type Cart struct {
	Lines         []Line `json:"lines"`
	BoundTenantID string `json:"boundTenantId,omitempty"`
}

func (c Cart) clone() Cart {
	out := Cart{BoundTenantID: c.BoundTenantID, Lines: make([]Line, len(c.Lines))}
	copy(out.Lines, c.Lines)
	return out
}

func (c Cart) index(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Add binds an empty cart to the product's tenant, increments an existing line or appends a
// new one with quantity 1. A product from another tenant is rejected with ErrCrossTenant.
func (c Cart) Add(p Product) (Cart, error) {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.TenantID) == "" {
		return c, ErrInvalidProduct
	}
	if !c.IsEmpty() && p.TenantID != c.BoundTenantID {
		return c, &RuleError{
			Rule:   ErrCrossTenant.Rule,
			Detail: fmt.Sprintf("cart belongs to store %s; clear it before adding products from store %s", c.BoundTenantID, p.TenantID),
		}
	}

	next := c.clone()
	if next.IsEmpty() {
		next.BoundTenantID = p.TenantID
	}
	if i := next.index(p.ID); i >= 0 {
		next.Lines[i].Quantity++
		next.Lines[i].Stock = p.Stock
		return next, nil
	}
	next.Lines = append(next.Lines, Line{
		ProductID: p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
		Stock:     p.Stock,
	})
	return next, nil
}

// Remove deletes the line. The tenant binding is kept.
func (c Cart) Remove(productID string) Cart {
	next := c.clone()
	if i := next.index(productID); i >= 0 {
		next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
	}
	return next
}

// SetQuantity overwrites the quantity exactly; qty <= 0 removes the line. Stock is not enforced here.
func (c Cart) SetQuantity(productID string, qty int) (Cart, error) {
	i := c.index(productID)
	if i < 0 {
		return c, ErrNotInCart
	}
	if qty <= 0 {
		return c.Remove(productID), nil
	}
	next := c.clone()
	next.Lines[i].Quantity = qty
	return next, nil
}

// Clear empties the lines and keeps BoundTenantID.
func (c Cart) Clear() Cart {
	return Cart{Lines: []Line{}, BoundTenantID: c.BoundTenantID}
}

// HasConflict reports whether opening targetTenantID's store would require clearing the cart.
func (c Cart) HasConflict(targetTenantID string) bool {
	return !c.IsEmpty() && c.BoundTenantID != targetTenantID
}

// Total is the sum of unit price times quantity.
func (c Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

// Count is the number of units across all lines.
func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}
