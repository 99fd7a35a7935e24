package service

import "context"

// Confirmer decides whether a cart bound to another store may be cleared.
type Confirmer interface {
	ConfirmClear(ctx context.Context, cart Cart, targetTenantID string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, cart Cart, targetTenantID string) bool

func (f ConfirmFunc) ConfirmClear(ctx context.Context, cart Cart, targetTenantID string) bool {
	return f(ctx, cart, targetTenantID)
}

// AutoDeny never clears.
var AutoDeny Confirmer = ConfirmFunc(func(context.Context, Cart, string) bool { return false })

// AutoConfirm always clears.
var AutoConfirm Confirmer = ConfirmFunc(func(context.Context, Cart, string) bool { return true })

// NavigationOutcome is the result of opening another store's storefront.
type NavigationOutcome string

const (
	// NavigationProceed means there was nothing to clear.
	NavigationProceed NavigationOutcome = "proceed"
	// NavigationCleared means the customer confirmed and the cart was emptied.
	NavigationCleared NavigationOutcome = "cleared"
	// NavigationCancelled means the customer declined; cart and location are unchanged.
	NavigationCancelled NavigationOutcome = "cancelled"
)

// Navigate applies the cross-store guard. A declined confirmation returns the cart untouched.
func Navigate(ctx context.Context, cart Cart, targetTenantID string, confirmer Confirmer) (NavigationOutcome, Cart) {
	if !cart.HasConflict(targetTenantID) {
		return NavigationProceed, cart
	}
	if confirmer == nil || !confirmer.ConfirmClear(ctx, cart, targetTenantID) {
		return NavigationCancelled, cart
	}
	return NavigationCleared, cart.Clear()
}
