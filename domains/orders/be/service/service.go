package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cartsservice "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/requesttrace"
)

// Domain sentinel errors.
var (
	ErrNotFound         = errors.New("order not found")
	ErrStatusChanged    = errors.New("order status changed concurrently")
	ErrCustomerOnly     = errors.New("only customers can place orders")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoContactChannel = errors.New("store has no WhatsApp contact configured")
	ErrStoreUnavailable = errors.New("store is not accepting orders")
	ErrContactClosed    = errors.New("order is no longer open for questions")
	ErrInvoiceNotReady  = errors.New("invoice is available once the order is completed")
)

// Item is one line of the immutable snapshot taken at checkout.
type Item struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
}

// Subtotal is unit price times quantity.
func (i Item) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order is a placed order. Only Status and UpdatedAt change after creation.
type Order struct {
	ID            uuid.UUID
	TenantID      string
	CustomerID    string
	CustomerEmail string
	Items         []Item
	TotalPrice    int64
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListFilter narrows tenant order listings.
type ListFilter struct {
	Status *Status
}

// Repository abstracts order persistence.
//
// UpdateStatus is the only status writer. It is a compare-and-set on the previous status
// (UPDATE ... WHERE status = change.From()), not a last-writer-wins write: when two admins
// advance the same order, one wins and the other gets ErrStatusChanged, which the handler
// answers with 409 so the stale board can be refreshed.
type Repository interface {
	Create(ctx context.Context, order Order) (Order, error)
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByTenant(ctx context.Context, tenantID string, filter ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange, at time.Time) (Order, error)
}

// Carts is the slice of the carts service used at checkout.
type Carts interface {
	Current(ctx context.Context, session string) (cartsservice.Cart, error)
	Clear(ctx context.Context, session string) (cartsservice.Cart, error)
}

// Stores resolves the tenant an order belongs to.
type Stores interface {
	Get(ctx context.Context, id string) (tenantsservice.Tenant, error)
	PublicStore(ctx context.Context, id string) (tenantsservice.Tenant, error)
}

// Placed is the payload handed to notifiers after checkout.
type Placed struct {
	Order     Order
	StoreName string
	WhatsApp  string
	Message   string
	Link      string
}

// Notifier delivers the new-order summary to the store. Delivery is best-effort.
type Notifier interface {
	OrderPlaced(ctx context.Context, placed Placed) error
}

// EventKind classifies feed events.
type EventKind string

const (
	EventCreated       EventKind = "order.created"
	EventStatusChanged EventKind = "order.status_changed"
)

// Event is pushed to live order feeds.
type Event struct {
	Kind       EventKind `json:"kind"`
	OrderID    string    `json:"orderId"`
	TenantID   string    `json:"tenantId"`
	CustomerID string    `json:"customerId"`
	Status     Status    `json:"status"`
	Label      string    `json:"label"`
	Total      int64     `json:"total"`
	At         time.Time `json:"at"`
}

// Publisher fans events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder receives order metrics.
type Recorder interface {
	OrderCreated()
	OrderTransition(from, to string, ok bool)
	NotificationFailed()
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated()                        {}
func (nopRecorder) OrderTransition(string, string, bool) {}
func (nopRecorder) NotificationFailed()                  {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// Deps groups the collaborators of Service.
type Deps struct {
	Orders    Repository
	Carts     Carts
	Stores    Stores
	Notifier  Notifier
	Publisher Publisher
	Recorder  Recorder
	Logger    *zap.Logger
}

// Service implements checkout and the order lifecycle.
type Service struct {
	orders    Repository
	carts     Carts
	stores    Stores
	notifier  Notifier
	publisher Publisher
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// New constructs the orders service.
func New(deps Deps) *Service {
	if deps.Orders == nil {
		panic("order repository is required")
	}
	if deps.Carts == nil {
		panic("cart service is required")
	}
	if deps.Stores == nil {
		panic("store lookup is required")
	}
	if deps.Notifier == nil {
		panic("notifier is required")
	}
	if deps.Logger == nil {
		panic("logger is required")
	}
	svc := &Service{
		orders:    deps.Orders,
		carts:     deps.Carts,
		stores:    deps.Stores,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if svc.publisher == nil {
		svc.publisher = nopPublisher{}
	}
	if svc.recorder == nil {
		svc.recorder = nopRecorder{}
	}
	return svc
}

// WithClock overrides the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Placement is the result of a successful checkout.
type Placement struct {
	Order Order
	// WhatsAppLink opens a chat with the store prefilled with the order summary.
	WhatsAppLink string
}

// Checkout turns the session's cart into a Pending order. Notification and feed delivery
// are best-effort and never undo the order.
func (s *Service) Checkout(ctx context.Context, customer identity.Profile, cartSession string) (Placement, error) {
	if customer.Role != identity.RoleCustomer {
		return Placement{}, ErrCustomerOnly
	}
	cart, err := s.carts.Current(ctx, cartSession)
	if err != nil {
		return Placement{}, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return Placement{}, ErrEmptyCart
	}

	store, err := s.stores.PublicStore(ctx, cart.BoundTenantID)
	if err != nil {
		if errors.Is(err, tenantsservice.ErrInactive) || errors.Is(err, tenantsservice.ErrTrialExpired) || errors.Is(err, tenantsservice.ErrNotFound) {
			return Placement{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Placement{}, fmt.Errorf("load store: %w", err)
	}
	if !store.HasContactChannel() {
		return Placement{}, ErrNoContactChannel
	}

	now := s.now().UTC()
	order := Order{
		ID:            uuid.New(),
		TenantID:      cart.BoundTenantID,
		CustomerID:    customer.ID,
		CustomerEmail: customer.Email,
		Items:         snapshot(cart),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.TotalPrice = totalOf(order.Items)

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return Placement{}, fmt.Errorf("create order: %w", err)
	}
	s.recorder.OrderCreated()

	logger := s.logger.With(zap.String("order_id", created.ID.String()), zap.String("tenant_id", created.TenantID))
	text := NewOrderMessage(created)
	link := WhatsAppLink(store.WhatsAppContact, text)

	if err := s.notifier.OrderPlaced(ctx, Placed{
		Order:     created,
		StoreName: store.Name,
		WhatsApp:  tenantsservice.NormalizeWhatsApp(store.WhatsAppContact),
		Message:   text,
		Link:      link,
	}); err != nil {
		s.recorder.NotificationFailed()
		logger.Warn("order notification failed", zap.Error(err))
	}
	s.publish(ctx, logger, EventCreated, created)

	if _, err := s.carts.Clear(ctx, cartSession); err != nil {
		logger.Warn("clear cart after checkout", zap.Error(err))
	}

	return Placement{Order: created, WhatsAppLink: link}, nil
}

func snapshot(cart cartsservice.Cart) []Item {
	items := make([]Item, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		items = append(items, Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return items
}

func totalOf(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// AdvanceStatus moves a tenant's order through the transition table.
func (s *Service) AdvanceStatus(ctx context.Context, tenantID string, id uuid.UUID, to Status) (Order, error) {
	order, err := s.ForTenant(ctx, tenantID, id)
	if err != nil {
		return Order{}, err
	}
	change, err := Transition(order.Status, to)
	if err != nil {
		s.recorder.OrderTransition(string(order.Status), string(to), false)
		return Order{}, err
	}
	updated, err := s.orders.UpdateStatus(ctx, id, change, s.now().UTC())
	if err != nil {
		s.recorder.OrderTransition(string(order.Status), string(to), false)
		return Order{}, err
	}
	s.recorder.OrderTransition(string(change.From()), string(change.To()), true)
	logger := s.logger.With(zap.String("order_id", id.String()))
	audit := requesttrace.FromContextOrSystem(ctx)
	actor := zap.String("actor_kind", string(audit.ActorKind))
	if audit.UserID != nil {
		actor = zap.String("actor_id", *audit.UserID)
	}
	logger.Info("order status changed",
		zap.String("from", string(change.From())),
		zap.String("to", string(change.To())),
		actor,
		zap.String("request_id", audit.RequestID),
	)
	s.publish(ctx, logger, EventStatusChanged, updated)
	return updated, nil
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, kind EventKind, order Order) {
	event := Event{
		Kind:       kind,
		OrderID:    order.ID.String(),
		TenantID:   order.TenantID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Label:      order.Status.Label(),
		Total:      order.TotalPrice,
		At:         order.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish order event", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// ForTenant returns an order owned by tenantID; other tenants' orders are reported as missing.
func (s *Service) ForTenant(ctx context.Context, tenantID string, id uuid.UUID) (Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.TenantID != tenantID {
		return Order{}, ErrNotFound
	}
	return order, nil
}

// ForCustomer returns an order placed by customerID; other customers' orders are reported as missing.
func (s *Service) ForCustomer(ctx context.Context, customerID string, id uuid.UUID) (Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.CustomerID != customerID {
		return Order{}, ErrNotFound
	}
	return order, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListForTenant returns the tenant's orders, newest first.
func (s *Service) ListForTenant(ctx context.Context, tenantID string, filter ListFilter) ([]Order, error) {
	return s.orders.ListByTenant(ctx, tenantID, filter)
}

// CompletedForTenant returns the orders that count towards reports.
func (s *Service) CompletedForTenant(ctx context.Context, tenantID string) ([]Order, error) {
	completed := StatusCompleted
	return s.orders.ListByTenant(ctx, tenantID, ListFilter{Status: &completed})
}

// Column is one status lane of the admin board.
type Column struct {
	Status Status
	Orders []Order
}

// Board groups the tenant's orders by status in BoardOrder. Every status has a column.
func (s *Service) Board(ctx context.Context, tenantID string) ([]Column, error) {
	orders, err := s.orders.ListByTenant(ctx, tenantID, ListFilter{})
	if err != nil {
		return nil, err
	}
	byStatus := make(map[Status][]Order, len(BoardOrder))
	for _, o := range orders {
		byStatus[o.Status] = append(byStatus[o.Status], o)
	}
	columns := make([]Column, 0, len(BoardOrder))
	for _, status := range BoardOrder {
		columns = append(columns, Column{Status: status, Orders: byStatus[status]})
	}
	return columns, nil
}

// ContactLink builds a WhatsApp link for a customer asking about an open order.
func (s *Service) ContactLink(ctx context.Context, customerID string, id uuid.UUID) (string, error) {
	order, err := s.ForCustomer(ctx, customerID, id)
	if err != nil {
		return "", err
	}
	if !order.Status.AllowsContact() {
		return "", ErrContactClosed
	}
	store, err := s.stores.Get(ctx, order.TenantID)
	if err != nil {
		return "", fmt.Errorf("load store: %w", err)
	}
	if !store.HasContactChannel() {
		return "", ErrNoContactChannel
	}
	return WhatsAppLink(store.WhatsAppContact, InquiryMessage(order, store.Name)), nil
}

// Viewable returns the order when the profile may see it: the customer who placed it or an
// admin of the store that received it.
func (s *Service) Viewable(ctx context.Context, viewer identity.Profile, id uuid.UUID) (Order, error) {
	switch viewer.Role {
	case identity.RoleCustomer:
		return s.ForCustomer(ctx, viewer.ID, id)
	case identity.RoleStoreAdmin:
		return s.ForTenant(ctx, viewer.Tenant(), id)
	case identity.RoleSuperAdmin:
		return Order{}, ErrNotFound
	default:
		return Order{}, ErrNotFound
	}
}
