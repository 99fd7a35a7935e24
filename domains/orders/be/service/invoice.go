package service

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

//go:embed invoice.html.tmpl
var invoiceSource string

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"rupiah": FormatRupiah,
	"date":   func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(invoiceSource))

type invoiceView struct {
	Order     Order
	StoreName string
}

// Invoice renders the HTML invoice of a completed order for its customer or store admin.
func (s *Service) Invoice(ctx context.Context, viewer identity.Profile, id uuid.UUID, w io.Writer) error {
	order, err := s.Viewable(ctx, viewer, id)
	if err != nil {
		return err
	}
	if order.Status != StatusCompleted {
		return ErrInvoiceNotReady
	}
	store, err := s.stores.Get(ctx, order.TenantID)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	return RenderInvoice(w, order, store.Name)
}

// RenderInvoice writes the invoice document.
func RenderInvoice(w io.Writer, order Order, storeName string) error {
	if storeName == "" {
		storeName = "Toko"
	}
	if err := invoiceTemplate.Execute(w, invoiceView{Order: order, StoreName: storeName}); err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}
	return nil
}
