package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"

	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
)

// ErrInvalidRange is returned when the end date precedes the start date.
var ErrInvalidRange = errors.New("report range end is before its start")

// OrderSource lists a tenant's completed orders.
type OrderSource interface {
	CompletedForTenant(ctx context.Context, tenantID string) ([]ordersservice.Order, error)
}

// Summary is the report shown on the store admin dashboard.
type Summary struct {
	Revenue        int64
	CompletedCount int
	TopProducts    []ProductSales
	Daily          []DailyPoint
}

// Service builds reports for one tenant at a time.
type Service struct {
	orders OrderSource
	loc    *time.Location
}

// New constructs a Service. Calendar days are evaluated in loc.
func New(orders OrderSource, loc *time.Location) *Service {
	if orders == nil {
		panic("order source is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{orders: orders, loc: loc}
}

func (s *Service) load(ctx context.Context, tenantID string, r *Range) ([]ordersservice.Order, error) {
	if !r.Valid() {
		return nil, ErrInvalidRange
	}
	if r.Location == nil {
		r.Location = s.loc
	}
	orders, err := s.orders.CompletedForTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load completed orders: %w", err)
	}
	return orders, nil
}

// Summary computes revenue, completed count, best sellers and the daily series.
func (s *Service) Summary(ctx context.Context, tenantID string, r Range, limit int) (Summary, error) {
	orders, err := s.load(ctx, tenantID, &r)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Revenue:        RevenueTotal(orders, r),
		CompletedCount: CompletedCount(orders, r),
		TopProducts:    TopProducts(orders, r, limit),
		Daily:          DailyRevenue(orders, r),
	}, nil
}

// Export writes the completed orders in range and the summary as an xlsx workbook.
func (s *Service) Export(ctx context.Context, tenantID string, r Range, w io.Writer) error {
	orders, err := s.load(ctx, tenantID, &r)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add orders sheet: %w", err)
	}
	addRow(sheet, "Order ID", "Date", "Customer", "Items", "Total")
	for _, o := range orders {
		if o.Status != ordersservice.StatusCompleted || !r.Contains(o.CreatedAt) {
			continue
		}
		row := sheet.AddRow()
		row.AddCell().SetString(o.ID.String())
		row.AddCell().SetString(o.CreatedAt.In(r.location()).Format("2006-01-02 15:04"))
		row.AddCell().SetString(o.CustomerEmail)
		qty := 0
		for _, it := range o.Items {
			qty += it.Quantity
		}
		row.AddCell().SetInt(qty)
		row.AddCell().SetInt64(o.TotalPrice)
	}

	summary, err := file.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	revenue := summary.AddRow()
	revenue.AddCell().SetString("Revenue")
	revenue.AddCell().SetInt64(RevenueTotal(orders, r))
	count := summary.AddRow()
	count.AddCell().SetString("Completed orders")
	count.AddCell().SetInt(CompletedCount(orders, r))
	summary.AddRow()
	addRow(summary, "Product", "Quantity")
	for _, p := range TopProducts(orders, r, DefaultTopLimit) {
		row := summary.AddRow()
		row.AddCell().SetString(p.Name)
		row.AddCell().SetInt(p.Quantity)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
