// Package service derives sales reports from completed orders.
package service

import (
	"sort"
	"time"

	"github.com/oapi-codegen/runtime/types"

	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
)

// DefaultTopLimit is the number of best sellers returned when no limit is given.
const DefaultTopLimit = 5

// Range selects orders by the local calendar day they were placed on. Both bounds are
// inclusive; a nil bound is open. Location defaults to UTC.
type Range struct {
	Start    *types.Date
	End      *types.Date
	Location *time.Location
}

func (r Range) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// day truncates t to its calendar day in loc, expressed as a UTC midnight for comparisons.
func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateDay(d types.Date) time.Time {
	y, m, dd := d.Time.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls on a day within the range.
func (r Range) Contains(t time.Time) bool {
	placed := day(t, r.location())
	if r.Start != nil && placed.Before(dateDay(*r.Start)) {
		return false
	}
	if r.End != nil && placed.After(dateDay(*r.End)) {
		return false
	}
	return true
}

// Valid reports whether the range is not inverted.
func (r Range) Valid() bool {
	return r.Start == nil || r.End == nil || !dateDay(*r.End).Before(dateDay(*r.Start))
}

func counted(orders []ordersservice.Order, r Range) []ordersservice.Order {
	out := make([]ordersservice.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == ordersservice.StatusCompleted && r.Contains(o.CreatedAt) {
			out = append(out, o)
		}
	}
	return out
}

// RevenueTotal sums TotalPrice of completed orders in range. Other statuses are ignored.
func RevenueTotal(orders []ordersservice.Order, r Range) int64 {
	var total int64
	for _, o := range counted(orders, r) {
		total += o.TotalPrice
	}
	return total
}

// CompletedCount is the number of completed orders in range.
func CompletedCount(orders []ordersservice.Order, r Range) int {
	return len(counted(orders, r))
}

// ProductSales is the quantity sold of one product name.
type ProductSales struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// TopProducts groups items by product name, sums quantities and returns the best sellers.
// Ties keep the order in which names were first seen. limit <= 0 uses DefaultTopLimit.
func TopProducts(orders []ordersservice.Order, r Range, limit int) []ProductSales {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	index := make(map[string]int)
	sales := make([]ProductSales, 0)
	for _, o := range counted(orders, r) {
		for _, it := range o.Items {
			i, ok := index[it.Name]
			if !ok {
				i = len(sales)
				index[it.Name] = i
				sales = append(sales, ProductSales{Name: it.Name})
			}
			sales[i].Quantity += it.Quantity
		}
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Quantity > sales[j].Quantity })
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales
}

// DailyPoint is the revenue of one calendar day.
type DailyPoint struct {
	Date    types.Date `json:"date"`
	Revenue int64      `json:"revenue"`
	Orders  int        `json:"orders"`
}

// DailyRevenue returns one point per day that had completed orders, oldest first.
func DailyRevenue(orders []ordersservice.Order, r Range) []DailyPoint {
	byDay := make(map[time.Time]*DailyPoint)
	for _, o := range counted(orders, r) {
		d := day(o.CreatedAt, r.location())
		p, ok := byDay[d]
		if !ok {
			p = &DailyPoint{Date: types.Date{Time: d}}
			byDay[d] = p
		}
		p.Revenue += o.TotalPrice
		p.Orders++
	}
	out := make([]DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Time.Before(out[j].Date.Time) })
	return out
}
