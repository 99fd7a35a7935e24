package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/require"

	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

func completed(at time.Time, items ...ordersservice.Item) ordersservice.Order {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return ordersservice.Order{ID: uuid.New(), Items: items, TotalPrice: total, Status: ordersservice.StatusCompleted, CreatedAt: at}
}

func item(name string, price int64, qty int) ordersservice.Item {
	return ordersservice.Item{Name: name, UnitPrice: price, Quantity: qty}
}

func date(y int, m time.Month, d int) *types.Date {
	return &types.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func TestEmptyInputs(t *testing.T) {
	t.Parallel()

	require.Zero(t, RevenueTotal(nil, Range{}))
	require.Empty(t, TopProducts(nil, Range{}, 5))
	require.NotNil(t, TopProducts(nil, Range{}, 5))
	require.Zero(t, CompletedCount(nil, Range{}))
	require.Empty(t, DailyRevenue(nil, Range{}))
}

func TestSingleOrder(t *testing.T) {
	t.Parallel()

	orders := []ordersservice.Order{completed(time.Now(), item("A", 1000, 2))}
	require.Equal(t, int64(2000), RevenueTotal(orders, Range{}))
	require.Equal(t, []ProductSales{{Name: "A", Quantity: 2}}, TopProducts(orders, Range{}, 5))
}

func TestOnlyCompletedOrdersCount(t *testing.T) {
	t.Parallel()

	pending := completed(time.Now(), item("A", 1000, 1))
	pending.Status = ordersservice.StatusPending
	orders := []ordersservice.Order{pending, completed(time.Now(), item("B", 500, 1))}

	require.Equal(t, int64(500), RevenueTotal(orders, Range{}))
	require.Equal(t, 1, CompletedCount(orders, Range{}))
	require.Equal(t, []ProductSales{{Name: "B", Quantity: 1}}, TopProducts(orders, Range{}, 0))
}

func TestRangeUsesLocalCalendarDayInclusive(t *testing.T) {
	t.Parallel()

	// 2025-03-09 18:00 UTC is already 2025-03-10 01:00 in Jakarta.
	lateNight := completed(time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC), item("A", 1000, 1))
	endOfDay := completed(time.Date(2025, 3, 11, 16, 59, 0, 0, time.UTC), item("B", 2000, 1))
	nextDay := completed(time.Date(2025, 3, 11, 17, 0, 0, 0, time.UTC), item("C", 4000, 1))
	orders := []ordersservice.Order{lateNight, endOfDay, nextDay}

	r := Range{Start: date(2025, 3, 10), End: date(2025, 3, 11), Location: jakarta}
	require.Equal(t, int64(3000), RevenueTotal(orders, r))

	utc := Range{Start: date(2025, 3, 10), End: date(2025, 3, 11)}
	require.Equal(t, int64(6000), RevenueTotal(orders, utc))

	openStart := Range{End: date(2025, 3, 10), Location: jakarta}
	require.Equal(t, int64(1000), RevenueTotal(orders, openStart))

	openEnd := Range{Start: date(2025, 3, 12), Location: jakarta}
	require.Equal(t, int64(4000), RevenueTotal(orders, openEnd))
}

func TestTopProductsStableAndLimited(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	orders := []ordersservice.Order{
		completed(at, item("Kopi", 1, 2), item("Teh", 1, 3)),
		completed(at, item("Susu", 1, 3), item("Roti", 1, 1)),
		completed(at, item("Kopi", 1, 1), item("Gula", 1, 1), item("Air", 1, 1), item("Es", 1, 1)),
	}

	top := TopProducts(orders, Range{}, 5)
	require.Equal(t, []ProductSales{
		{Name: "Kopi", Quantity: 3},
		{Name: "Teh", Quantity: 3},
		{Name: "Susu", Quantity: 3},
		{Name: "Roti", Quantity: 1},
		{Name: "Gula", Quantity: 1},
	}, top)

	require.Len(t, TopProducts(orders, Range{}, 2), 2)
}

func TestDailyRevenueSeries(t *testing.T) {
	t.Parallel()

	orders := []ordersservice.Order{
		completed(time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC), item("A", 100, 1)),
		completed(time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), item("A", 100, 2)),
		completed(time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC), item("B", 50, 1)),
	}

	series := DailyRevenue(orders, Range{Location: jakarta})
	require.Len(t, series, 2)
	require.Equal(t, "2025-03-10", series[0].Date.Time.Format(types.DateFormat))
	require.Equal(t, int64(250), series[0].Revenue)
	require.Equal(t, 2, series[0].Orders)
	require.Equal(t, int64(100), series[1].Revenue)
}

func TestRangeValid(t *testing.T) {
	t.Parallel()

	require.True(t, Range{}.Valid())
	require.True(t, Range{Start: date(2025, 1, 1), End: date(2025, 1, 1)}.Valid())
	require.False(t, Range{Start: date(2025, 1, 2), End: date(2025, 1, 1)}.Valid())
}
