package reportcmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
	reportsservice "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/service"
)

type stubLister struct {
	filter ordersservice.ListFilter
	err    error
}

func (s *stubLister) ListByTenant(_ context.Context, _ string, filter ordersservice.ListFilter) ([]ordersservice.Order, error) {
	s.filter = filter
	return nil, s.err
}

func TestCompletedOrdersFiltersByStatus(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	_, err := completedOrders{orders: lister}.CompletedForTenant(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, lister.filter.Status)
	require.Equal(t, ordersservice.StatusCompleted, *lister.filter.Status)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := parseDate("")
	require.NoError(t, err)
	require.Nil(t, d)

	d, err = parseDate("2025-02-28")
	require.NoError(t, err)
	require.Equal(t, time.February, d.Month())

	_, err = parseDate("28/02/2025")
	require.Error(t, err)
}

func TestWriteReportCreatesWorkbook(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "laporan.xlsx")
	svc := reportsservice.New(completedOrders{orders: &stubLister{}}, time.UTC)

	require.NoError(t, writeReport(context.Background(), svc, "t1", reportsservice.Range{Location: time.UTC}, out))
	info, err := os.Stat(out)
	require.NoError(t, err)
	require.NotZero(t, info.Size())
}

func TestWriteReportRemovesFileWhenExportFails(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "laporan.xlsx")
	boom := errors.New("database unavailable")
	svc := reportsservice.New(completedOrders{orders: &stubLister{err: boom}}, time.UTC)

	err := writeReport(context.Background(), svc, "t1", reportsservice.Range{Location: time.UTC}, out)
	require.ErrorIs(t, err, boom)
	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr))
}

func TestWriteReportFailsOnMissingDirectory(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "missing", "laporan.xlsx")
	svc := reportsservice.New(completedOrders{orders: &stubLister{}}, time.UTC)
	require.Error(t, writeReport(context.Background(), svc, "t1", reportsservice.Range{Location: time.UTC}, out))
}
