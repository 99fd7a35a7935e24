package reportcmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	ordersrepo "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/repo"
	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
	reportsservice "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
)

// Command groups reporting helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Sales reports",
	}
	cmd.AddCommand(exportCommand())
	return cmd
}

// orderLister is the slice of the order repository the report reads.
type orderLister interface {
	ListByTenant(ctx context.Context, tenantID string, filter ordersservice.ListFilter) ([]ordersservice.Order, error)
}

type completedOrders struct {
	orders orderLister
}

func (c completedOrders) CompletedForTenant(ctx context.Context, tenantID string) ([]ordersservice.Order, error) {
	completed := ordersservice.StatusCompleted
	return c.orders.ListByTenant(ctx, tenantID, ordersservice.ListFilter{Status: &completed})
}

func exportCommand() *cobra.Command {
	var (
		databaseURL string
		tenantID    string
		from        string
		to          string
		out         string
		timezone    string
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Export a store's completed orders to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}
			r := reportsservice.Range{Location: loc}
			if r.Start, err = parseDate(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if r.End, err = parseDate(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			ctx := cmd.Context()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			svc := reportsservice.New(completedOrders{orders: ordersrepo.NewPostgresRepository(pool)}, loc)
			if err := writeReport(ctx, svc, tenantID, r, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", out)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	c.Flags().StringVar(&tenantID, "tenant", "", "store (tenant) id")
	c.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (inclusive)")
	c.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (inclusive)")
	c.Flags().StringVar(&out, "out", "laporan.xlsx", "output file")
	c.Flags().StringVar(&timezone, "timezone", "Asia/Jakarta", "store timezone used for day boundaries")
	_ = c.MarkFlagRequired("tenant")
	return c
}

// writeReport exports into path. A failed export or close leaves no file behind.
func writeReport(ctx context.Context, svc *reportsservice.Service, tenantID string, r reportsservice.Range, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := svc.Export(ctx, tenantID, r, f); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}

func parseDate(raw string) (*types.Date, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(types.DateFormat, raw)
	if err != nil {
		return nil, err
	}
	return &types.Date{Time: t}, nil
}
