package tenantcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/repo"
	"github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
)

type options struct {
	databaseURL string
	envKey      string
}

// Command groups store lifecycle helpers; the same operations the super admin dashboard offers.
func Command() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Store lifecycle (list, activate, deactivate, extend trial)",
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	cmd.PersistentFlags().StringVar(&opts.envKey, "env-key", envOr("ENV_KEY", "dev"), "Environment key prefix (e.g. dev, stg, prod)")

	cmd.AddCommand(
		listCommand(&opts),
		statusCommand(&opts, "activate", service.StatusActive),
		statusCommand(&opts, "deactivate", service.StatusInactive),
		extendTrialCommand(&opts),
	)
	return cmd
}

func withService(ctx context.Context, opts *options, fn func(*service.Service) error) error {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: opts.databaseURL})
	if err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	defer persistence.ClosePool(pool)

	return fn(service.New(repo.NewPostgresRepository(pool), nil, service.Config{EnvKey: opts.envKey}))
}

func listCommand(opts *options) *cobra.Command {
	var (
		status   string
		page     int
		pageSize int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			listOpts := service.ListOptions{Page: page, PageSize: pageSize}
			if status != "" {
				s, err := service.ParseStatus(status)
				if err != nil {
					return err
				}
				listOpts.Status = &s
			}
			return withService(cmd.Context(), opts, func(svc *service.Service) error {
				result, err := svc.List(cmd.Context(), listOpts)
				if err != nil {
					return err
				}
				return printTenants(cmd.OutOrStdout(), result, time.Now())
			})
		},
	}
	c.Flags().StringVar(&status, "status", "", "filter by status (trial, active, inactive)")
	c.Flags().IntVar(&page, "page", 1, "page number")
	c.Flags().IntVar(&pageSize, "page-size", 50, "page size")
	return c
}

func statusCommand(opts *options, use string, status service.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <tenant-id>",
		Short: fmt.Sprintf("Set a store's status to %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(svc *service.Service) error {
				t, err := svc.SetStatus(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", t.Name, t.ID, t.Status)
				return nil
			})
		},
	}
}

func extendTrialCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extend-trial <tenant-id>",
		Short: "Extend a store's trial by the configured extension period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(svc *service.Service) error {
				t, err := svc.ExtendTrial(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) trial now ends %s\n", t.Name, t.ID, t.ExpiryDate.Format(time.DateOnly))
				return nil
			})
		},
	}
}

func printTenants(out io.Writer, result service.ListResult, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tEXPIRES\tWHATSAPP")
	for _, t := range result.Tenants {
		status := string(t.Status)
		if t.Expired(now) {
			status += " (expired)"
		}
		expires := "-"
		if t.ExpiryDate != nil {
			expires = t.ExpiryDate.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, status, expires, t.WhatsAppContact)
	}
	fmt.Fprintf(w, "\npage %d/%d, %d stores\n", result.Page, result.TotalPages, result.TotalItems)
	return w.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
