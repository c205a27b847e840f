package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/travel-checkout/internal/db"
	"github.com/vasiliy-maslov/travel-checkout/internal/invoice"
)

type statusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, id int64, status invoice.PaymentStatus) error
}

func invoiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Operate on invoices in the postgres store",
	}

	status := &cobra.Command{
		Use:   "status <invoice-id> <status>",
		Short: "Set an invoice payment status (pending, paid, declined or a numeric code)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := db.New(cmd.Context(), a.cfg.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			return runInvoiceStatus(cmd.Context(), cmd.OutOrStdout(), invoice.NewPostgresProvider(pg.Pool), args[0], args[1])
		},
	}

	cmd.AddCommand(status)
	return cmd
}

func runInvoiceStatus(ctx context.Context, out io.Writer, store statusUpdater, rawID, rawStatus string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid invoice id %q", rawID)
	}

	status, err := invoice.ParsePaymentStatus(rawStatus)
	if err != nil {
		return err
	}

	if err := store.UpdatePaymentStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update invoice %d: %w", id, err)
	}

	_, err = fmt.Fprintf(out, "invoice %d is now %s\n", id, status.Label())
	return err
}
