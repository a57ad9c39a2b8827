package main

import (
	"fmt"

	"bizportal/internal/repository"
	"bizportal/internal/service"

	"github.com/spf13/cobra"
)

var sweepOverdueCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark unpaid invoices past their due date as overdue",
	Long: `Runs the overdue sweep once, the same job the api schedules with
invoices.overdue_sweep_cron.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := service.NewOverdueSweeper(repository.NewInvoiceRepository(pool, log), log).Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "marked %d invoices overdue\n", n)
		return nil
	},
}
