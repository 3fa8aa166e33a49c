package main

import (
	"fmt"
	"math/rand"

	"github.com/cjmurphy27/barn-management-sub000/internal/infra"
	"github.com/cjmurphy27/barn-management-sub000/internal/worker"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the barnctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fonts := []string{"standard", "small", "slant", "doom"}
		fig := figure.NewFigure("barnctl", fonts[rand.Intn(len(fonts))], true)
		fmt.Fprint(cmd.OutOrStdout(), fig.String())
		fmt.Fprintf(cmd.OutOrStdout(), "\nbarnctl %s\n", version)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalog schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := infra.RunMigrations(a.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire receipt scans left open past SCAN_TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		n := worker.SweepScans(cmd.Context(), worker.ScanSweeperConfig{Scans: a.svc.Receipts, TTL: a.cfg.ScanTTL})
		fmt.Fprintf(cmd.OutOrStdout(), "expired %d scan(s)\n", n)
		return nil
	},
}

var (
	dlqQueue   string
	dlqLimit   int64
	dlqRequeue bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Show or requeue dead-lettered background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.rdb == nil {
			return fmt.Errorf("redis is not reachable at REDIS_URL")
		}
		dl := worker.NewDeadLetters(a.rdb)
		out := cmd.OutOrStdout()

		if dlqRequeue {
			n, err := dl.Requeue(cmd.Context(), dlqQueue, int(dlqLimit))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "requeued %d job(s) onto %s\n", n, dlqQueue)
			return nil
		}

		n, err := dl.Len(cmd.Context(), dlqQueue)
		if err != nil {
			return err
		}
		entries, err := dl.List(cmd.Context(), dlqQueue, dlqLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s%s: %d dead-lettered\n", worker.DeadLetterPrefix, dlqQueue, n)
		return printJSON(out, entries)
	},
}

func init() {
	dlqCmd.Flags().StringVar(&dlqQueue, "queue", worker.QueueStockAlert, "Source queue")
	dlqCmd.Flags().Int64Var(&dlqLimit, "limit", 20, "Maximum entries to show or requeue")
	dlqCmd.Flags().BoolVar(&dlqRequeue, "requeue", false, "Move the oldest entries back onto the queue")

	rootCmd.AddCommand(versionCmd, migrateCmd, sweepCmd, dlqCmd)
}
