// Command backupctl is the manual-operation surface for the C4 backup
// supervisor (§4.C4): create, list, restore, stats, cleanup, callable
// without bringing up the HTTP server. Grounded on the cobra root-command
// shape in jhjaggars-package-tracking/cmd/cli/cmd/root.go, simplified to a
// single-binary tool operating directly on the live database file rather
// than an HTTP client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invoice-pipeline/internal/backup"
	"invoice-pipeline/internal/config"
	"invoice-pipeline/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backupctl",
		Short: "Manual control surface for the invoice database backup supervisor",
	}

	root.AddCommand(createCmd(), listCmd(), statsCmd(), cleanupCmd(), restoreCmd())
	return root
}

func newSupervisor() (*backup.Supervisor, *zap.Logger) {
	cfg := config.Load()
	logger := logging.New(cfg.NodeEnv)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = cfg.DataDir + "/invoices.db"
	}

	sup := backup.NewSupervisor(backup.Options{
		BackupPath:           cfg.Backup.Path,
		IntervalHours:        cfg.Backup.IntervalHours,
		RetentionDays:        cfg.Backup.RetentionDays,
		CompressThresholdMB:  cfg.Backup.CompressThresholdMB,
		OffsiteUploadEnabled: cfg.Backup.OffsiteUploadEnabled,
		LiveDBPath:           func() string { return dbPath },
	}, logger)
	return sup, logger
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a backup snapshot of the live database now",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _ := newSupervisor()
			snap, err := sup.CreateSnapshot()
			if err != nil {
				return err
			}
			fmt.Printf("created %s (%d bytes, compressed=%v)\n", snap.Name, snap.SizeBytes, snap.Compressed)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing backup snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _ := newSupervisor()
			snaps, err := sup.List()
			if err != nil {
				return err
			}
			for _, s := range snaps {
				fmt.Printf("%-40s %10d bytes  compressed=%v  %s\n", s.Name, s.SizeBytes, s.Compressed, s.LastModified.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show backup retention and storage stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _ := newSupervisor()
			stats, err := sup.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("count=%d total_bytes=%d oldest=%s newest=%s retention_days=%d interval_hours=%d path=%s\n",
				stats.Count, stats.TotalSizeBytes, stats.OldestName, stats.NewestName, stats.RetentionDays, stats.IntervalHours, stats.BackupPath)
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove snapshots older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _ := newSupervisor()
			removed, err := sup.Cleanup()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired snapshot(s)\n", removed)
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot-name>",
		Short: "Restore the live database from a named snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _ := newSupervisor()
			result, err := sup.Restore(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("restored from %s (pre-restore snapshot: %s)\n", result.RestoredFrom, result.PreRestoreSnapshot)
			return nil
		},
	}
}
