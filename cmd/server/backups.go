package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"votetally/internal/repository/sqlite"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List store backups left by resets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		backups, err := sqlite.ListBackups(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("listing backups: %w", err)
		}
		if len(backups) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No backups in %s\n", cfg.DataDir)
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
		for _, b := range backups {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Name, b.Size, b.ModTime.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}
