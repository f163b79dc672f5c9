package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"votetally/internal/domain/option"
	"votetally/internal/livesync"
)

var (
	watchURL   string
	watchDelay time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live tally of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := livesync.NewClient(watchURL)
		if err != nil {
			return err
		}
		client.ReconnectDelay = watchDelay
		out := cmd.OutOrStdout()
		client.OnSnapshot = func(counts []option.Count) {
			fmt.Fprintln(out, formatTally(counts))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			client.Stop()
		}()
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:3001", "base URL of the server")
	watchCmd.Flags().DurationVar(&watchDelay, "reconnect", livesync.DefaultReconnectDelay, "delay before reconnecting")
}

func formatTally(counts []option.Count) string {
	if len(counts) == 0 {
		return time.Now().Format("15:04:05") + " (no options)"
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Text, c.Votes))
	}
	return time.Now().Format("15:04:05") + " " + strings.Join(parts, " ")
}
