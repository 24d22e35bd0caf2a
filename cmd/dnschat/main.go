// SPDX-License-Identifier: GPL-3.0-or-later

// Command dnschat sends one chat message over DNS and prints the reply.
// It is a manual verification harness, not a production UI.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnschat/dnschat"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

func main() {
	var (
		server  string
		zone    string
		dohURL  string
		timeout time.Duration
		offline bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "dnschat <message>",
		Short:         "Send a chat message to a language model over DNS",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}))

			cfg := dnschat.Config{
				Server:           server,
				Zone:             zone,
				DoHURL:           dohURL,
				TotalSendTimeout: timeout,
				Logger:           logger,
			}
			if offline {
				// No real transports: the mock responder answers directly.
				cfg.TransportOrder = []string{}
				cfg.MockFallback = &dnschat.CannedResponder{
					Default: "offline: no transport reached the network",
				}
			}
			client, err := dnschat.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := client.QueryDetailed(ctx, args[0])
			var rl *dnschat.RateLimitedError
			if errors.As(err, &rl) {
				// Throttled is healthy: report it and exit zero.
				fmt.Printf("rate limited, retry in %v\n", rl.RetryAfter)
				return nil
			}
			if err != nil {
				return err
			}
			if result.Mocked {
				fmt.Printf("[mock] %s\n", result.Text)
				return nil
			}
			fmt.Println(result.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", dnschat.DefaultServer, "DNS server (host:port) answering chat queries")
	cmd.Flags().StringVar(&zone, "zone", dnschat.DefaultZone, "query domain suffix")
	cmd.Flags().StringVar(&dohURL, "doh-url", dnschat.DefaultDoHURL, "DNS-over-HTTPS endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", dnschat.DefaultTotalSendTimeout, "total budget for the send")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip all network transports and answer from the mock responder")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log transport attempts")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
