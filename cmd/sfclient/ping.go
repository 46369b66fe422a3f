package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/risa-org/signalfish/client"
	"github.com/risa-org/signalfish/protocol"
	"github.com/spf13/cobra"
)

func pingCmd(opts *connectOptions) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Measure round trips to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c, events, err := opts.start(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var (
				sent   int
				sentAt time.Time
				total  time.Duration
			)
			ping := func() error {
				sent++
				sentAt = time.Now()
				return c.Ping()
			}

			return run(ctx, c, events, out, func(ev client.Event) error {
				switch ev := ev.(type) {
				case protocol.Authenticated:
					return ping()
				case protocol.AuthenticationError:
					return ev.Err()
				case protocol.Pong:
					rtt := time.Since(sentAt)
					total += rtt
					info(out, "pong %d/%d: %v", sent, count, rtt.Round(time.Microsecond))
					if sent >= count {
						success(out, "average round trip %v", (total / time.Duration(sent)).Round(time.Microsecond))
						return errDone
					}
					select {
					case <-time.After(interval):
					case <-ctx.Done():
						return errDone
					}
					return ping()
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 3, "Number of pings")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Wait between pings")

	return cmd
}
