// Command sfclient talks to a Signal Fish signaling server from the
// terminal: join a lobby, resume a seat, or measure round trips.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &connectOptions{}

	root := &cobra.Command{
		Use:   "sfclient",
		Short: "Command-line client for Signal Fish signaling servers",
		Long: `sfclient connects to a Signal Fish signaling server, authenticates
with an app ID and prints every event the server sends.

The server URL and app ID can also be set with SIGNALFISH_URL and
SIGNALFISH_APP_ID.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(root)

	root.AddCommand(
		lobbyCmd(opts),
		reconnectCmd(opts),
		pingCmd(opts),
		versionCmd(),
	)
	return root
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
