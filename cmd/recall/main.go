// recall: clipboard history daemon and CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/recall/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "recall",
		Short: "Clipboard history",
		Long: `recall watches the system clipboard, keeps a searchable history of
everything copied, and can put any earlier entry back on the clipboard.

Run "recall serve" to start the daemon. The list, search, restore, watch and
status commands talk to it over the local IPC socket, or over TLS when
--server is given.

Config file search order (first found wins):
  /etc/recall/recall.toml
  $HOME/.config/recall/recall.toml
  path supplied via --config

All flags can be set via RECALL_<FLAG> env vars or config-file keys.
See "recall serve --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newListCmd(),
		newSearchCmd(),
		newRestoreCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("recall %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string, extra ...slog.Handler) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level, extra...)
}
