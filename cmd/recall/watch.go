package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/grpcservice"
	"go.klb.dev/recall/internal/history"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a line whenever a new clipboard entry is recorded",
		Long: `Streams history change notifications from the daemon until
interrupted. With --show the newest entry is fetched and printed for each
notification.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}
	cmd.Flags().Bool("show", false, "print the newest entry on every notification")
	addLoggingFlags(cmd)
	addClientFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	d, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	stream, err := d.client.Watch(ctx, &grpcservice.WatchRequest{})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	slog.Debug("watching", "transport", d.transport)

	show := v.GetBool("show")
	jsonOut := v.GetBool("json")
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}

		if !show {
			if jsonOut {
				_ = printJSON(os.Stdout, ev)
			} else {
				fmt.Printf("%s %s\n", time.UnixMilli(ev.Time).Format(time.RFC3339), ev.Event)
			}
			continue
		}

		resp, err := d.client.List(ctx, &grpcservice.HistoryRequest{Limit: history.Ptr(1)})
		if err != nil {
			slog.Warn("fetch newest entry failed", "err", err)
			continue
		}
		if jsonOut {
			_ = printJSON(os.Stdout, resp.Items)
		} else {
			printItems(os.Stdout, resp.Items)
		}
	}
}
