package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/grpcservice"
	"go.klb.dev/recall/internal/history"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent clipboard history",
		Long: `Lists clipboard history, newest first.

--since and --until accept RFC 3339 timestamps, dates (YYYY-MM-DD), epoch
milliseconds, or durations such as 2h meaning "two hours ago".`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, v, "")
		},
	}
	addHistoryFlags(cmd)
	return cmd
}

func newSearchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search clipboard history",
		Long: `Finds history entries whose text, HTML, file path or color contains
the query (case-insensitive for ASCII). A blank query lists everything.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, v, strings.Join(args, " "))
		},
	}
	addHistoryFlags(cmd)
	return cmd
}

func addHistoryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("limit", 0, "maximum entries to return (default 200, max 1000)")
	f.String("since", "", "only entries copied at or after this time")
	f.String("until", "", "only entries copied at or before this time")
	addClientFlags(cmd)
}

func runHistory(cmd *cobra.Command, v *viper.Viper, q string) error {
	start, end, err := timeRange(v, time.Now())
	if err != nil {
		return err
	}
	req := &grpcservice.HistoryRequest{Query: q, Start: start, End: end}
	if v.GetInt("limit") != 0 {
		req.Limit = history.Ptr(v.GetInt("limit"))
	}

	d, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
	defer cancel()

	resp, err := d.client.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if v.GetBool("json") {
		return printJSON(os.Stdout, resp.Items)
	}
	printItems(os.Stdout, resp.Items)
	return nil
}
