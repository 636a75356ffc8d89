package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/grpcservice"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Displays the running daemon's version, capture strategy, clipboard
backend, database location and history size.

The request is sent via the local IPC socket unless --server is given.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}
	addClientFlags(cmd)
	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	d, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
	defer cancel()

	resp, err := d.client.Status(ctx, &grpcservice.StatusRequest{})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if v.GetBool("json") {
		return printJSON(os.Stdout, resp)
	}
	printStatus(resp, d.transport)
	return nil
}

func printStatus(resp *grpcservice.StatusResponse, transport string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	if resp.StartedAt > 0 {
		t := time.UnixMilli(resp.StartedAt)
		fmt.Fprintf(w, "Started:\t%s (%s)\n", t.Format(time.RFC3339), fmtAge(t))
	}
	fmt.Fprintf(w, "Strategy:\t%s\n", orDash(resp.Strategy))
	fmt.Fprintf(w, "Clipboard:\t%s\n", orDash(resp.Clipboard))
	fmt.Fprintf(w, "Database:\t%s\n", orDash(resp.Database))
	fmt.Fprintf(w, "Entries:\t%d\n", resp.Items)
	fmt.Fprintf(w, "Watchers:\t%d\n", resp.Subscribers)
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
