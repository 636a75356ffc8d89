package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/recall/internal/grpcservice"
)

func newRestoreCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Put a history entry back on the clipboard",
		Long: `Writes the stored payload of a history entry to the system clipboard
of the machine running the daemon. Use "recall list" to find ids.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runRestore(cmd, v, args[0]) },
	}
	addClientFlags(cmd)
	return cmd
}

func runRestore(cmd *cobra.Command, v *viper.Viper, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", arg)
	}

	d, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
	defer cancel()

	if _, err := d.client.Restore(ctx, &grpcservice.RestoreRequest{ID: id}); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("no history entry with id %d", id)
		}
		return fmt.Errorf("restore: %s", status.Convert(err).Message())
	}
	return nil
}
