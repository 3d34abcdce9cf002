package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch every subscribed calendar once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if err := opts.newSyncer(st).SyncAll(ctx); err != nil {
				return err
			}
			cals, err := st.ListCalendars(ctx, "")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "synced %d calendar(s)\n", len(cals))
			return nil
		},
	}
}
