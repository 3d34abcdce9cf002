package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notedesk/internal/capture"
)

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	var snap capture.Options

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the rendered week view as a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if snap.URL == "" {
				snap.URL = "http://" + opts.cfg.Listen + "/calendar"
			}
			if ba := opts.cfg.BasicAuth; ba != nil && snap.Username == "" {
				snap.Username, snap.Password = ba.Username, ba.Password
			}
			if err := capture.WriteSnapshot(cmd.Context(), snap); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", snap.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&snap.URL, "url", "", "Calendar page URL (default http://<listen>/calendar).")
	cmd.Flags().StringVar(&snap.OutputPath, "out", "", "PNG output path (required).")
	cmd.Flags().StringVar(&snap.Date, "date", "", "Any day of the week to capture, YYYY-MM-DD.")
	cmd.Flags().IntVar(&snap.Width, "width", capture.DefaultWidth, "Viewport width in pixels.")
	cmd.Flags().IntVar(&snap.Height, "height", capture.DefaultHeight, "Viewport height in pixels.")
	cmd.Flags().DurationVar(&snap.Timeout, "timeout", capture.DefaultTimeout, "Overall capture timeout.")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
