package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/notify"
)

var submitCmd = &cobra.Command{
	Use:   "submit URL...",
	Short: "Submit URLs for analysis",
	Long:  "Submits every valid http(s) URL given; arguments may also be comma-separated lists. Invalid URLs are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, client, err := setup(cmd)
		if err != nil {
			return err
		}

		c := lifecycle.NewController(client, nil, notify.NewWriter(cmd.OutOrStdout()), log)
		accepted := c.Stage(cmd.Context(), strings.Join(args, ","))
		if skipped := countURLs(args) - len(accepted); skipped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid URL(s)\n", skipped)
		}
		return c.Send(cmd.Context())
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze ID",
	Short: "Queue a checked, failed, or stopped record for analysis again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], model.StatusCreated)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop ID",
	Short: "Stop a record that is waiting for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], model.StatusStop)
	},
}

func setStatus(cmd *cobra.Command, rawID string, status model.Status) error {
	id, err := strconv.Atoi(rawID)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid record id %q", rawID)
	}

	_, log, client, err := setup(cmd)
	if err != nil {
		return err
	}

	c := lifecycle.NewController(client, nil, notify.NewWriter(cmd.OutOrStdout()), log)
	return c.SetStatus(cmd.Context(), id, status)
}

func countURLs(args []string) int {
	n := 0
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if strings.TrimSpace(part) != "" {
				n++
			}
		}
	}
	return n
}
