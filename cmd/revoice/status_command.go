package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline stage statuses and unlocked actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.apiClient().Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatus(resp, shouldColorize(out)))
			return nil
		},
	}
}

func renderStatus(resp api.StatusResponse, colorize bool) string {
	var b strings.Builder
	if resp.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", resp.SessionID)
	} else {
		b.WriteString("Session: none (upload audio to start)\n")
	}

	rows := make([][]string, 0, len(resp.Stages))
	for _, st := range resp.Stages {
		rows = append(rows, []string{st.Label, colorizeStageStatus(st.Status, colorize)})
	}
	b.WriteString(renderTable([]string{"Stage", "Status"}, rows))
	b.WriteString("\n")

	if len(resp.Unlocked) > 0 {
		fmt.Fprintf(&b, "Unlocked actions: %s\n", strings.Join(resp.Unlocked, ", "))
	}
	fmt.Fprintf(&b, "Daemon PID: %d\n", resp.Daemon.PID)
	return b.String()
}
