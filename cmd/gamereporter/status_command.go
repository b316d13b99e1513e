package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gamereporter/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range statusLines(status) {
					fmt.Fprintln(out, renderStatusLine(line.label, line.kind, line.message, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

type statusLine struct {
	label   string
	kind    statusKind
	message string
}

func statusLines(status *ipc.StatusResponse) []statusLine {
	daemonKind := statusOK
	if !status.Running {
		daemonKind = statusError
	}
	pendingKind := statusOK
	if status.PendingReports > 0 {
		pendingKind = statusWarn
	}
	journal := status.JournalPath
	journalKind := statusInfo
	if journal == "" {
		journal = "disabled"
		journalKind = statusWarn
	}
	return []statusLine{
		{label: "Daemon", kind: daemonKind, message: fmt.Sprintf("running=%s pid=%d", yesNo(status.Running), status.PID)},
		{label: "Reporters", kind: statusInfo, message: strconv.Itoa(status.Reporters)},
		{label: "Pending reports", kind: pendingKind, message: strconv.Itoa(status.PendingReports)},
		{label: "Journal", kind: journalKind, message: journal},
		{label: "Lock", kind: statusInfo, message: status.LockFilePath},
	}
}
