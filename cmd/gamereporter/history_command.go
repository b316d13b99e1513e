package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gamereporter/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent report delivery outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				history, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, history)
				}
				out := cmd.OutOrStdout()
				if len(history.Entries) == 0 {
					fmt.Fprintln(out, "No reports recorded yet")
				} else {
					fmt.Fprintln(out, renderHistoryTable(history.Entries))
				}
				fmt.Fprintf(out, "Delivered: %d  Dropped: %d  Upload failures: %d\n",
					history.Delivered, history.Dropped, history.UploadFailures)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func renderHistoryTable(entries []ipc.HistoryEntry) string {
	headers := []string{"Recorded", "Match", "Mode", "Result", "Attempts", "Upload", "Error"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.RecordedAt.Local().Format(time.DateTime),
			e.MatchID,
			displayLabel(e.Mode),
			displayLabel(e.Result),
			strconv.Itoa(e.Attempts),
			displayLabel(e.Upload),
			truncate(e.Error, 48),
		})
	}
	return renderTable(headers, rows, aligns)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
