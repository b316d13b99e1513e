package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gamereporter/internal/isocheck"
	"gamereporter/internal/logging"
	"gamereporter/internal/osd"
)

func newISOCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "iso [path]",
		Short: "Hash a game image and check it against known desync builds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = strings.TrimSpace(args[0])
			} else if cfg, err := ctx.ensureConfig(); err == nil {
				path = cfg.Paths.ISO
			}
			if path == "" {
				return errors.New("no image path given and paths.iso is not configured")
			}

			checker := isocheck.New(osd.Noop{}, logging.NewNop())
			result := checker.Run(path)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			switch result.Verdict {
			case isocheck.Failed:
				fmt.Fprintln(out, renderStatusLine("Image", statusError, result.Err.Error(), colorize))
				return fmt.Errorf("check %s: %w", path, result.Err)
			case isocheck.KnownDesync:
				fmt.Fprintln(out, renderStatusLine("Image", statusWarn, displayLabel(result.Verdict.String()), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Image", statusOK, displayLabel(result.Verdict.String()), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("MD5", statusInfo, result.Hash, colorize))
			return nil
		},
	}
}
