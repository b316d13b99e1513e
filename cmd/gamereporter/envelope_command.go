package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gamereporter/internal/fileutil"
	"gamereporter/internal/replay"
)

var gzipMagic = []byte{0x1f, 0x8b}

func newEnvelopeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "envelope",
		Short:       "Build or strip the replay upload envelope on files",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newEnvelopeWrapCommand())
	cmd.AddCommand(newEnvelopeUnwrapCommand())
	return cmd
}

func newEnvelopeWrapCommand() *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "wrap <raw-replay> <output>",
		Short: "Wrap a raw replay stream in the upload envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			wrap := replay.Wrap
			if compress {
				wrap = replay.Encode
			}
			body, err := wrap(raw)
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(args[1], body, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s (%d raw)\n", len(body), args[1], len(raw))
			return nil
		},
	}
	cmd.Flags().BoolVar(&compress, "gzip", true, "Gzip the envelope as it is uploaded")
	return cmd
}

func newEnvelopeUnwrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap <envelope> <output>",
		Short: "Recover the raw replay stream from an envelope (gzipped or not)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			unwrap := replay.Unwrap
			if bytes.HasPrefix(body, gzipMagic) {
				unwrap = replay.Decode
			}
			raw, err := unwrap(body)
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(args[1], raw, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d raw bytes to %s\n", len(raw), args[1])
			return nil
		},
	}
}
