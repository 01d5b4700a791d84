package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"fieldsync/internal/ipc"
	"fieldsync/internal/logtail"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lineCount int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if client, dialErr := ctx.dialClient(); dialErr == nil {
				defer client.Close()
				return streamLogsViaDaemon(cmd, client, lineCount, follow)
			}
			return streamLogsFromFile(cmd, cfg.CurrentLogPath(), lineCount, follow)
		},
	}

	cmd.Flags().IntVarP(&lineCount, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they arrive")
	return cmd
}

func streamLogsViaDaemon(cmd *cobra.Command, client *ipc.Client, lineCount int, follow bool) error {
	out := cmd.OutOrStdout()

	resp, err := client.LogTail(-1, lineCount)
	if err != nil {
		return fmt.Errorf("read daemon log: %w", err)
	}
	printLogLines(out, resp.Lines)
	if !follow {
		return nil
	}

	offset := resp.Offset
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
		}

		resp, err := client.LogTail(offset, 0)
		if err != nil {
			return fmt.Errorf("read daemon log: %w", err)
		}
		printLogLines(out, resp.Lines)
		offset = resp.Offset
	}
}

func streamLogsFromFile(cmd *cobra.Command, path string, lineCount int, follow bool) error {
	out := cmd.OutOrStdout()

	chunk, err := logtail.Read(cmd.Context(), path, logtail.Request{Offset: -1, Limit: lineCount})
	if err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	printLogLines(out, chunk.Lines)
	if !follow {
		return nil
	}

	offset := chunk.Offset
	for {
		chunk, err = logtail.Read(cmd.Context(), path, logtail.Request{Offset: offset, Wait: time.Second})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read log file: %w", err)
		}
		printLogLines(out, chunk.Lines)
		offset = chunk.Offset
	}
}

func printLogLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
