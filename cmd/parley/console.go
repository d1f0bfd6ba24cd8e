package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/internal/logutil"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive directory console against the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			dir := directory.New(nil)
			if _, err := dir.Reload(cmd.Context(), st); err != nil {
				return err
			}
			runConsole(cmd.Context(), os.Stdin, cmd.OutOrStdout(), dir, st, logger)
			return nil
		},
	}
}

// runConsole reads operator commands from in until exit or EOF. It only
// touches the directory snapshot, so it can run alongside the poller.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, dir *directory.Directory, source directory.Source, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	_, _ = fmt.Fprintln(out, "parley console ready (reload | users | exit)")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "reload":
			users, err := dir.Reload(ctx, source)
			if err != nil {
				_, _ = fmt.Fprintf(out, "reload failed: %v\n", err)
				continue
			}
			_, _ = fmt.Fprintf(out, "reloaded %d users\n", len(users))
		case "users":
			for _, u := range dir.Snapshot() {
				mode := "text"
				if u.VoiceEnabled {
					mode = "voice"
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s\tchat=%d\n", u.Username, u.DisplayName, mode, u.ChatID)
			}
		case "exit", "quit":
			_, _ = fmt.Fprintln(out, "bye")
			return
		default:
			_, _ = fmt.Fprintln(out, "Unknown command")
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("console_read_error", "error", err.Error())
	}
}
