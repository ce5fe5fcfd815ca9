package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Send raw frames over one WebSocket session",
		Long: `Open a WebSocket session and send each line of stdin as a text frame.

Each reply is printed as it arrives. Frames are sent verbatim, so this is
useful for checking how the server treats malformed input:

  {"destination":"create-room","data":"{\"jwt\":\"...\"}"}

Press Ctrl+D or Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context())
		},
	}
}

func runSession(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	socket, err := client.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = socket.Close() }()

	out := NewOutput(cfg.Output)
	if cfg.Output != "json" {
		fmt.Fprintln(os.Stderr, "Connected")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp, err := socket.SendRaw(ctx, []byte(line))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		out.Print(Reply{Status: int(resp.Status), Room: resp.Room})
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdin: %w", err)
	}
	if cfg.Output != "json" {
		fmt.Fprintln(os.Stderr, "Disconnected")
	}
	return nil
}
