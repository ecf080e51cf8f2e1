package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"laila/internal/agent"
	"laila/internal/gateway"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatVerbose bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the agent interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		out := cmd.OutOrStdout()
		sessionID := uuid.NewString()
		fmt.Fprintf(out, "LAILA (session %s). Type 'exit' to quit.\n", sessionID)

		var emit func(agent.Event)
		if chatVerbose {
			emit = func(ev agent.Event) {
				if ev.Type == agent.EventToolCall {
					if m, ok := ev.Data.(map[string]string); ok {
						fmt.Fprintf(out, "  -> %s\n", m["name"])
					}
				}
			}
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for {
			fmt.Fprint(out, "\nYou: ")
			if !scanner.Scan() {
				break
			}
			query := strings.TrimSpace(scanner.Text())
			if query == "" {
				continue
			}
			switch strings.ToLower(query) {
			case "exit", "quit", "q":
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}

			resp := gateway.Invoke(ctx, a.Orchestrator, gateway.InvocationRequest{Prompt: query, SessionID: sessionID}, emit)
			if resp.Error != "" {
				fmt.Fprintf(out, "\nError: %s\n", resp.Error)
				continue
			}
			fmt.Fprintf(out, "\nLAILA: %s\n", resp.Response)
			if ctx.Err() != nil {
				break
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "print tool calls as they happen")
}
