package main

import (
	"context"
	"encoding/json"
	"strings"

	"laila/internal/gateway"

	"github.com/spf13/cobra"
)

var invokeSession string

var invokeCmd = &cobra.Command{
	Use:   "invoke <prompt>",
	Short: "Run one prompt and print the response envelope as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		resp := gateway.Invoke(ctx, a.Orchestrator, gateway.InvocationRequest{
			Prompt:    strings.Join(args, " "),
			SessionID: invokeSession,
		}, nil)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeSession, "session", "s", "", "session ID (generated when empty)")
}
