package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend/internal/cli"
	"github.com/jorge-rr00/newbackend/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes Nova as MCP tools (ask, history, sessions).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sseAddr, _ := cmd.Flags().GetString("sse")
		baseURL, _ := cmd.Flags().GetString("base-url")

		svc, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		nova, err := svc.NewAssistant()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(nova, svc.Logger)

		if sseAddr == "" {
			// Logs must not corrupt JSON-RPC on stdout.
			log.SetOutput(os.Stderr)
			svc.Logger.Info("Starting Nova MCP Server (Stdio)")
			return srv.ServeStdio()
		}

		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost%s", sseAddr)
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		if err := srv.ServeSSE(ctx, sseAddr, baseURL); err != nil {
			return err
		}
		svc.Logger.Info("MCP Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("sse", "", "Serve the SSE transport on this address instead of stdio (e.g. :8090)")
	mcpCmd.Flags().String("base-url", "", "Public base URL announced to SSE clients")
}
