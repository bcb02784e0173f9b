package main

import (
	"github.com/spf13/cobra"

	"github.com/i2y/brandlink/mcp"
)

func newMCPCmd(global *globalFlags) *cobra.Command {
	var streaming bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask tool over MCP on stdin and stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := global.newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Wait()

			opts := []mcp.Option{mcp.WithCallOptions(cfg.CallOptions()...)}
			if streaming {
				opts = append(opts, mcp.WithStreaming())
			}
			return mcp.ServeStdio(cmd.Context(), mcp.NewServer(client, opts...))
		},
	}

	cmd.Flags().BoolVar(&streaming, "stream", false, "Answer through the streaming endpoint")
	return cmd
}
