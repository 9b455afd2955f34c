package main

import (
	"github.com/spf13/cobra"

	"github.com/manthysbr/partsdesk/internal/adapters/mcp"
	"github.com/manthysbr/partsdesk/internal/config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the parts capabilities as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newConsoleLogger()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), logger, cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := mcp.NewServer(logger, version, a.registry, a.chat)
		if err != nil {
			return err
		}
		logger.Info("serving mcp on stdio", "tools", len(srv.Tools()))
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
