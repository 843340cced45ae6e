package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/tui"
)

func newChatCmd() *cobra.Command {
	var (
		url   string
		token string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running gateway from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				host := cfg.Server.Host
				if host == "" || host == "0.0.0.0" {
					host = "localhost"
				}
				url = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
			}
			if token == "" {
				token = os.Getenv("ORCHESTRATOR_TOKEN")
			}

			client := tui.NewClient(url, token, 2*time.Minute)
			_, err := tea.NewProgram(tui.NewApp(client, url), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "gateway base URL (defaults to the configured server address)")
	cmd.Flags().StringVar(&token, "token", "", "bearer credential (defaults to $ORCHESTRATOR_TOKEN)")
	return cmd
}
