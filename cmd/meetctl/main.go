// Command meetctl drives a running meeting assistant from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"meeting-assistant/internal/apiclient"
	"meeting-assistant/internal/config"
	"meeting-assistant/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	apiURL  string
	wsURL   string
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "meetctl",
	Short:         "Talk to the meeting scheduling assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cfg := config.LoadConfig()
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", cfg.APIURL, "REST API base URL (or set API_URL)")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws-url", cfg.WSURL, "Message channel URL (or set WS_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(meetingsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(dialogueCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *apiclient.Client {
	c := apiclient.New(apiURL)
	c.HTTPClient.Timeout = timeout
	return c
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := logging.New("debug")
	if err != nil {
		return zap.NewNop()
	}
	return l
}
