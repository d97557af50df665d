package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"meeting-assistant/internal/relay"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var chatAsUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant over the message channel",
	Long: `Open the message channel and relay every typed line as a chat message.

With --as, lines are sent as replies from a simulated participant instead.
Type /status to show the connection state and /quit to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatAsUser, "as", "", "Reply as the simulated participant with this id")
}

// logPrinter writes log entries that have not been printed yet.
type logPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	printed int
}

func (p *logPrinter) flush(entries []relay.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ; p.printed < len(entries); p.printed++ {
		fmt.Fprintln(p.out, formatEntry(entries[p.printed]))
	}
}

func formatEntry(e relay.Entry) string {
	prefix := "助手"
	switch e.Type {
	case "user":
		prefix = "我"
	case "system":
		prefix = "系统"
	}
	if e.TargetUserID != "" {
		prefix += "@" + e.TargetUserID
	}
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05"), prefix, e.Message)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printer := &logPrinter{out: cmd.OutOrStdout()}
	var client *relay.Client
	client = relay.New(relay.Options{
		URL:      wsURL,
		Logger:   newLogger(),
		OnChange: func() { printer.flush(client.Log()) },
	})

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok {
				stop()
				return <-done
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit":
				stop()
				return <-done
			case "/status":
				fmt.Fprintln(cmd.OutOrStdout(), client.StatusText())
				continue
			}
			if err := send(client, line); err != nil {
				if errors.Is(err, relay.ErrNotConnected) {
					fmt.Fprintln(cmd.OutOrStdout(), client.StatusText())
					continue
				}
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
		}
	}
}

func send(client *relay.Client, line string) error {
	if chatAsUser != "" {
		return client.SendMockUser(chatAsUser, line)
	}
	return client.Send(line)
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send one prompt through the completion proxy",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		reply, err := newClient().Chat(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

var dialogueType string

var dialogueCmd = &cobra.Command{
	Use:   "end-dialogue",
	Short: "End the current dialogue and print its summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		resp, err := newClient().EndDialogue(ctx, dialogueType)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp.Summary)
	},
}

func init() {
	dialogueCmd.Flags().StringVar(&dialogueType, "type", "user_initiated", "Dialogue type: user_initiated or system_initiated")
}
