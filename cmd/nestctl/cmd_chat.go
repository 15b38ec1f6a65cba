package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/model/chat"
	chatService "github.com/nestfeed/client/internal/service/chat"
)

// errRelayDropped ends an interactive chat whose relay connection went away.
var errRelayDropped = errors.New("chat relay disconnected")

// chatCmd runs an interactive conversation
var chatCmd = &cobra.Command{
	Use:   "chat <userID>",
	Short: "Chat with a friend",
	Long: `Connects to the message relay, opens the conversation with userID and
prints its history. Every line read from standard input is sent as a message;
incoming messages are printed as they arrive. End of input or Ctrl-C closes the
relay connection.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := core.Chat.Activate(ctx); err != nil {
		return err
	}
	defer core.Chat.Deactivate()

	events, unsubscribe := core.Chat.Subscribe()
	defer unsubscribe()

	history, err := core.Chat.Select(ctx, args[0])
	if err != nil {
		return err
	}

	name := args[0]
	if selected, ok := core.Chat.Selected(); ok && selected.Name != "" {
		name = selected.Name
	}
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("chatting with %s, end input to leave", name)))
	for _, msg := range history {
		printChatLine(out, name, msg)
	}

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(cmd.InOrStdin(), stop)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := core.Chat.Send(ctx, line); err != nil {
				if errors.Is(err, chatService.ErrNotActive) {
					return errRelayDropped
				}
				fmt.Fprintln(cmd.ErrOrStderr(), describe(err))
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case chatService.EventMessage:
				// own messages were typed by the user; echo only the other side
				if ev.Message != nil && ev.Message.Sender == chat.SenderOther {
					printChatLine(out, name, *ev.Message)
				}
			case chatService.EventDisconnected:
				logger.Info("relay dropped during chat")
				return errRelayDropped
			default:
				logger.Debug("chat event", zap.String("type", string(ev.Type)))
			}
		}
	}
}

// readLines feeds stdin lines into a channel that closes at end of input.
func readLines(r io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

func printChatLine(out io.Writer, name string, msg chat.Message) {
	who := nameStyle.Render(name)
	if msg.Sender == chat.SenderSelf {
		who = selfStyle.Render("you")
	}
	fmt.Fprintf(out, "%s %s: %s\n", mutedStyle.Render(msg.CreatedAt.Local().Format("15:04")), who, msg.Content)
}
