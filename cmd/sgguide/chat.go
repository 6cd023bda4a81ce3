package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/messaging"
	"github.com/BTreeMap/SGGuide/internal/store"
	"github.com/spf13/cobra"
)

// terminalUser keys the single session of the chat command.
const terminalUser = "terminal"

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot in the terminal",
		Long: "Runs one in-memory session in the terminal. Choices can be answered by number.\n" +
			"Type \"restart\" to start over and \"/quit\" to leave.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, driver, err := a.chatDriver()
			if err != nil {
				return err
			}
			sessions := flow.NewSessionManager(store.NewInMemoryStore(), v)
			conv := messaging.NewConversation(sessions, driver, messaging.WithSessionPrefix("cli:"))
			return runChat(cmd.Context(), conv, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runChat reads lines from in until EOF or /quit and prints each reply.
func runChat(ctx context.Context, conv *messaging.Conversation, in io.Reader, out io.Writer) error {
	reply, err := conv.Respond(ctx, terminalUser, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reply)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		reply, err := conv.Respond(ctx, terminalUser, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
