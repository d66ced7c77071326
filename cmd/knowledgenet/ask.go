package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/knowledgenet"
	"github.com/hupe1980/knowledgenet/core"
)

// runAsk sends the question given as arguments, or every line read from in,
// to one public agent and prints the visible replies.
func runAsk(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	agentID := fs.String("agent", "", "Public agent to ask")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	kn, _, err := bootstrap(ctx, cfg, io.Discard, nil)
	if err != nil {
		return err
	}

	id := *agentID
	if id == "" {
		a, err := kn.Registry().SinglePublic()
		if err != nil {
			return fmt.Errorf("%w; choose one with -agent", err)
		}
		id = a.ID()
	}

	history := core.NewChatHistory()
	if question := strings.Join(fs.Args(), " "); question != "" {
		printContinuation(out, kn.Ask(ctx, id, history, question))
		return nil
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question != "" {
			printContinuation(out, kn.Ask(ctx, id, history, question))
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func printContinuation(out io.Writer, cont *core.ChatHistory) {
	for _, m := range cont.Messages(false) {
		fmt.Fprintf(out, "%s: %s\n\n", m.Originator, m.MessageText)
	}
	if text, failed := knowledgenet.RenderError(cont); failed {
		fmt.Fprintf(out, "%s\n\n", text)
	}
}
