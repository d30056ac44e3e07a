package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
	"github.com/spetersoncode/loom/store"
)

// RunCmd runs a single prompt.
type RunCmd struct {
	Prompt  []string `arg:"" help:"Prompt text."`
	System  string   `help:"System prompt."`
	Session string   `short:"s" help:"Continue the named session and save it afterwards."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := cli.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	var (
		base        = ai.Context{SystemPrompt: c.System}
		sess        *agent.Session
		transcripts *store.Transcripts
	)
	if c.Session == "" {
		sess = rt.agent.NewSession(rt.model, base)
	} else {
		db, err := store.OpenSQLite(rt.cfg.SessionDB)
		if err != nil {
			return err
		}
		defer db.Close()
		transcripts = store.NewTranscripts(db)

		var resumed bool
		sess, resumed, err = transcripts.Resume(ctx, rt.agent, rt.model, c.Session, base)
		if err != nil {
			return err
		}
		if resumed {
			rt.logger.Info("resumed session", "session", c.Session, "messages", len(sess.Context().Messages))
		}
	}
	defer sess.Close()

	events, err := sess.Prompt(ctx, ai.NewUserMessage(strings.Join(c.Prompt, " ")))
	if err != nil {
		return err
	}

	var final agent.Event
	for ev := range events {
		printEvent(os.Stdout, os.Stderr, ev)
		if ev.Type == agent.EventLoopTerminal {
			final = ev
		}
	}

	if transcripts != nil {
		if err := transcripts.Save(context.WithoutCancel(ctx), c.Session, store.FromSession(sess)); err != nil {
			rt.logger.Error("save session failed", "session", c.Session, "error", err)
		}
	}

	usage := sess.Usage()
	cost := rt.model.CalculateCost(usage)
	fmt.Fprintf(os.Stderr, "\n[%s after %d turns, %d in / %d out tokens, $%.4f]\n",
		final.Reason, sess.Turns(), usage.Input, usage.Output, cost.Total())

	switch final.Reason {
	case agent.StateFailed:
		return final.Err
	case agent.StateAborted:
		return errors.New("aborted")
	}
	return nil
}

func printEvent(out, status io.Writer, ev agent.Event) {
	switch ev.Type {
	case agent.EventTextDelta:
		fmt.Fprint(out, ev.Delta)
	case agent.EventTurnCompleted:
		fmt.Fprintln(out)
	case agent.EventToolCallIssued:
		if ev.ToolCall != nil {
			fmt.Fprintf(status, "-> %s %s\n", ev.ToolCall.Name, ev.ToolCall.Arguments)
		}
	case agent.EventToolProgress:
		if ev.Progress != nil && ev.Progress.Message != "" {
			fmt.Fprintf(status, "   %s\n", ev.Progress.Message)
		}
	case agent.EventToolResultApplied:
		if ev.ToolResult != nil {
			fmt.Fprintf(status, "<- %s %s\n", ev.ToolResult.ToolName, summarize(*ev.ToolResult))
		}
	case agent.EventRetry:
		fmt.Fprintf(status, "retrying (attempt %d) in %s: %v\n", ev.Attempt, ev.Delay, ev.Err)
	case agent.EventWarning:
		fmt.Fprintf(status, "warning: %v\n", ev.Err)
	}
}

func summarize(msg ai.Message) string {
	switch {
	case msg.Cancelled:
		return "(cancelled)"
	case msg.IsError:
		return "error: " + firstLine(msg.Text())
	}
	text := msg.Text()
	lines := strings.Count(text, "\n") + 1
	if text == "" {
		lines = 0
	}
	return fmt.Sprintf("(%d lines)", lines)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
