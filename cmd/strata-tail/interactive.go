package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/strata-base/strata-go/pkg/realtime"
)

// tail handles the interactive command loop.
type tail struct {
	client    *realtime.Client
	serverURL string
	rl        *readline.Instance

	mu     sync.Mutex
	unsubs map[string]func() error // topic -> unsubscribe handle
}

func newTail(client *realtime.Client, serverURL string) (*tail, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "strata> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &tail{
		client:    client,
		serverURL: serverURL,
		rl:        rl,
		unsubs:    make(map[string]func() error),
	}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use this for asynchronous output so frames don't mangle the input line.
func (t *tail) Stdout() io.Writer {
	return t.rl.Stdout()
}

// Run starts the interactive command loop.
func (t *tail) Run(ctx context.Context, cancel context.CancelFunc) {
	defer t.rl.Close()

	t.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := t.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(t.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			t.printHelp()

		case "sub", "subscribe", "s":
			t.cmdSubscribe(ctx, args)

		case "unsub", "unsubscribe", "u":
			t.cmdUnsubscribe(args)

		case "topics", "t":
			t.cmdTopics()

		case "status":
			t.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(t.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(t.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (t *tail) printHelp() {
	fmt.Fprintln(t.rl.Stdout(), `
Strata Tail Commands:
  sub <topic>     - Subscribe and print incoming frames
  unsub <topic>   - Unsubscribe (or 'unsub *' for everything)
  topics          - List subscribed topics
  status          - Show connection status
  help            - Show this help
  quit            - Exit

  Topic Format:
    collection/* or collection/recordId - e.g. posts/* or posts/p1`)
}

// cmdSubscribe handles the sub command.
func (t *tail) cmdSubscribe(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(t.rl.Stdout(), "Usage: sub <topic>")
		return
	}
	topic := args[0]

	t.mu.Lock()
	_, exists := t.unsubs[topic]
	t.mu.Unlock()
	if exists {
		fmt.Fprintf(t.rl.Stdout(), "Already subscribed to %s\n", topic)
		return
	}

	out := t.rl.Stdout()
	unsub, err := t.client.Subscribe(ctx, topic, func(m realtime.Message) {
		fmt.Fprintf(out, "\n[%s] %s %s\n", m.Topic, m.Action, string(m.Record))
	})
	if err != nil {
		fmt.Fprintf(out, "Subscribe failed: %v\n", err)
		return
	}

	t.mu.Lock()
	t.unsubs[topic] = unsub
	t.mu.Unlock()

	fmt.Fprintf(out, "Subscribed to %s (client %s)\n", topic, t.client.ClientID())
}

// cmdUnsubscribe handles the unsub command.
func (t *tail) cmdUnsubscribe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(t.rl.Stdout(), "Usage: unsub <topic|*>")
		return
	}
	topic := args[0]

	t.mu.Lock()
	var topics []string
	if topic == "*" {
		for name := range t.unsubs {
			topics = append(topics, name)
		}
	} else if _, ok := t.unsubs[topic]; ok {
		topics = []string{topic}
	}
	handles := make(map[string]func() error, len(topics))
	for _, name := range topics {
		handles[name] = t.unsubs[name]
		delete(t.unsubs, name)
	}
	t.mu.Unlock()

	if len(handles) == 0 {
		fmt.Fprintf(t.rl.Stdout(), "Not subscribed to %s\n", topic)
		return
	}

	for name, unsub := range handles {
		if err := unsub(); err != nil {
			fmt.Fprintf(t.rl.Stdout(), "Unsubscribe %s failed: %v\n", name, err)
			continue
		}
		fmt.Fprintf(t.rl.Stdout(), "Unsubscribed from %s\n", name)
	}
}

// cmdTopics lists the current subscriptions.
func (t *tail) cmdTopics() {
	t.mu.Lock()
	topics := make([]string, 0, len(t.unsubs))
	for name := range t.unsubs {
		topics = append(topics, name)
	}
	t.mu.Unlock()
	sort.Strings(topics)

	if len(topics) == 0 {
		fmt.Fprintln(t.rl.Stdout(), "No subscriptions")
		return
	}
	fmt.Fprintf(t.rl.Stdout(), "\nSubscribed Topics (%d):\n", len(topics))
	for _, name := range topics {
		fmt.Fprintf(t.rl.Stdout(), "  %s\n", name)
	}
}

// cmdStatus shows the connection status.
func (t *tail) cmdStatus() {
	out := t.rl.Stdout()
	fmt.Fprintln(out, "\nConnection Status")
	fmt.Fprintln(out, "-------------------------------------------")
	fmt.Fprintf(out, "  Server:    %s\n", t.serverURL)
	fmt.Fprintf(out, "  State:     %s\n", t.client.State())
	if id := t.client.ClientID(); id != "" {
		fmt.Fprintf(out, "  Client ID: %s\n", id)
	}
	fmt.Fprintf(out, "  Topics:    %d\n", len(t.client.Topics()))
	fmt.Fprintln(out)
}
