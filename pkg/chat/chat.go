// Package chat implements the interactive question REPL.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/display"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

// AskFunc answers one question.
type AskFunc func(ctx context.Context, question string) (*engine.FinalAnswer, error)

// Session is one interactive chat.
type Session struct {
	ask     AskFunc
	catalog *probe.Catalog
	output  io.Writer
	rl      *readline.Instance
	render  display.Options
	history []*engine.FinalAnswer
}

// New creates a session. ask is usually an engine's Process, possibly
// wrapped in a progress display.
func New(ask AskFunc, catalog *probe.Catalog, render display.Options) *Session {
	return &Session{
		ask:     ask,
		catalog: catalog,
		output:  os.Stdout,
		render:  render,
	}
}

// SetOutput redirects rendered output.
func (s *Session) SetOutput(w io.Writer) { s.output = w }

// Run starts the REPL and returns on /quit, EOF or interrupt.
func (s *Session) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("/probes"),
		readline.PcItem("/debug", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("/trace"),
		readline.PcItem("/history"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	s.rl = rl
	defer rl.Close()

	fmt.Fprintf(s.output, "anna: ask about this machine. %d probes available, /help for commands.\n\n", s.catalog.Len())

	for {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit := s.HandleLine(ctx, line); quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// HandleLine runs one command or question and reports whether to quit.
func (s *Session) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.handleQuestion(ctx, line)
		return false
	}

	parts := strings.Fields(line)
	switch parts[0] {
	case "/probes", "/p":
		fmt.Fprint(s.output, display.Probes(s.catalog, s.render.Width))
	case "/debug", "/d":
		s.handleDebug(parts)
	case "/trace", "/t":
		s.handleTrace()
	case "/history", "/h":
		s.handleHistory()
	case "/help", "/?":
		s.handleHelp()
	case "/quit", "/q", "/exit":
		fmt.Fprintf(s.output, "bye.\n")
		return true
	default:
		fmt.Fprintf(s.output, "Unknown command: %q. Type /help for available commands.\n", parts[0])
	}
	return false
}

func (s *Session) prompt() string {
	if s.render.Debug {
		return "anna[debug]> "
	}
	return "anna> "
}

func (s *Session) handleQuestion(ctx context.Context, q string) {
	ans, err := s.ask(ctx, q)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n\n", err)
		return
	}
	s.history = append(s.history, ans)
	fmt.Fprintln(s.output, display.Answer(ans, s.render))
}

func (s *Session) handleDebug(parts []string) {
	switch {
	case len(parts) < 2:
		s.render.Debug = !s.render.Debug
	case parts[1] == "on":
		s.render.Debug = true
	case parts[1] == "off":
		s.render.Debug = false
	default:
		fmt.Fprintf(s.output, "Usage: /debug [on|off]\n")
		return
	}
	state := "off"
	if s.render.Debug {
		state = "on"
	}
	fmt.Fprintf(s.output, "debug output %s\n", state)
}

func (s *Session) handleTrace() {
	if len(s.history) == 0 {
		fmt.Fprintf(s.output, "No questions asked yet.\n")
		return
	}
	last := s.history[len(s.history)-1]
	if last.Debug == nil {
		fmt.Fprintf(s.output, "No trace captured. Start with --debug to record model exchanges.\n")
		return
	}
	fmt.Fprint(s.output, display.Debug(last.Debug, s.render.Width))
}

func (s *Session) handleHistory() {
	if len(s.history) == 0 {
		fmt.Fprintf(s.output, "No questions asked yet.\n")
		return
	}
	for i, a := range s.history {
		mark := "✓"
		if a.IsRefusal {
			mark = "⊘"
		}
		fmt.Fprintf(s.output, "  %d. %s [%s] %s\n", i+1, mark, a.Confidence, a.Question)
	}
}

func (s *Session) handleHelp() {
	fmt.Fprintf(s.output, `Commands:
  <question>         Ask about this machine
  /probes (/p)       List the probes Anna may run
  /debug [on|off]    Toggle showing model prompts and responses
  /trace (/t)        Show the debug trace of the last answer
  /history (/h)      List questions asked this session
  /help (/?)         Show this help
  /quit (/q)         Exit
`)
}
