package display

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
)

// Relay is an engine.Observer that forwards events to whichever channel is
// attached. Sends never block: a full channel drops the event.
type Relay struct {
	mu sync.Mutex
	ch chan<- engine.Event
}

// OnEvent forwards e to the attached channel, if any.
func (r *Relay) OnEvent(e engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil {
		return
	}
	select {
	case r.ch <- e:
	default:
	}
}

// Attach starts forwarding to ch.
func (r *Relay) Attach(ch chan<- engine.Event) {
	r.mu.Lock()
	r.ch = ch
	r.mu.Unlock()
}

// Detach stops forwarding.
func (r *Relay) Detach() {
	r.mu.Lock()
	r.ch = nil
	r.mu.Unlock()
}

type eventMsg engine.Event

type eventsClosedMsg struct{}

type doneMsg struct {
	ans *engine.FinalAnswer
	err error
}

// Progress is a Bubble Tea model showing a spinner and the engine's current
// step while a question is processed.
type Progress struct {
	spinner  spinner.Model
	events   <-chan engine.Event
	ask      func() (*engine.FinalAnswer, error)
	cancel   context.CancelFunc
	maxLoops int

	status string
	tokens int
	done   bool
	ans    *engine.FinalAnswer
	err    error
}

// NewProgress builds the model. ask runs once in the background; cancel is
// called on ctrl+c.
func NewProgress(events <-chan engine.Event, maxLoops int, ask func() (*engine.FinalAnswer, error), cancel context.CancelFunc) Progress {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Progress{
		spinner:  sp,
		events:   events,
		ask:      ask,
		cancel:   cancel,
		maxLoops: maxLoops,
		status:   "thinking",
	}
}

// Init starts the spinner, the event listener and the question.
func (m Progress) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen(), m.start())
}

func (m Progress) listen() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m Progress) start() tea.Cmd {
	return func() tea.Msg {
		ans, err := m.ask()
		return doneMsg{ans: ans, err: err}
	}
}

// Update handles spinner ticks, engine events and completion.
func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.cancel != nil {
			m.cancel()
			m.status = "cancelling"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		e := engine.Event(msg)
		if e.Kind == engine.EventToken {
			m.tokens++
		} else if s := Describe(e, m.maxLoops); s != "" {
			m.status = s
		}
		return m, m.listen()

	case eventsClosedMsg:
		return m, nil

	case doneMsg:
		m.done = true
		m.ans, m.err = msg.ans, msg.err
		return m, tea.Quit
	}
	return m, nil
}

// View shows the spinner line until the answer arrives.
func (m Progress) View() string {
	if m.done {
		return ""
	}
	line := m.spinner.View() + " " + m.status
	if m.tokens > 0 {
		line += dimStyle.Render(fmt.Sprintf("  (%d chunks)", m.tokens))
	}
	return line + "\n"
}

// Result returns what the question produced.
func (m Progress) Result() (*engine.FinalAnswer, error) {
	return m.ans, m.err
}

// Describe turns an engine event into a one-line status. Events with nothing
// to show return "".
func Describe(e engine.Event, maxLoops int) string {
	switch e.Kind {
	case engine.EventClassified:
		return "reading the question"
	case engine.EventFastPath:
		return "answering from the " + e.Message + " fast path"
	case engine.EventIterationStart:
		return fmt.Sprintf("iteration %d/%d: planning", e.Iteration, maxLoops)
	case engine.EventJuniorResponse:
		if ids, _ := e.Data["probes"].([]string); len(ids) > 0 {
			return fmt.Sprintf("iteration %d/%d: requesting %s", e.Iteration, maxLoops, strings.Join(ids, ", "))
		}
		if draft, _ := e.Data["draft"].(bool); draft {
			return fmt.Sprintf("iteration %d/%d: drafted an answer", e.Iteration, maxLoops)
		}
		return ""
	case engine.EventProbesRejected:
		if ids, _ := e.Data["ids"].([]string); len(ids) > 0 {
			return "ignoring unknown probes: " + strings.Join(ids, ", ")
		}
	case engine.EventProbesExecuted:
		if st, _ := e.Data["statuses"].(map[string]string); len(st) > 0 {
			ids := make([]string, 0, len(st))
			for id, s := range st {
				if s != "ok" {
					id += " (" + s + ")"
				}
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return "ran " + strings.Join(ids, ", ")
		}
	case engine.EventAuditSkipped:
		return "no evidence yet, gathering more"
	case engine.EventVerdict:
		overall, _ := e.Data["overall"].(float64)
		return fmt.Sprintf("iteration %d/%d: auditor says %s (%.2f)", e.Iteration, maxLoops, strings.ReplaceAll(e.Message, "_", " "), overall)
	case engine.EventFinished:
		return "done"
	}
	return ""
}

// RunProgress runs ask under a spinner. The relay must be the engine's
// observer; it is attached for the duration of the call.
func RunProgress(ctx context.Context, relay *Relay, maxLoops int, ask func(context.Context) (*engine.FinalAnswer, error), opts ...tea.ProgramOption) (*engine.FinalAnswer, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan engine.Event, 64)
	relay.Attach(events)

	m := NewProgress(events, maxLoops, func() (*engine.FinalAnswer, error) { return ask(ctx) }, cancel)
	final, err := tea.NewProgram(m, opts...).Run()
	// Detach before closing so no send can race the close.
	relay.Detach()
	close(events)
	if err != nil {
		return nil, fmt.Errorf("progress display: %w", err)
	}
	return final.(Progress).Result()
}
