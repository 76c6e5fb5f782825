package completion

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const emptyInputMessage = "Please provide some text to improve."

// Outcome is delivered back to the UI for every finished submission. Failed
// outcomes carry the classified user-facing message.
type Outcome struct {
	Action  string
	Session uint64
	Text    string
	Failed  bool
	Kind    Kind
	Message string
}

// Dispatcher runs completion calls off the UI loop with at most one
// in-flight request per action. Outcomes whose session no longer matches
// the current capture are dropped instead of delivered.
type Dispatcher struct {
	client  Client
	current func() uint64
	deliver func(Outcome)
	logger  Logger

	mu      sync.Mutex
	pending map[string]bool
}

func NewDispatcher(client Client, current func() uint64, deliver func(Outcome), logger Logger) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if current == nil {
		return nil, errors.New("current session func is required")
	}
	if deliver == nil {
		return nil, errors.New("deliver func is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Dispatcher{
		client:  client,
		current: current,
		deliver: deliver,
		logger:  logger,
		pending: make(map[string]bool),
	}, nil
}

func (d *Dispatcher) Pending(action string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[action]
}

// Submit starts a completion for the given action. It reports false when
// the action already has a request in flight; the caller keeps its control
// disabled in that case and nothing is dispatched.
func (d *Dispatcher) Submit(action string, session uint64, model string, messages []Message, input string) bool {
	d.mu.Lock()
	if d.pending[action] {
		d.mu.Unlock()
		d.logger.Debug("submission rejected, request already in flight", "action", action)
		return false
	}
	d.pending[action] = true
	d.mu.Unlock()

	go d.run(action, session, model, messages, input)
	return true
}

func (d *Dispatcher) run(action string, session uint64, model string, messages []Message, input string) {
	outcome := Outcome{Action: action, Session: session}

	if strings.TrimSpace(input) == "" {
		outcome.Failed = true
		outcome.Kind = KindUnknown
		outcome.Message = emptyInputMessage
		d.finish(outcome)
		return
	}

	result, err := d.client.Complete(context.Background(), Request{Model: model, Messages: messages})
	if err != nil {
		kind := Classify(err.Error())
		outcome.Failed = true
		outcome.Kind = kind
		outcome.Message = UserMessage(kind, err.Error())
		d.logger.Warn("completion failed", "action", action, "kind", kind.String(), "error", err)
		d.finish(outcome)
		return
	}

	outcome.Text = result.Text
	d.finish(outcome)
}

func (d *Dispatcher) finish(outcome Outcome) {
	d.mu.Lock()
	delete(d.pending, outcome.Action)
	d.mu.Unlock()

	if current := d.current(); current != outcome.Session {
		d.logger.Debug("dropping stale completion",
			"action", outcome.Action, "session", outcome.Session, "current", current)
		return
	}
	d.deliver(outcome)
}
