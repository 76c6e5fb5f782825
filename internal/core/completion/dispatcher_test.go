package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubClient struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	gate  chan struct{}
}

func (c *stubClient) Complete(ctx context.Context, req Request) (*Result, error) {
	c.mu.Lock()
	c.calls++
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return &Result{Text: c.text}, nil
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func constSession(id uint64) func() uint64 {
	return func() uint64 { return id }
}

func newTestDispatcher(t *testing.T, client Client, current func() uint64) (*Dispatcher, chan Outcome) {
	t.Helper()
	deliveries := make(chan Outcome, 8)
	dispatcher, err := NewDispatcher(client, current, func(o Outcome) { deliveries <- o }, noopLogger{})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return dispatcher, deliveries
}

func awaitOutcome(t *testing.T, deliveries chan Outcome) Outcome {
	t.Helper()
	select {
	case outcome := <-deliveries:
		return outcome
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for outcome")
		return Outcome{}
	}
}

func TestSubmitDeliversResult(t *testing.T) {
	client := &stubClient{text: "This is a test."}
	dispatcher, deliveries := newTestDispatcher(t, client, constSession(1))

	if !dispatcher.Submit("improve", 1, "", BuildMessages(ModeImprove, ToneProfessional, "this is a test."), "this is a test.") {
		t.Fatalf("Submit() = false, want true")
	}

	outcome := awaitOutcome(t, deliveries)
	if outcome.Failed {
		t.Fatalf("unexpected failure: %q", outcome.Message)
	}
	if outcome.Action != "improve" || outcome.Session != 1 {
		t.Fatalf("unexpected outcome identity: %#v", outcome)
	}
	if outcome.Text != "This is a test." {
		t.Fatalf("outcome text = %q", outcome.Text)
	}
	if dispatcher.Pending("improve") {
		t.Fatalf("expected action to be idle after delivery")
	}
}

func TestSubmitRejectsWhilePending(t *testing.T) {
	gate := make(chan struct{})
	client := &stubClient{text: "done", gate: gate}
	dispatcher, deliveries := newTestDispatcher(t, client, constSession(1))

	if !dispatcher.Submit("improve", 1, "", BuildMessages(ModeImprove, ToneProfessional, "text"), "text") {
		t.Fatalf("first Submit() = false, want true")
	}
	// Wait until the worker reached the client before re-submitting.
	deadline := time.Now().Add(time.Second)
	for client.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("worker never called the client")
		}
		time.Sleep(time.Millisecond)
	}

	if dispatcher.Submit("improve", 1, "", BuildMessages(ModeImprove, ToneProfessional, "text"), "text") {
		t.Fatalf("second Submit() = true, want rejection while pending")
	}
	// A different action is independent.
	if !dispatcher.Submit("interview", 1, "", BuildMessages(ModeInterview, ToneProfessional, "text"), "text") {
		t.Fatalf("Submit() for independent action = false, want true")
	}

	close(gate)
	awaitOutcome(t, deliveries)
	awaitOutcome(t, deliveries)

	if got := client.callCount(); got != 2 {
		t.Fatalf("client called %d times, want 2", got)
	}
}

func TestStaleOutcomeIsDropped(t *testing.T) {
	client := &stubClient{text: "late result"}
	dispatcher, deliveries := newTestDispatcher(t, client, constSession(2))

	if !dispatcher.Submit("improve", 1, "", BuildMessages(ModeImprove, ToneProfessional, "text"), "text") {
		t.Fatalf("Submit() = false, want true")
	}

	select {
	case outcome := <-deliveries:
		t.Fatalf("stale outcome delivered: %#v", outcome)
	case <-time.After(200 * time.Millisecond):
	}

	// The action must be re-armed even though nothing was delivered.
	deadline := time.Now().Add(time.Second)
	for dispatcher.Pending("improve") {
		if time.Now().After(deadline) {
			t.Fatalf("action still pending after stale drop")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubmitEmptyInputShortCircuits(t *testing.T) {
	client := &stubClient{text: "unused"}
	dispatcher, deliveries := newTestDispatcher(t, client, constSession(1))

	if !dispatcher.Submit("improve", 1, "", nil, "   ") {
		t.Fatalf("Submit() = false, want true")
	}

	outcome := awaitOutcome(t, deliveries)
	if !outcome.Failed {
		t.Fatalf("expected failure for empty input")
	}
	if outcome.Message != emptyInputMessage {
		t.Fatalf("outcome message = %q", outcome.Message)
	}
	if client.callCount() != 0 {
		t.Fatalf("client should not be called for empty input")
	}
}

func TestFailureOutcomeCarriesClassifiedMessage(t *testing.T) {
	client := &stubClient{err: errors.New("429 rate limit exceeded")}
	dispatcher, deliveries := newTestDispatcher(t, client, constSession(1))

	dispatcher.Submit("improve", 1, "", BuildMessages(ModeImprove, ToneProfessional, "text"), "text")

	outcome := awaitOutcome(t, deliveries)
	if !outcome.Failed {
		t.Fatalf("expected failure outcome")
	}
	if outcome.Kind != KindRateLimited {
		t.Fatalf("outcome kind = %v, want rate limited", outcome.Kind)
	}
	if outcome.Message != UserMessage(KindRateLimited, "") {
		t.Fatalf("outcome message = %q", outcome.Message)
	}
}
