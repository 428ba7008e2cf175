package search

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cseek/internal/domain"
	"cseek/internal/eventbus"
	"cseek/internal/query"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeScript creates an executable standing in for the indexer. The script
// receives the usual argument shape (-f <db> -L<code><pattern> ...).
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-indexer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

// recorder collects bus events for assertions
type recorder struct {
	mu     sync.Mutex
	events []eventbus.DomainEvent
}

func (r *recorder) record(e eventbus.DomainEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []eventbus.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventbus.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) candidates() []domain.Candidate {
	var out []domain.Candidate
	for _, e := range r.snapshot() {
		if batch, ok := e.(eventbus.CandidatesFoundEvent); ok {
			out = append(out, batch.Candidates...)
		}
	}
	return out
}

func (r *recorder) finished() bool {
	for _, e := range r.snapshot() {
		if _, ok := e.(eventbus.SearchFinishedEvent); ok {
			return true
		}
	}
	return false
}

func (r *recorder) failed() int {
	n := 0
	for _, e := range r.snapshot() {
		if _, ok := e.(eventbus.SearchFailedEvent); ok {
			n++
		}
	}
	return n
}

// newTestOrchestrator wires an orchestrator against a fake indexer
func newTestOrchestrator(t *testing.T, program string) (*Orchestrator, *recorder) {
	t.Helper()

	dbDir := t.TempDir()
	db := domain.DatabaseLocation{Path: filepath.Join(dbDir, "cscope.out"), Directory: dbDir}
	require.NoError(t, os.WriteFile(db.Path, []byte("cscope 15\n"), 0644))

	bus := eventbus.New()
	t.Cleanup(bus.Close)

	rec := &recorder{}
	for _, et := range []eventbus.EventType{
		eventbus.EventSearchStarted,
		eventbus.EventCandidatesFound,
		eventbus.EventSearchFinished,
		eventbus.EventSearchFailed,
		eventbus.EventError,
	} {
		bus.Subscribe(et, rec.record)
	}

	orch := NewOrchestrator(bus, query.NewSplitter('#'), query.NewCompiler(),
		query.NewBuilder(program, nil), db, 120)
	t.Cleanup(orch.Terminate)

	return orch, rec
}

func TestStreamsCandidatesInOrder(t *testing.T) {
	script := writeScript(t, `
echo "a.c main 1 first line"
echo "cscope: some diagnostic chatter"
echo "a.c main 2 second line"
echo "b.c helper 3 third line"`)
	orch, rec := newTestOrchestrator(t, script)

	orch.OnInputChange("#foo", domain.SearchSymbol)

	require.Eventually(t, rec.finished, 3*time.Second, 20*time.Millisecond)

	got := rec.candidates()
	require.Len(t, got, 3, "chatter lines are skipped, not errors")
	assert.Equal(t, "first line", got[0].Content)
	assert.Equal(t, "second line", got[1].Content)
	assert.Equal(t, "third line", got[2].Content)
	assert.Equal(t, StateIdle, orch.State())
}

func TestSupersededSessionOutputDiscarded(t *testing.T) {
	// The first invocation stalls before emitting; the second answers
	// immediately. Nothing attributable to the first may ever surface.
	script := writeScript(t, `
case "$3" in
*slow*) sleep 2; echo "a.c f 1 from the slow session" ;;
*) echo "b.c g 2 from the fast session" ;;
esac`)
	orch, rec := newTestOrchestrator(t, script)

	orch.OnInputChange("#slow", domain.SearchSymbol)
	time.Sleep(100 * time.Millisecond)
	orch.OnInputChange("#fast", domain.SearchSymbol)

	require.Eventually(t, func() bool {
		return len(rec.candidates()) > 0
	}, 3*time.Second, 20*time.Millisecond)

	// Give the superseded subprocess time to have emitted, were it alive
	time.Sleep(2500 * time.Millisecond)

	for _, c := range rec.candidates() {
		assert.NotContains(t, c.Content, "slow session",
			"superseded session output must never be delivered")
	}
}

func TestCandidatesCarryCurrentSessionID(t *testing.T) {
	script := writeScript(t, `echo "a.c f 1 hello"`)
	orch, rec := newTestOrchestrator(t, script)

	orch.OnInputChange("#one", domain.SearchSymbol)
	require.Eventually(t, rec.finished, 3*time.Second, 20*time.Millisecond)

	gen := orch.Generation()
	for _, e := range rec.snapshot() {
		if batch, ok := e.(eventbus.CandidatesFoundEvent); ok {
			assert.Equal(t, gen, batch.Session)
		}
	}
}

func TestLaunchFailureIsRecoverable(t *testing.T) {
	orch, rec := newTestOrchestrator(t, "/no/such/program")

	orch.OnInputChange("#foo", domain.SearchSymbol)
	require.Eventually(t, func() bool { return rec.failed() == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, StateIdle, orch.State(), "launch failure leaves the interaction open")

	// The user retypes; the orchestrator must still be operational
	orch.OnInputChange("#bar", domain.SearchSymbol)
	require.Eventually(t, func() bool { return rec.failed() == 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestEmptyPatternYieldsZeroCandidates(t *testing.T) {
	script := writeScript(t, `echo "a.c f 1 should never run"`)
	orch, rec := newTestOrchestrator(t, script)

	orch.OnInputChange("", domain.SearchSymbol)
	require.Eventually(t, rec.finished, 3*time.Second, 20*time.Millisecond)

	assert.Empty(t, rec.candidates(), "no subprocess may be launched without a pattern")
	for _, e := range rec.snapshot() {
		_, started := e.(eventbus.SearchStartedEvent)
		assert.False(t, started)
	}
}

func TestTerminateKillsLiveSubprocess(t *testing.T) {
	script := writeScript(t, `sleep 30`)
	orch, _ := newTestOrchestrator(t, script)

	orch.OnInputChange("#foo", domain.SearchSymbol)
	require.Eventually(t, func() bool {
		return orch.State() == StateRunning
	}, 3*time.Second, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		orch.Terminate()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Terminate did not return; subprocess not killed")
	}
	assert.Equal(t, StateTerminated, orch.State())

	// Input after termination is ignored
	orch.OnInputChange("#bar", domain.SearchSymbol)
	assert.Equal(t, StateTerminated, orch.State())
}

func TestHostTimeoutBoundsSubprocess(t *testing.T) {
	script := writeScript(t, `sleep 30`)
	orch, _ := newTestOrchestrator(t, script)
	orch.SetTimeout(200 * time.Millisecond)

	orch.OnInputChange("#foo", domain.SearchSymbol)

	require.Eventually(t, func() bool {
		return orch.State() == StateIdle
	}, 5*time.Second, 50*time.Millisecond, "timed-out subprocess must be reaped")
}

func TestQueryChangedEventDrivesSearch(t *testing.T) {
	script := writeScript(t, `echo "a.c f 1 via the bus"`)

	dbDir := t.TempDir()
	db := domain.DatabaseLocation{Path: filepath.Join(dbDir, "cscope.out"), Directory: dbDir}
	require.NoError(t, os.WriteFile(db.Path, []byte("cscope 15\n"), 0644))

	bus := eventbus.New()
	t.Cleanup(bus.Close)

	rec := &recorder{}
	bus.Subscribe(eventbus.EventCandidatesFound, rec.record)

	orch := NewOrchestrator(bus, query.NewSplitter('#'), query.NewCompiler(),
		query.NewBuilder(script, nil), db, 120)
	t.Cleanup(orch.Terminate)

	bus.Publish(eventbus.QueryChangedEvent{Raw: "#foo", SearchType: domain.SearchSymbol})

	require.Eventually(t, func() bool {
		return len(rec.candidates()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "via the bus", rec.candidates()[0].Content)
}

func TestIndexRebuiltRerunsLastQuery(t *testing.T) {
	script := writeScript(t, `echo "a.c f 1 result"`)

	dbDir := t.TempDir()
	db := domain.DatabaseLocation{Path: filepath.Join(dbDir, "cscope.out"), Directory: dbDir}
	require.NoError(t, os.WriteFile(db.Path, []byte("cscope 15\n"), 0644))

	bus := eventbus.New()
	t.Cleanup(bus.Close)

	rec := &recorder{}
	bus.Subscribe(eventbus.EventSearchStarted, rec.record)

	orch := NewOrchestrator(bus, query.NewSplitter('#'), query.NewCompiler(),
		query.NewBuilder(script, nil), db, 120)
	t.Cleanup(orch.Terminate)

	orch.OnInputChange("#foo", domain.SearchSymbol)
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 3*time.Second, 20*time.Millisecond)

	bus.Publish(eventbus.IndexRebuiltEvent{Path: db.Path})

	require.Eventually(t, func() bool {
		events := rec.snapshot()
		if len(events) < 2 {
			return false
		}
		second := events[1].(eventbus.SearchStartedEvent)
		return second.Pattern == "foo"
	}, 3*time.Second, 20*time.Millisecond, "rebuild must re-run the last query")
}

func TestTruncationAppliedToContent(t *testing.T) {
	long := strings.Repeat("y", 300)
	script := writeScript(t, `echo "a.c f 1 `+long+`"`)

	dbDir := t.TempDir()
	db := domain.DatabaseLocation{Path: filepath.Join(dbDir, "cscope.out"), Directory: dbDir}
	require.NoError(t, os.WriteFile(db.Path, []byte("cscope 15\n"), 0644))

	bus := eventbus.New()
	t.Cleanup(bus.Close)

	rec := &recorder{}
	bus.Subscribe(eventbus.EventCandidatesFound, rec.record)

	orch := NewOrchestrator(bus, query.NewSplitter('#'), query.NewCompiler(),
		query.NewBuilder(script, nil), db, 40)
	t.Cleanup(orch.Terminate)

	orch.OnInputChange("#y", domain.SearchSymbol)

	require.Eventually(t, func() bool {
		return len(rec.candidates()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.LessOrEqual(t, len([]rune(rec.candidates()[0].Content)), 40)
}
