package search

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"cseek/internal/domain"
	"cseek/internal/eventbus"
	"cseek/internal/query"
	"cseek/internal/results"
)

// State is the orchestrator's lifecycle phase
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// batchSize bounds how many candidates one event carries
const batchSize = 32

// session owns exactly one live subprocess. It is superseded (killed, buffers
// discarded) as soon as the input changes again.
type session struct {
	id     uint64
	cancel context.CancelFunc
	cmd    *exec.Cmd
}

// Orchestrator owns the subprocess lifecycle for one interaction: launch on
// input change, kill-and-relaunch on further change, terminate on exit. At
// most one subprocess is live at any instant, and output from a superseded
// session is never delivered.
type Orchestrator struct {
	bus      eventbus.EventBus
	splitter *query.Splitter
	compiler query.Compiler
	builder  *query.Builder
	db       domain.DatabaseLocation
	maxWidth int
	timeout  time.Duration // 0 means no subprocess deadline

	mu         sync.Mutex
	state      State
	generation uint64
	current    *session
	lastRaw    string
	lastType   domain.SearchType
	wg         sync.WaitGroup

	unsubscribe []func()
}

// NewOrchestrator creates an orchestrator bound to a resolved database. It
// subscribes to query-change and index-rebuild events on the bus.
func NewOrchestrator(
	bus eventbus.EventBus,
	splitter *query.Splitter,
	compiler query.Compiler,
	builder *query.Builder,
	db domain.DatabaseLocation,
	maxWidth int,
) *Orchestrator {
	o := &Orchestrator{
		bus:      bus,
		splitter: splitter,
		compiler: compiler,
		builder:  builder,
		db:       db,
		maxWidth: maxWidth,
		state:    StateIdle,
	}

	o.unsubscribe = append(o.unsubscribe,
		bus.Subscribe(eventbus.EventQueryChanged, func(e eventbus.DomainEvent) {
			if event, ok := e.(eventbus.QueryChangedEvent); ok {
				o.OnInputChange(event.Raw, event.SearchType)
			}
		}),
		bus.Subscribe(eventbus.EventIndexRebuilt, func(e eventbus.DomainEvent) {
			if _, ok := e.(eventbus.IndexRebuiltEvent); ok {
				o.rerun()
			}
		}),
	)

	return o
}

// SetTimeout imposes a host deadline on each subprocess
func (o *Orchestrator) SetTimeout(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeout = d
}

// State returns the current lifecycle phase
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Generation returns the identifier of the newest session. Events stamped
// with an older session id are stale.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation
}

// OnInputChange supersedes any running search and, when the input compiles to
// a usable pattern, launches a fresh subprocess for it. A pattern the
// compiler rejects is not an error: the session finishes immediately with
// zero candidates.
func (o *Orchestrator) OnInputChange(raw string, st domain.SearchType) {
	o.mu.Lock()
	if o.state == StateTerminated {
		o.mu.Unlock()
		return
	}
	o.lastRaw = raw
	o.lastType = st
	o.cancelCurrentLocked()
	o.generation++
	gen := o.generation
	o.state = StateLaunching
	timeout := o.timeout
	o.mu.Unlock()

	split := o.splitter.Split(raw)

	compiled, err := o.compiler.Compile(split.Pattern, query.SearchMode(st), o.builder.CaseInsensitive(split.ExtraArgs))
	if err != nil {
		o.finishWithout(gen, err)
		return
	}

	inv, err := o.builder.Build(st, compiled, o.db, split.ExtraArgs)
	if err != nil {
		o.finishWithout(gen, err)
		return
	}

	o.launch(gen, inv, compiled, split.Pattern, st, timeout)
}

// Terminate kills any live subprocess and releases all resources. The
// orchestrator accepts no further input afterwards.
func (o *Orchestrator) Terminate() {
	o.mu.Lock()
	o.cancelCurrentLocked()
	o.state = StateTerminated
	o.mu.Unlock()

	for _, unsub := range o.unsubscribe {
		unsub()
	}
	o.wg.Wait()
}

// rerun repeats the last query, used after the index file was rebuilt
func (o *Orchestrator) rerun() {
	o.mu.Lock()
	raw, st := o.lastRaw, o.lastType
	terminated := o.state == StateTerminated
	o.mu.Unlock()

	if terminated || raw == "" {
		return
	}
	log.Printf("search: re-running %q against rebuilt index", raw)
	o.OnInputChange(raw, st)
}

// finishWithout reports a session that never launched a subprocess: an
// unusable pattern simply yields zero candidates until the input changes.
func (o *Orchestrator) finishWithout(gen uint64, err error) {
	o.mu.Lock()
	if o.generation == gen {
		o.state = StateIdle
	}
	o.mu.Unlock()

	if !errors.Is(err, query.ErrNoPattern) {
		o.bus.Publish(eventbus.ErrorEvent{Message: "cannot build search command", Err: err})
		return
	}
	o.bus.Publish(eventbus.SearchFinishedEvent{Session: gen, Total: 0})
}

// launch starts the subprocess and its reader goroutine
func (o *Orchestrator) launch(gen uint64, inv domain.Invocation, compiled query.Compiled, pattern string, st domain.SearchType, timeout time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	}

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir

	stdout, err := cmd.StdoutPipe()
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		// Recoverable: the index file or program may have disappeared
		// between check and launch. The interaction stays open.
		cancel()
		o.mu.Lock()
		if o.generation == gen {
			o.state = StateIdle
		}
		o.mu.Unlock()
		log.Printf("search: launch failed: %v", err)
		o.bus.Publish(eventbus.SearchFailedEvent{Session: gen, Reason: inv.Program + " could not be started", Err: err})
		return
	}

	sess := &session{id: gen, cancel: cancel, cmd: cmd}

	o.mu.Lock()
	if o.generation != gen || o.state == StateTerminated {
		// Superseded while starting up
		o.mu.Unlock()
		cancel()
		cmd.Wait()
		return
	}
	o.current = sess
	o.state = StateRunning
	o.mu.Unlock()

	o.bus.Publish(eventbus.SearchStartedEvent{Session: gen, Pattern: pattern, SearchType: st})

	formatter := results.NewFormatter(o.maxWidth, compiled.Highlight)

	o.wg.Add(1)
	go o.stream(sess, stdout, formatter)
}

// stream reads subprocess output line by line, parses candidates and
// publishes them in write order. Output from a superseded session is
// discarded at the gate before every publish.
func (o *Orchestrator) stream(sess *session, stdout io.Reader, formatter *results.Formatter) {
	defer o.wg.Done()

	total := 0
	batch := make([]domain.Candidate, 0, batchSize)

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if !o.isCurrent(sess.id) {
			return false
		}
		o.bus.Publish(eventbus.CandidatesFoundEvent{Session: sess.id, Candidates: batch})
		total += len(batch)
		batch = make([]domain.Candidate, 0, batchSize)
		return true
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if !o.isCurrent(sess.id) {
			break
		}
		candidate, ok := formatter.ParseLine(scanner.Text())
		if !ok {
			// Diagnostic chatter from the indexer, not a candidate
			continue
		}
		batch = append(batch, candidate)
		if len(batch) >= batchSize {
			if !flush() {
				break
			}
		}
	}

	live := flush()
	err := sess.cmd.Wait()
	sess.cancel()

	o.mu.Lock()
	if o.generation == sess.id && o.state == StateRunning {
		o.current = nil
		o.state = StateIdle
	}
	o.mu.Unlock()

	if !live || !o.isCurrent(sess.id) {
		return
	}
	if err != nil {
		// cscope exits non-zero for some empty result sets; the streamed
		// candidates already tell the story, so log and finish normally.
		log.Printf("search: subprocess exit: %v", err)
	}
	o.bus.Publish(eventbus.SearchFinishedEvent{Session: sess.id, Total: total})
}

// cancelCurrentLocked kills the live subprocess, if any. Caller holds o.mu.
// The kill is issued synchronously; the reader goroutine notices and drains
// on its own, its remaining output discarded by the generation gate.
func (o *Orchestrator) cancelCurrentLocked() {
	if o.current == nil {
		return
	}
	o.current.cancel()
	if o.current.cmd.Process != nil {
		_ = o.current.cmd.Process.Kill()
	}
	o.current = nil
}

// isCurrent reports whether the session is still the newest one
func (o *Orchestrator) isCurrent(id uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation == id && o.state != StateTerminated
}
