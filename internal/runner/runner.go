// Package runner serialises sign-in runs onto one dedicated worker so that
// only one workflow ever drives the mouse.
package runner

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"qiandao/internal/automation"
	"qiandao/internal/progress"
)

var (
	// ErrBusy is returned when a run is requested while another is in flight.
	ErrBusy = errors.New("a sign-in run is already in progress")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("runner stopped")
)

// Source records who asked for a run.
type Source string

const (
	SourceManual    Source = "manual"
	SourceScheduled Source = "scheduled"
	SourceHTTP      Source = "http"
	SourceMCP       Source = "mcp"
)

// Job executes one workflow run under the given id.
type Job func(runID string) automation.Result

// Listener is told about every finished run, in completion order.
type Listener func(src Source, res automation.Result)

// Status is a snapshot of the runner.
type Status struct {
	Running    bool               `json:"running"`
	RunID      string             `json:"runId,omitempty"`
	Source     Source             `json:"source,omitempty"`
	Stage      string             `json:"stage,omitempty"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	Last       *automation.Result `json:"last,omitempty"`
	LastSource Source             `json:"lastSource,omitempty"`
}

type request struct {
	id     string
	source Source
	reply  chan automation.Result
}

// Runner accepts run requests from any goroutine and executes them one at a
// time on its worker.
type Runner struct {
	job   Job
	newID func() string

	reqs chan request
	stop chan struct{}
	done chan struct{}

	mu        sync.Mutex
	busy      bool
	stopped   bool
	current   request
	stage     string
	startedAt time.Time
	last      *automation.Result
	lastSrc   Source
	listeners []Listener
}

// New starts the worker goroutine.
func New(job Job) *Runner {
	r := &Runner{
		job:   job,
		newID: uuid.NewString,
		reqs:  make(chan request, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

// OnResult registers a listener for finished runs.
func (r *Runner) OnResult(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Submit queues a run and returns its id without waiting for it.
func (r *Runner) Submit(src Source) (string, error) {
	req, err := r.accept(src, nil)
	return req.id, err
}

// RunSync queues a run and blocks until it finishes.
func (r *Runner) RunSync(src Source) (automation.Result, error) {
	reply := make(chan automation.Result, 1)
	if _, err := r.accept(src, reply); err != nil {
		return automation.Result{}, err
	}
	return <-reply, nil
}

func (r *Runner) accept(src Source, reply chan automation.Result) (request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return request{}, ErrStopped
	}
	if r.busy {
		return request{}, ErrBusy
	}
	req := request{id: r.newID(), source: src, reply: reply}
	r.busy = true
	r.current = req
	r.stage = automation.StageIdle.String()
	r.startedAt = time.Now()
	// Never blocks: busy guarantees the buffer is empty.
	r.reqs <- req
	log.Printf("[runner] accepted %s run %s", src, req.id)
	return req, nil
}

// Status returns a snapshot.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{Running: r.busy, LastSource: r.lastSrc}
	if r.busy {
		started := r.startedAt
		st.RunID = r.current.id
		st.Source = r.current.source
		st.Stage = r.stage
		st.StartedAt = &started
	}
	if r.last != nil {
		last := *r.last
		st.Last = &last
	}
	return st
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Handle tracks the stage of the current run from progress events.
func (r *Runner) Handle(e progress.Event) {
	if e.Kind != progress.KindStage {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy && e.RunID == r.current.id {
		r.stage = e.Stage
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	// Input synthesis stays on one OS thread for the life of the process.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case req := <-r.reqs:
			r.execute(req)
		case <-r.stop:
			// A request accepted just before Stop still runs.
			select {
			case req := <-r.reqs:
				r.execute(req)
			default:
			}
			return
		}
	}
}

func (r *Runner) execute(req request) {
	res := r.call(req)
	if res.RunID == "" {
		res.RunID = req.id
	}

	r.mu.Lock()
	r.busy = false
	r.last = &res
	r.lastSrc = req.source
	r.current = request{}
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	log.Printf("[runner] %s run %s finished: success=%v", req.source, res.RunID, res.Success)
	for _, l := range listeners {
		l(req.source, res)
	}
	if req.reply != nil {
		req.reply <- res
	}
}

func (r *Runner) call(req request) (res automation.Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[runner] run %s panicked: %v", req.id, p)
			now := time.Now()
			res = automation.Result{
				RunID:      req.id,
				Message:    fmt.Sprintf("sign-in failed: internal error: %v", p),
				Stage:      automation.StageIdle,
				StartedAt:  now,
				FinishedAt: now,
			}
		}
	}()
	return r.job(req.id)
}

// Stop refuses new runs and waits up to grace for the one in flight.
func (r *Runner) Stop(grace time.Duration) error {
	r.mu.Lock()
	first := !r.stopped
	r.stopped = true
	r.mu.Unlock()
	if first {
		close(r.stop)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-r.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("run still in progress after %s", grace)
	}
}
