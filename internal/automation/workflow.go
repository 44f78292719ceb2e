package automation

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"qiandao/internal/progress"
	"qiandao/internal/screen"
)

// ProofSaver persists the confirmation screenshot and returns its path.
type ProofSaver interface {
	Save(img image.Image) (string, error)
}

// Config is everything a workflow needs besides its collaborators. It is
// resolved once per run and never mutated afterwards.
type Config struct {
	Positions Positions
	Timings   Timings
	// WaitColors turns the page and panel waits into real pixel checks.
	WaitColors map[PositionName]screen.Color
	// VerifyColors makes a click succeed only once its target shows the colour.
	VerifyColors map[PositionName]screen.Color
}

// DefaultConfig uses the shipped coordinates and timings without colour
// gating.
func DefaultConfig() Config {
	return Config{Positions: DefaultPositions(), Timings: DefaultTimings()}
}

// Workflow runs the sign-in sequence once. It is not safe for concurrent use;
// callers serialise runs.
type Workflow struct {
	display  screen.Display
	proof    ProofSaver
	reporter progress.Reporter
	clock    Clock
	runID    string

	positions    Positions
	timings      Timings
	waitColors   map[PositionName]screen.Color
	verifyColors map[PositionName]screen.Color

	stage atomic.Int32
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(w *Workflow) { w.clock = c }
}

// WithReporter sets where progress events go.
func WithReporter(r progress.Reporter) Option {
	return func(w *Workflow) { w.reporter = r }
}

// WithRunID tags every event and the result with id.
func WithRunID(id string) Option {
	return func(w *Workflow) { w.runID = id }
}

// New validates cfg and builds a workflow over d.
func New(d screen.Display, proof ProofSaver, cfg Config, opts ...Option) (*Workflow, error) {
	if d == nil {
		return nil, errors.New("workflow: display is required")
	}
	if proof == nil {
		return nil, errors.New("workflow: proof saver is required")
	}
	if err := cfg.Positions.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	if err := cfg.Timings.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}

	w := &Workflow{
		display:      d,
		proof:        proof,
		reporter:     progress.Discard,
		clock:        SystemClock,
		positions:    cfg.Positions.Clone(),
		timings:      cfg.Timings,
		waitColors:   copyColors(cfg.WaitColors),
		verifyColors: copyColors(cfg.VerifyColors),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Stage returns the state the workflow is currently in.
func (w *Workflow) Stage() Stage {
	return Stage(w.stage.Load())
}

// Run executes every stage in order and returns the verdict. The first
// failing stage ends the run; nothing after it is clicked.
func (w *Workflow) Run() (res Result) {
	started := w.clock.Now()
	defer func() {
		res.RunID = w.runID
		res.StartedAt = started
		res.FinishedAt = w.clock.Now()
	}()

	w.emit(progress.LevelInfo, progress.KindRun, "starting sign-in workflow...")
	if width, height, err := w.display.Size(); err != nil {
		w.emit(progress.LevelWarn, progress.KindRun, "could not read screen size: %v", err)
	} else {
		w.emit(progress.LevelInfo, progress.KindRun, "screen resolution: %d x %d", width, height)
	}

	path, err := w.execute()
	if err != nil {
		stage := w.Stage()
		desc := err.Error()
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
			desc = se.Description
		}
		aborted := IsAbort(err)
		if aborted {
			desc += " (panic switch engaged)"
		}
		msg := "sign-in failed: " + desc

		w.stage.Store(int32(StageDone))
		w.emit(progress.LevelError, progress.KindResult, "%s", msg)
		r := failed(stage, msg)
		r.Aborted = aborted
		return r
	}

	msg := "sign-in succeeded! screenshot saved to: " + path
	w.stage.Store(int32(StageDone))
	w.emit(progress.LevelSuccess, progress.KindResult, "%s", msg)
	return succeeded(path, msg)
}

func (w *Workflow) execute() (string, error) {
	w.enter(StageActivatingWindow, "activating browser window...")
	if err := w.activateWindow(); err != nil {
		return "", err
	}
	w.done("browser window activated")

	w.enter(StageNavigating, "opening game bookmark...")
	if err := w.navigate(StageNavigating, ""); err != nil {
		return "", err
	}
	w.done("game page opened")

	// The first pass sometimes lands while the browser still lacks focus.
	w.enter(StageRenavigating, "re-verifying game page...")
	w.clock.Sleep(w.timings.LongWait)
	if err := w.navigate(StageRenavigating, " (again)"); err != nil {
		return "", err
	}
	w.done("game page re-verified")

	w.enter(StageAwaitingPageLoad, "waiting for game page to load (max %s)...", w.timings.PageLoadTimeout)
	if err := w.await(StageAwaitingPageLoad, GameLink, w.timings.PageLoadTimeout, "game page load timed out"); err != nil {
		return "", err
	}
	w.done("game page loaded")

	w.enter(StageClickingSignTab, "clicking sign-in tab...")
	if err := w.click(StageClickingSignTab, SignTab, "sign-in tab", "clicking sign-in tab failed"); err != nil {
		return "", err
	}
	w.done("sign-in tab opened")

	w.enter(StageAwaitingPanelLoad, "waiting for sign-in panel to load (max %s)...", w.timings.PanelLoadTimeout)
	if err := w.await(StageAwaitingPanelLoad, SignButton, w.timings.PanelLoadTimeout, "sign-in panel load timed out"); err != nil {
		return "", err
	}
	w.done("sign-in panel loaded")

	w.enter(StageClickingSignButton, "clicking sign-in button...")
	if err := w.click(StageClickingSignButton, SignButton, "sign-in button", "clicking sign-in button failed"); err != nil {
		return "", err
	}
	w.done("sign-in button clicked")

	w.enter(StageCapturingProof, "capturing proof screenshot...")
	w.clock.Sleep(w.timings.ProofDelay)
	img, err := w.display.Capture()
	if err != nil {
		return "", &StageError{Stage: StageCapturingProof, Description: "capturing proof screenshot failed", Err: err}
	}
	path, err := w.proof.Save(img)
	if err != nil {
		return "", &StageError{Stage: StageCapturingProof, Description: "saving proof screenshot failed", Err: err}
	}
	w.done("proof screenshot saved: %s", path)
	return path, nil
}

func (w *Workflow) activateWindow() error {
	const desc = "browser window activation failed"
	if err := w.click(StageActivatingWindow, BrowserIcon, "browser icon", desc); err != nil {
		return err
	}
	w.clock.Sleep(w.timings.ActivateSettle)
	// Second click brings the window to the front.
	if err := w.display.Click(w.positions[BrowserIcon]); err != nil {
		return &StageError{Stage: StageActivatingWindow, Description: desc, Err: err}
	}
	return nil
}

func (w *Workflow) navigate(stage Stage, suffix string) error {
	steps := []struct {
		pos  PositionName
		name string
	}{
		{Bookmark, "bookmark bar"},
		{GameSubtab, "game sub-tab"},
		{GameLink, "game link"},
	}
	for _, s := range steps {
		name := s.name + suffix
		if err := w.click(stage, s.pos, name, "clicking "+name+" failed"); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workflow) click(stage Stage, pos PositionName, name, failDesc string) error {
	var target *screen.Color
	if c, ok := w.verifyColors[pos]; ok {
		target = &c
	}
	ok, err := w.ClickWithRetry(pos, name, target)
	if err != nil {
		return &StageError{Stage: stage, Description: failDesc, Err: err}
	}
	if !ok {
		return &StageError{Stage: stage, Description: failDesc}
	}
	return nil
}

func (w *Workflow) await(stage Stage, pos PositionName, timeout time.Duration, failDesc string) error {
	spec := WaitSpec{Position: pos, Timeout: timeout}
	if c, ok := w.waitColors[pos]; ok {
		spec.Target = &c
	}
	ok, err := w.AwaitCondition(spec)
	if err != nil {
		return &StageError{Stage: stage, Description: failDesc, Err: err}
	}
	if !ok {
		return &StageError{Stage: stage, Description: failDesc, Err: ErrStepTimeout}
	}
	return nil
}

func (w *Workflow) enter(s Stage, format string, args ...interface{}) {
	w.stage.Store(int32(s))
	w.emit(progress.LevelInfo, progress.KindStage, format, args...)
}

func (w *Workflow) done(format string, args ...interface{}) {
	w.emit(progress.LevelSuccess, progress.KindStageDone, format, args...)
}

func (w *Workflow) emit(level progress.Level, kind progress.Kind, format string, args ...interface{}) {
	w.reporter.Report(progress.Event{
		RunID:   w.runID,
		Time:    w.clock.Now(),
		Level:   level,
		Kind:    kind,
		Stage:   w.Stage().String(),
		Message: fmt.Sprintf(format, args...),
	})
}

func (w *Workflow) point(name PositionName) (screen.Point, error) {
	p, ok := w.positions[name]
	if !ok {
		return screen.Point{}, fmt.Errorf("unknown position %q", name)
	}
	return p, nil
}

func copyColors(in map[PositionName]screen.Color) map[PositionName]screen.Color {
	out := make(map[PositionName]screen.Color, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
