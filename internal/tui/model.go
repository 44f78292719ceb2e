// Package tui is the interactive dashboard: schedule control, a live
// progress log and the result of each sign-in.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qiandao/internal/app"
	"qiandao/internal/automation"
	"qiandao/internal/progress"
	"qiandao/internal/runner"
	"qiandao/internal/scheduler"
)

// maxLogLines bounds the log viewport's backing buffer.
const maxLogLines = 500

// eventMsg carries one progress event from the bus.
type eventMsg progress.Event

// feedClosedMsg is sent once the bus subscription is cancelled.
type feedClosedMsg struct{}

// resultMsg is sent when any run finishes, whatever started it.
type resultMsg struct {
	source runner.Source
	result automation.Result
}

// statusTickMsg triggers a periodic refresh of runner and schedule state.
type statusTickMsg struct{}

func statusTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg(e)
	}
}

func waitForResult(ch <-chan resultMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Model is the dashboard state.
type Model struct {
	app     *app.App
	events  <-chan progress.Event
	results chan resultMsg
	cancel  func()

	help    help.Model
	spinner spinner.Model
	log     viewport.Model
	lines   []string

	// hour and minute are the edited daily time; dirty until saved.
	hour, minute int
	dirty        bool

	status   runner.Status
	schedOn  bool
	schedAt  scheduler.TimeOfDay
	next     time.Time
	last     *resultMsg
	dialog   *resultMsg
	warn     string
	statusOk string
	err      string

	width  int
	height int
}

// NewModel subscribes to a's progress bus and result stream.
func NewModel(a *app.App) Model {
	events, cancel := a.Bus.Subscribe(256)
	results := make(chan resultMsg, 4)
	a.Runner.OnResult(func(src runner.Source, res automation.Result) {
		select {
		case results <- resultMsg{source: src, result: res}:
		default:
		}
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusWarnStyle

	hour, minute := a.Config().Schedule.Clock()
	m := Model{
		app:     a,
		events:  events,
		results: results,
		cancel:  cancel,
		help:    help.New(),
		spinner: sp,
		log:     viewport.New(80, 10),
		hour:    hour,
		minute:  minute,
	}
	if e, ok, err := a.History.Last(); err == nil && ok {
		m.last = &resultMsg{source: runner.Source(e.Source), result: e.Result}
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		waitForResult(m.results),
		m.spinner.Tick,
		statusTick(),
	)
}

// refresh pulls runner and scheduler state.
func (m *Model) refresh() {
	m.status = m.app.Runner.Status()
	m.schedAt, m.schedOn = m.app.Scheduler.At()
	m.next = time.Time{}
	if next, ok := m.app.Scheduler.Next(); ok {
		m.next = next
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width - 4
		m.resizeLog()
		return m, nil

	case eventMsg:
		m.appendLog(progress.Event(msg))
		if msg.Kind == progress.KindStage || msg.Kind == progress.KindRun {
			m.refresh()
		}
		return m, waitForEvent(m.events)

	case feedClosedMsg:
		return m, nil

	case resultMsg:
		r := msg
		m.last = &r
		m.dialog = &r
		m.warn = ""
		m.refresh()
		return m, waitForResult(m.results)

	case statusTickMsg:
		m.refresh()
		return m, statusTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}

	// A result dialog swallows everything until dismissed.
	if m.dialog != nil {
		if key.Matches(msg, keys.Dismiss) {
			m.dialog = nil
		}
		return m, nil
	}

	m.statusOk, m.err = "", ""
	switch {
	case key.Matches(msg, keys.Run):
		id, err := m.app.Runner.Submit(runner.SourceManual)
		switch {
		case errors.Is(err, runner.ErrBusy):
			m.warn = "a sign-in is already running"
		case err != nil:
			m.err = err.Error()
		default:
			m.warn = ""
			m.statusOk = "sign-in started (" + shortID(id) + ")"
		}
		m.refresh()

	case key.Matches(msg, keys.Toggle):
		if m.app.Scheduler.Running() {
			m.app.Scheduler.Stop()
			m.statusOk = "schedule stopped"
		} else if err := m.app.Scheduler.Start(scheduler.TimeOfDay{Hour: m.hour, Minute: m.minute}); err != nil {
			m.err = err.Error()
		} else {
			m.statusOk = fmt.Sprintf("schedule started, daily at %02d:%02d", m.hour, m.minute)
		}
		m.refresh()

	case key.Matches(msg, keys.HourUp):
		m.hour = (m.hour + 1) % 24
		m.dirty = true
	case key.Matches(msg, keys.HourDown):
		m.hour = (m.hour + 23) % 24
		m.dirty = true
	case key.Matches(msg, keys.MinuteUp):
		m.minute = (m.minute + 1) % 60
		m.dirty = true
	case key.Matches(msg, keys.MinuteDown):
		m.minute = (m.minute + 59) % 60
		m.dirty = true

	case key.Matches(msg, keys.Save):
		if err := m.app.SetSchedule(m.hour, m.minute); err != nil {
			m.err = err.Error()
		} else {
			m.dirty = false
			m.statusOk = fmt.Sprintf("daily time saved: %02d:%02d", m.hour, m.minute)
		}
		m.refresh()

	case key.Matches(msg, keys.Clear):
		m.lines = nil
		m.log.SetContent("")

	default:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) appendLog(e progress.Event) {
	line := mutedStyle.Render(e.Time.Format("15:04:05")) + " " + levelStyle(e.Level).Render(e.String())
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m *Model) resizeLog() {
	// appStyle padding(4) + log border and padding(4)
	w := m.width - 8
	// appStyle(2) + header(2) + panel(7) + log border(2) + status(1) + help(2)
	h := m.height - 16
	m.log.Width = max(20, w)
	m.log.Height = max(3, h)
}

func levelStyle(l progress.Level) lipgloss.Style {
	switch l {
	case progress.LevelSuccess:
		return statusOkStyle
	case progress.LevelWarn:
		return statusWarnStyle
	case progress.LevelError:
		return statusErrorStyle
	default:
		return valueStyle
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderPanel())
	b.WriteString("\n")

	if m.dialog != nil {
		b.WriteString(m.renderDialog())
	} else {
		b.WriteString(logStyle.Width(m.width - 6).Render(m.log.View()))
	}

	switch {
	case m.err != "":
		b.WriteString("\n")
		b.WriteString(statusErrorStyle.Render("  Error: " + m.err))
	case m.warn != "":
		b.WriteString("\n")
		b.WriteString(statusWarnStyle.Render("  ! " + m.warn))
	case m.statusOk != "":
		b.WriteString("\n")
		b.WriteString(statusOkStyle.Render("  " + m.statusOk))
	}

	b.WriteString("\n")
	if m.dialog != nil {
		b.WriteString(helpStyle.Render(m.help.View(dialogKeys{})))
	} else {
		b.WriteString(helpStyle.Render(m.help.View(keys)))
	}
	return appStyle.Render(b.String())
}

func (m Model) renderHeader() string {
	title := titleStyle.Render(" ⬡ qiandao ")
	state := mutedStyle.Render("schedule stopped")
	if m.schedOn {
		state = statusOkStyle.Render("● schedule running")
	}
	gap := strings.Repeat(" ", max(0, m.width-4-lipgloss.Width(title)-lipgloss.Width(state)))
	return title + gap + state
}

func (m Model) renderPanel() string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	sched := mutedStyle.Render("stopped")
	if m.schedOn {
		loc := m.app.Config().Schedule.Timezone
		sched = statusOkStyle.Render("running") + valueStyle.Render(fmt.Sprintf(" · daily %s %s", m.schedAt, loc))
	}

	next := mutedStyle.Render("-")
	if !m.next.IsZero() {
		next = valueStyle.Render(m.next.Format("2006-01-02 15:04") + " (in " + until(m.next) + ")")
	}

	at := fmt.Sprintf("%02d:%02d", m.hour, m.minute)
	if m.dirty {
		at = editStyle.Render(at) + mutedStyle.Render("  unsaved, w to save")
	} else {
		at = valueStyle.Render(at)
	}

	last := mutedStyle.Render("never")
	if m.last != nil {
		last = resultLine(m.last.result)
	}

	stage := mutedStyle.Render("idle")
	if m.status.Running {
		s := m.status.Stage
		if s == "" {
			s = "starting"
		}
		stage = m.spinner.View() + " " + valueStyle.Render(s)
	}

	rows := []string{
		row("Schedule", sched),
		row("Next run", next),
		row("Daily time", at),
		row("Last sign-in", last),
		row("Stage", stage),
	}
	return panelStyle.Width(m.width - 6).Render(strings.Join(rows, "\n"))
}

func (m Model) renderDialog() string {
	r := m.dialog.result
	title, style := "签到成功 · sign-in succeeded", statusOkStyle
	switch {
	case r.Aborted:
		title, style = "签到中止 · sign-in aborted", statusWarnStyle
	case !r.Success:
		title, style = "签到失败 · sign-in failed", statusErrorStyle
	}

	var b strings.Builder
	b.WriteString(style.Bold(true).Render(title))
	b.WriteString("\n\n")
	b.WriteString(valueStyle.Render(r.Message))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s · %s · stage %s", shortID(r.RunID), m.dialog.source, r.Stage)))
	if r.ScreenshotPath != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("proof: " + r.ScreenshotPath))
	}
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Italic(true).Render("press enter to dismiss"))

	return dialogStyle.BorderForeground(style.GetForeground()).Width(min(72, m.width-6)).Render(b.String())
}

func resultLine(r automation.Result) string {
	when := r.FinishedAt.Format("2006-01-02 15:04")
	switch {
	case r.Success:
		return statusOkStyle.Render("✓ ") + valueStyle.Render(when)
	case r.Aborted:
		return statusWarnStyle.Render("! ") + valueStyle.Render(when+" aborted")
	default:
		return statusErrorStyle.Render("✗ ") + valueStyle.Render(when+" failed at "+r.Stage.String())
	}
}

func until(t time.Time) string {
	d := time.Until(t).Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh%02dm", h, mins)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Close releases the bus subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Run starts the dashboard and blocks until the user quits.
func Run(a *app.App) error {
	m := NewModel(a)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
