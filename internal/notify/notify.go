package notify

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"qiandao/internal/automation"
	"qiandao/internal/config"
)

// Notification represents a notification to be sent.
type Notification struct {
	Title   string
	Message string
	Sound   bool

	// Run details, empty for ad-hoc notifications.
	RunID          string
	Source         string
	Success        bool
	Stage          string
	ScreenshotPath string
	Time           string // RFC 3339
}

// FromResult builds the notification announcing a finished run.
func FromResult(source string, res automation.Result) Notification {
	n := Notification{
		Message:        res.Message,
		Sound:          true,
		RunID:          res.RunID,
		Source:         source,
		Success:        res.Success,
		Stage:          res.Stage.String(),
		ScreenshotPath: res.ScreenshotPath,
		Time:           res.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	switch {
	case res.Success:
		n.Title = "签到成功 / sign-in succeeded"
		n.Sound = false
	case res.Aborted:
		n.Title = "签到中止 / sign-in aborted"
	default:
		n.Title = "签到失败 / sign-in failed"
	}
	return n
}

// Notifier sends notifications.
type Notifier interface {
	Send(n Notification) error
	Name() string
}

// NewDesktopNotifier returns a platform-specific desktop notification sender.
func NewDesktopNotifier() Notifier {
	return newPlatformNotifier()
}

// MultiNotifier sends notifications to multiple notifiers concurrently.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a MultiNotifier from the given notifiers.
func NewMultiNotifier(ns ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: ns}
}

// Send dispatches the notification to all registered notifiers and waits
// for them. Returns the first error in registration order.
func (m *MultiNotifier) Send(n Notification) error {
	errs := make([]error, len(m.notifiers))
	var wg sync.WaitGroup
	for i, notifier := range m.notifiers {
		wg.Add(1)
		go func(i int, notifier Notifier) {
			defer wg.Done()
			errs[i] = notifier.Send(n)
		}(i, notifier)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%s: %w", m.notifiers[i].Name(), err)
		}
	}
	return nil
}

// Name returns the name of this notifier.
func (m *MultiNotifier) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Len is the number of wrapped notifiers.
func (m *MultiNotifier) Len() int { return len(m.notifiers) }

// FromConfig assembles the notifiers enabled in cfg.
func FromConfig(cfg config.NotifyConfig) *MultiNotifier {
	var ns []Notifier
	if cfg.DesktopEnabled() {
		ns = append(ns, NewDesktopNotifier())
	}
	for _, wh := range cfg.AllWebhooks() {
		ns = append(ns, NewWebhookNotifier(wh.URL, wh.Format, wh.Extra))
	}
	if cfg.Hook != "" {
		ns = append(ns, NewHookNotifier(cfg.Hook))
	}
	return NewMultiNotifier(ns...)
}

// Deliver sends n and logs failures; notification problems never fail a run.
func Deliver(nf Notifier, n Notification) {
	if err := nf.Send(n); err != nil {
		log.Printf("[notify] %v", err)
	}
}
