package notify

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"strings"
	"text/template"
	"time"

	json "github.com/goccy/go-json"
)

// WebhookNotifier sends notifications to a webhook URL.
type WebhookNotifier struct {
	URL    string            // webhook endpoint
	Format string            // "slack", "feishu", "dingtalk", "telegram", "custom"
	Extra  map[string]string // format-specific parameters (e.g. chat_id, template)
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL, format, and extra parameters.
func NewWebhookNotifier(url, format string, extra map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Format: format,
		Extra:  extra,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// text is the plain-text body shared by the chat formats.
func (n Notification) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", n.Title, n.Message)
	if n.RunID != "" {
		fmt.Fprintf(&b, "\nrun: %s", n.RunID)
		if n.Source != "" {
			fmt.Fprintf(&b, " (%s)", n.Source)
		}
	}
	if !n.Success && n.Stage != "" {
		fmt.Fprintf(&b, "\nstage: %s", n.Stage)
	}
	if n.ScreenshotPath != "" {
		fmt.Fprintf(&b, "\nscreenshot: %s", n.ScreenshotPath)
	}
	return b.String()
}

func (w *WebhookNotifier) payload(n Notification) (any, error) {
	text := n.text()
	switch w.Format {
	case "feishu":
		return map[string]any{
			"msg_type": "text",
			"content":  map[string]string{"text": text},
		}, nil
	case "dingtalk":
		return map[string]any{
			"msgtype": "text",
			"text":    map[string]string{"content": text},
		}, nil
	case "telegram":
		return map[string]any{
			"chat_id":    w.Extra["chat_id"],
			"text":       "<b>" + html.EscapeString(n.Title) + "</b>\n" + html.EscapeString(strings.TrimPrefix(text, n.Title+": ")),
			"parse_mode": "HTML",
		}, nil
	case "custom":
		return w.custom(n, text)
	default: // "slack" and any other format
		return map[string]string{"text": text}, nil
	}
}

func (w *WebhookNotifier) custom(n Notification, text string) (any, error) {
	tmplStr := w.Extra["template"]
	if tmplStr == "" {
		return nil, fmt.Errorf("webhook custom format: missing 'template' in extra")
	}
	tmpl, err := template.New("webhook").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("webhook custom template parse: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"Title":          n.Title,
		"Message":        n.Message,
		"Text":           text,
		"RunID":          n.RunID,
		"Source":         n.Source,
		"Success":        n.Success,
		"Stage":          n.Stage,
		"ScreenshotPath": n.ScreenshotPath,
		"Time":           n.Time,
	}); err != nil {
		return nil, fmt.Errorf("webhook custom template execute: %w", err)
	}
	// The rendered template must itself be JSON.
	var payload any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("webhook custom template produced invalid JSON: %w", err)
	}
	return payload, nil
}

// Send posts the notification to the configured webhook.
func (w *WebhookNotifier) Send(n Notification) error {
	payload, err := w.payload(n)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}

	resp, err := w.client.Post(w.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the name of this notifier.
func (w *WebhookNotifier) Name() string { return "webhook:" + w.formatName() }

func (w *WebhookNotifier) formatName() string {
	if w.Format == "" {
		return "slack"
	}
	return w.Format
}
