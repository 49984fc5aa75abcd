package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier sends alert notifications to external channels.
type Notifier interface {
	Notify(alerts []Alert) error
}

const webhookTimeout = 10 * time.Second

// slackNotifier posts alert digests to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

// NewSlackNotifier creates a Notifier that posts to webhookURL. log may be nil.
func NewSlackNotifier(webhookURL string, log *zap.Logger) Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
		log:        log,
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts one digest for alerts. An empty slice sends nothing.
func (s *slackNotifier) Notify(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(digest(alerts))
	if err != nil {
		return fmt.Errorf("encoding alert digest: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting alert digest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("posting alert digest: webhook returned status %d", resp.StatusCode)
	}
	s.log.Debug("alert digest sent", zap.Int("alerts", len(alerts)))
	return nil
}

// digest builds one section per severity, highest first, with the alerts
// as bullets. The header carries the latest game time among the alerts.
func digest(alerts []Alert) slackMessage {
	var latest time.Time
	bySeverity := make(map[AlertSeverity][]string)
	for _, a := range alerts {
		if a.TriggeredAt.After(latest) {
			latest = a.TriggeredAt
		}
		bySeverity[a.Severity] = append(bySeverity[a.Severity], "• "+a.Message)
	}

	title := fmt.Sprintf("Settlement alerts at %s", latest.Format("2006-01-02 15:04"))
	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: title},
	}}

	var counts []string
	for _, sev := range []AlertSeverity{SeverityHigh, SeverityMedium, SeverityLow} {
		lines := bySeverity[sev]
		if len(lines) == 0 {
			continue
		}
		counts = append(counts, fmt.Sprintf("%d %s", len(lines), sev))
		text := fmt.Sprintf("%s *%s*\n%s", severityEmoji(sev), strings.ToUpper(string(sev)), strings.Join(lines, "\n"))
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}
	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{{Type: "mrkdwn", Text: strings.Join(counts, ", ")}},
	})

	return slackMessage{Text: title, Blocks: blocks}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	default:
		return "\U0001f535"
	}
}
