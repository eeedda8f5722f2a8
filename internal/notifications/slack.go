package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/jobs"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// SlackNotifier posts run summaries to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	source     string
}

// NewSlackNotifier returns a notifier for webhookURL. source names the crawl
// in the message. An empty webhook URL gives a disabled notifier.
func NewSlackNotifier(webhookURL, source string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, source: source}
}

// Enabled reports whether a webhook is configured
func (n *SlackNotifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// NotifyRunComplete posts summary. Failures are logged and returned.
func (n *SlackNotifier) NotifyRunComplete(ctx context.Context, summary *jobs.Summary) error {
	if !n.Enabled() || summary == nil {
		return nil
	}

	msg := &slack.WebhookMessage{
		Text:   runTitle(n.source),
		Blocks: &slack.Blocks{BlockSet: buildMessageBlocks(summary, n.source)},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Warn().
			Err(err).
			Str("run_id", summary.RunID).
			Msg("Failed to post run summary to Slack")
		return fmt.Errorf("failed to post run summary: %w", err)
	}

	log.Info().
		Str("run_id", summary.RunID).
		Msg("Run summary posted to Slack")

	return nil
}

func runTitle(source string) string {
	title := "Property crawl finished"
	if source != "" {
		title = fmt.Sprintf("Property crawl finished: %s", source)
	}
	return title
}

func buildMessageBlocks(s *jobs.Summary, source string) []slack.Block {
	var emoji string
	switch {
	case s.Err != "":
		emoji = ":x:"
	case s.StopReason == jobs.StopDiscoveryFailed:
		emoji = ":warning:"
	case s.StopReason == jobs.StopCancelled:
		emoji = ":octagonal_sign:"
	default:
		emoji = ":white_check_mark:"
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(
				"mrkdwn",
				fmt.Sprintf("%s *%s*", emoji, runTitle(source)),
				false,
				false,
			),
			nil,
			nil,
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(
				"mrkdwn",
				fmt.Sprintf("%d listings collected (%d fetched, %d skipped) over %d pages in %s",
					s.Collected, s.Fetched, s.Skipped, s.PagesCompleted, formatDuration(s.Duration)),
				false,
				false,
			),
			nil,
			nil,
		),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(
				"mrkdwn",
				fmt.Sprintf("Stopped: `%s` · pages %d to %d · run `%s`", s.StopReason, s.StartPage, s.LastPage, s.RunID),
				false,
				false,
			),
		),
	}

	if s.Err != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Final flush failed: %s", s.Err), false, false),
			nil,
			nil,
		))
	}

	return blocks
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "N/A"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
