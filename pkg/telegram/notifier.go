// Package telegram posts a short run summary to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/report"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type notifier struct {
	sender messageSender
	chatID int64
}

// NewNotifier creates a bot client without contacting Telegram. Extra
// options are passed to bot.New.
func NewNotifier(token string, chatID int64, opts ...bot.Option) (*notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &notifier{sender: b, chatID: chatID}, nil
}

func (n *notifier) Notify(ctx context.Context, s *domain.Summary) error {
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   Message(s),
	})
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func Message(s *domain.Summary) string {
	var sb strings.Builder

	sb.WriteString("✅ Replicate download complete\n\n")
	fmt.Fprintf(&sb, "📁 %s\n", s.BaseDir)
	fmt.Fprintf(&sb, "📦 Models: %d\n", s.ModelCount)
	fmt.Fprintf(&sb, "⬇️ Files: %d", s.Downloaded)
	if s.Skipped > 0 {
		fmt.Fprintf(&sb, " (%d already present)", s.Skipped)
	}
	sb.WriteString("\n")

	var total int64
	if s.Stats != nil {
		total = s.Stats.TotalBytes
	}
	fmt.Fprintf(&sb, "💾 Size: %s\n", report.FormatSize(total))
	if s.Errors > 0 {
		fmt.Fprintf(&sb, "❌ Errors: %d\n", s.Errors)
	}
	fmt.Fprintf(&sb, "\nPredictions: %d succeeded, %d failed, %d canceled",
		s.Succeeded, s.Failed, s.Canceled)

	return sb.String()
}
