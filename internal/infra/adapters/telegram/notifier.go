package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.BatchNotifier = (*Notifier)(nil)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts a batch summary to a single Telegram chat.
type Notifier struct {
	bot       sender
	chatID    int64
	publicURL string
	log       *zerolog.Logger
}

func NewNotifier(token string, chatID int64, publicBaseURL string, logger *zerolog.Logger) (*Notifier, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newNotifier(bot, chatID, publicBaseURL, logger), nil
}

func newNotifier(bot sender, chatID int64, publicBaseURL string, logger *zerolog.Logger) *Notifier {
	l := logger.With().Str("component", "TelegramNotifier").Logger()
	return &Notifier{bot: bot, chatID: chatID, publicURL: strings.TrimRight(publicBaseURL, "/"), log: &l}
}

func (n *Notifier) BatchFinished(ctx context.Context, s adapter.BatchSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(s, n.publicURL))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Str("batch_id", s.BatchID).Msg("send batch summary")
		return err
	}
	n.log.Info().Str("batch_id", s.BatchID).Msg("batch summary sent")
	return nil
}

// FormatSummary renders the plain-text message for a finished batch.
func FormatSummary(s adapter.BatchSummary, publicURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s finished\n", s.BatchID)
	fmt.Fprintf(&b, "Total: %d\n", s.Stats.Total)
	fmt.Fprintf(&b, "Completed: %d\n", s.Stats.Completed)
	fmt.Fprintf(&b, "Errors: %d", s.Stats.Errors)
	if publicURL != "" {
		fmt.Fprintf(&b, "\n%s/api/v1/batches/%s", publicURL, s.BatchID)
	}
	return b.String()
}
