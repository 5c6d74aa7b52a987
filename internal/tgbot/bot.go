package tgbot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/config"
	"github.com/mcpdeliver/pipeliner/internal/models"
)

// Notifier reports terminal run states to a Telegram chat. A nil
// Notifier is valid and silently does nothing, so deployments without
// a bot token just skip notifications.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewNotifier(conf *config.Config, log *zap.Logger) (*Notifier, error) {
	if conf.Telegram.BotToken == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(conf.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		bot:    bot,
		chatID: conf.Telegram.ChatID,
		log:    log.Named("tgbot"),
	}, nil
}

func (n *Notifier) NotifyRunFinished(run *models.Run) {
	if n == nil {
		return
	}

	text := formatRun(run)
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.log.Error("Failed to send notification", zap.Error(err))
	}
}

func formatRun(run *models.Run) string {
	icon := "✅"
	if run.Status == models.RunStatusFailed {
		icon = "❌"
	}

	text := fmt.Sprintf("%s run %s (%s, %s): %s", icon, run.ID, run.Trigger, run.Commit, run.Status)
	if run.Environment != "" {
		text += fmt.Sprintf("\nenvironment: %s", run.Environment)
	}
	if run.FailedStage != "" {
		text += fmt.Sprintf("\nfailed stage: %s", run.FailedStage)
	}
	return text
}
