package telegram

import (
	"context"
	"fmt"
	"path"
	"strings"

	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const startText = "Send me a photo or an image file and I will tell you whether the face in it looks Real or Fake."

// Bot answers photos and image documents with a classification.
type Bot struct {
	api     *tgbotapi.BotAPI
	manager *services.Manager
	fetcher *storage.Fetcher
	logger  *logger.Logger
}

// NewBot logs in with token.
func NewBot(token string, manager *services.Manager, fetcher *storage.Fetcher, logger *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to start telegram bot: %w", err)
	}
	logger.Info("🤖 Telegram bot authorized as @%s", api.Self.UserName)
	return &Bot{api: api, manager: manager, fetcher: fetcher, logger: logger}, nil
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("🛑 Telegram bot stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil {
				continue
			}
			go b.handleMessage(ctx, upd.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(msg, startText)
		default:
			b.reply(msg, "Unknown command")
		}
		return
	}

	fileID, name, ok := pickImage(msg)
	if !ok {
		b.reply(msg, startText)
		return
	}

	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		b.logger.Warning("[telegram] chat %d: failed to resolve file: %v", cid, err)
		b.reply(msg, "Could not download the image.")
		return
	}
	data, ext, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		b.logger.Warning("[telegram] chat %d: %v", cid, err)
		b.reply(msg, "Could not download the image.")
		return
	}
	if path.Ext(name) != "" {
		ext = storage.ExtFromFilename(name)
	}

	result, err := b.manager.Detect(ctx, services.Upload{
		Data:         data,
		Ext:          ext,
		OriginalName: name,
		Origin:       services.OriginTelegram,
	})
	if err != nil {
		b.logger.Error("[telegram] chat %d: failed to process %s: %v", cid, name, err)
		b.reply(msg, "Something went wrong, please try again.")
		return
	}

	b.logger.Info("💬 [telegram] chat %d: %s -> %s (%.4f)", cid, name, result.Outcome.Label, result.Outcome.Confidence)
	b.reply(msg, replyText(result.Outcome))
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(out); err != nil {
		b.logger.Warning("[telegram] chat %d: send failed: %v", msg.Chat.ID, err)
	}
}

// pickImage returns the largest photo size or an image document.
func pickImage(msg *tgbotapi.Message) (fileID, name string, ok bool) {
	if len(msg.Photo) > 0 {
		ph := msg.Photo[len(msg.Photo)-1]
		return ph.FileID, fmt.Sprintf("tg_%d_%d.jpg", msg.Chat.ID, msg.MessageID), true
	}
	if doc := msg.Document; doc != nil && strings.HasPrefix(doc.MimeType, "image/") {
		name := doc.FileName
		if name == "" {
			name = fmt.Sprintf("tg_%d_%d", msg.Chat.ID, msg.MessageID)
		}
		return doc.FileID, name, true
	}
	return "", "", false
}

func replyText(out ai.Outcome) string {
	switch out.Label {
	case ai.LabelNoFace:
		return "No face could be detected in this image."
	case ai.LabelError:
		return "The image could not be analyzed."
	}
	return fmt.Sprintf("%s (score: %.4f)", out.Label, out.Confidence)
}
