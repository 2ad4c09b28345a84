package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramChannel adapts the Telegram Bot API to the Channel interface
// and owns the long-poll update loop.
type TelegramChannel struct {
	api *tgbotapi.BotAPI
}

// NewTelegramChannel authenticates against the Bot API.
func NewTelegramChannel(token string) (*TelegramChannel, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}

	log.Printf("[bot] authorized as @%s", api.Self.UserName)
	return &TelegramChannel{api: api}, nil
}

// SendText delivers a plain message to the chat.
func (c *TelegramChannel) SendText(chatID int64, text string) error {
	_, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendDocument delivers the rendered document with a caption.
func (c *TelegramChannel) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := c.api.Send(doc)
	return err
}

// RegisterWebhook points Telegram at the public webhook URL.
func (c *TelegramChannel) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	return nil
}

// Poll consumes long-poll updates until the context is cancelled.
func (c *TelegramChannel) Poll(ctx context.Context, b *Bot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.api.GetUpdatesChan(u)
	log.Println("[bot] long polling for updates")

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleTelegramUpdate(ctx, update)
		}
	}
}

// HandleTelegramUpdate extracts the chat, command and text from an update
// and feeds the dispatcher. Shared by the poller and the webhook handler.
func (b *Bot) HandleTelegramUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	if msg.IsCommand() {
		b.Dispatch(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
		return
	}
	b.Dispatch(ctx, msg.Chat.ID, "", msg.Text)
}
