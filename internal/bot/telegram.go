/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package bot

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Telegram rejects longer messages
const telegramMessageLimit = 4096

func (bot *Bot) ConnectTelegram() error {
	if bot.conf.Telegram.ApiToken == "" {
		return eris.New("telegram: api token is not set")
	}

	api, err := tgbotapi.NewBotAPI(bot.conf.Telegram.ApiToken)
	if err != nil {
		return eris.Wrap(err, "telegram: connect")
	}
	api.Debug = bot.conf.Debug
	bot.api = api

	return nil
}

// isAllowed reports whether userID may talk to the bot.
func (bot *Bot) isAllowed(userID int64) bool {
	bot.confMu.RLock()
	defer bot.confMu.RUnlock()

	if bot.conf.Telegram.Public {
		return true
	}

	for _, allowedID := range bot.conf.Telegram.AllowedUserIDs {
		if userID == allowedID {
			return true
		}
	}

	return false
}

// StartTelegram polls for updates until ctx is cancelled, reconnecting with
// a growing delay when the connection drops.
func (bot *Bot) StartTelegram(ctx context.Context) error {
	if bot.api == nil {
		if err := bot.ConnectTelegram(); err != nil {
			return err
		}
	}

	zap.L().Info("telegram: authorized", zap.String("username", bot.api.Self.UserName))

	retryDelay := 5 * time.Second
	for {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := bot.api.GetUpdatesChan(u)

	receive:
		for {
			select {
			case <-ctx.Done():
				bot.api.StopReceivingUpdates()
				return nil
			case update, ok := <-updates:
				if !ok {
					break receive
				}
				if update.Message == nil {
					continue
				}
				go bot.handleTelegramMessage(update.Message)
			}
		}

		zap.L().Warn("telegram: connection lost, reconnecting", zap.Duration("delay", retryDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryDelay):
		}
		if retryDelay < 300*time.Second {
			retryDelay *= 2
		}
	}
}

func (bot *Bot) handleTelegramMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	zap.L().Info("telegram: message",
		zap.String("user", message.From.UserName),
		zap.Int64("user_id", message.From.ID),
		zap.String("text", message.Text),
	)

	if !bot.isAllowed(message.From.ID) {
		bot.sendError(message.Chat.ID, "You are not allowed to use this bot!", message.MessageID)
		zap.L().Debug("telegram: rejected user", zap.Int64("user_id", message.From.ID))
		return
	}

	if fileID, ext, ok := imageAttachment(message); ok {
		bot.handleTelegramImage(message, fileID, ext)
		return
	}

	response, err := bot.Execute(message.Text)
	if err != nil {
		bot.sendError(message.Chat.ID, err.Error(), message.MessageID)
		return
	}
	if response == "" {
		return
	}

	bot.sendMarkdown(message.Chat.ID, response, message.MessageID)
}

// imageAttachment returns the largest photo size or an image document.
func imageAttachment(message *tgbotapi.Message) (string, string, bool) {
	if len(message.Photo) > 0 {
		return message.Photo[len(message.Photo)-1].FileID, ".jpg", true
	}

	if message.Document != nil && strings.HasPrefix(message.Document.MimeType, "image/") {
		ext := filepath.Ext(message.Document.FileName)
		if ext == "" {
			ext = "." + strings.TrimPrefix(message.Document.MimeType, "image/")
		}
		return message.Document.FileID, ext, true
	}

	return "", "", false
}

func (bot *Bot) handleTelegramImage(message *tgbotapi.Message, fileID string, ext string) {
	path, err := bot.downloadTelegramFile(fileID, ext)
	if err != nil {
		bot.sendError(message.Chat.ID, err.Error(), message.MessageID)
		return
	}
	defer os.Remove(path)

	response, err := bot.AnalyzeUpload(path)
	if err != nil {
		bot.sendError(message.Chat.ID, err.Error(), message.MessageID)
		if response == "" {
			return
		}
	}

	bot.sendMarkdown(message.Chat.ID, response, message.MessageID)
}

func (bot *Bot) downloadTelegramFile(fileID string, ext string) (string, error) {
	url, err := bot.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", eris.Wrap(err, "telegram: file url")
	}

	request, err := http.NewRequestWithContext(bot.ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "telegram: download request")
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return "", eris.Wrap(err, "telegram: download")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", eris.Errorf("telegram: download failed with %s", response.Status)
	}

	file, err := os.CreateTemp("", "thetruth-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "telegram: temp file")
	}
	defer file.Close()

	if _, err := io.Copy(file, response.Body); err != nil {
		os.Remove(file.Name())
		return "", eris.Wrap(err, "telegram: save image")
	}

	return file.Name(), nil
}

// splitMessage cuts text into pieces Telegram accepts, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))

		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}

	return parts
}

func (bot *Bot) sendMarkdown(chatID int64, text string, replyTo int) {
	for _, part := range splitMessage(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyToMessageID = replyTo
		msg.DisableWebPagePreview = true

		if _, err := bot.api.Send(msg); err != nil {
			// Unbalanced Markdown, retry as plain text
			msg.ParseMode = ""
			if _, err := bot.api.Send(msg); err != nil {
				zap.L().Error("telegram: send failed", zap.Error(err))
			}
		}
	}
}

func (bot *Bot) sendError(chatID int64, text string, replyTo int) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	msg.ReplyToMessageID = replyTo
	if _, err := bot.api.Send(msg); err != nil {
		zap.L().Error("telegram: send failed", zap.Error(err))
	}
}
