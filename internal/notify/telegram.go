// Package notify доставляет уведомления о доменных событиях в Telegram.
// Движок сам не владеет диалогами — он только шлёт личные сообщения
// авторам и инвесторам по событиям шины.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/events"
)

// Notifier шлёт уведомления через Telegram Bot API.
// Нулевой Notifier (без токена) молча игнорирует события.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// NewNotifier создаёт уведомитель. Пустой токен выключает доставку —
// движок работает и без Telegram.
func NewNotifier(token string) (*Notifier, error) {
	if token == "" {
		log.Info("Telegram-уведомления выключены (нет токена)")
		return &Notifier{}, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-клиента: %w", err)
	}
	log.WithField("bot", api.Self.UserName).Info("Telegram-уведомления включены")
	return &Notifier{api: api}, nil
}

// HandleEvent — подписчик шины доменных событий.
func (n *Notifier) HandleEvent(ev events.Event) {
	if n.api == nil {
		return
	}

	switch e := ev.(type) {
	case events.TTLWarning:
		n.send(e.AuthorID, fmt.Sprintf(
			"⏳ Срок жизни вашей публикации истекает %s. После закрытия пул будет рассчитан.",
			common.FormatDateTime(e.ExpiresAt)))

	case events.PostClosed:
		n.send(e.AuthorID, fmt.Sprintf(
			"📕 Ваша публикация закрыта. Распределено из пула: %s.",
			common.FormatMerits(e.Distributed)))
		for _, p := range e.Payouts {
			if p.UserID == e.AuthorID {
				continue
			}
			n.send(p.UserID, fmt.Sprintf(
				"💰 Выплата по закрытой публикации: %s.",
				common.FormatMerits(p.Amount)))
		}
	}
}

// send шлёт личное сообщение; ошибки доставки только логируются.
func (n *Notifier) send(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось отправить уведомление")
	}
}
