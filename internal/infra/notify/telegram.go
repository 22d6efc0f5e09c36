package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aegisx-platform/budget-service/internal/domain/budget"
)

// Telegram шлёт события жизненного цикла заявки в админский чат.
// Канал необязательный: без токена конструктор вернёт nil,
// и оркестратор подставит заглушку.
type Telegram struct {
	api  *tgbotapi.BotAPI
	log  *slog.Logger
	chat int64
}

func NewTelegram(token string, adminChatID int64, log *slog.Logger) (*Telegram, error) {
	if token == "" || adminChatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{api: api, log: log, chat: adminChatID}, nil
}

func (t *Telegram) StatusChanged(_ context.Context, req *budget.Request) {
	var text string
	switch req.Status {
	case budget.StatusSubmitted:
		text = fmt.Sprintf("Заявка %s (ФГ %s) отправлена на согласование, сумма %.2f",
			req.ID, req.FiscalYear, req.TotalAmount)
	case budget.StatusDepartmentApproved:
		text = fmt.Sprintf("Заявка %s согласована департаментом", req.ID)
	case budget.StatusFinanceApproved:
		text = fmt.Sprintf("Заявка %s утверждена финансами, сумма %.2f", req.ID, req.TotalAmount)
	case budget.StatusCancelled:
		text = fmt.Sprintf("Заявка %s отменена", req.ID)
	default:
		return
	}

	if _, err := t.api.Send(tgbotapi.NewMessage(t.chat, text)); err != nil {
		// Уведомление не должно ронять команду.
		t.log.Error("notify send failed", "request_id", req.ID, "err", err)
	}
}
