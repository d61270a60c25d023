package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/service"
)

// pendingListLimit caps how many rows /pending prints per section.
const pendingListLimit = 10

// Bot pushes back office alerts into one admin chat and answers a few
// read only commands there. Messages from other chats are ignored.
type Bot struct {
	bot         *tele.Bot
	adminChatID int64
	refundSvc   *service.RefundService
	walletSvc   *service.WalletService
	logger      *zap.Logger
}

func NewBot(
	token string,
	adminChatID int64,
	refundSvc *service.RefundService,
	walletSvc *service.WalletService,
	logger *zap.Logger,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 60 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:         bot,
		adminChatID: adminChatID,
		refundSvc:   refundSvc,
		walletSvc:   walletSvc,
		logger:      logger,
	}

	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	admin := b.bot.Group()
	admin.Use(b.adminOnly)

	admin.Handle("/start", b.handleHelp)
	admin.Handle("/help", b.handleHelp)
	admin.Handle("/pending", b.handlePending)
	admin.Handle("/wallet", b.handleWallet)
}

func (b *Bot) StartPolling(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.bot.Start()
}

func (b *Bot) GetBotUsername() string {
	return b.bot.Me.Username
}

func (b *Bot) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil || chat.ID != b.adminChatID {
			return nil
		}
		return next(c)
	}
}

func (b *Bot) handleHelp(c tele.Context) error {
	text := `<b>Back office</b>

/pending - open refund requests and withdrawals
/wallet &lt;userId&gt; - balance of one wallet`

	return c.Send(text, tele.ModeHTML)
}

func (b *Bot) handlePending(c tele.Context) error {
	ctx := context.Background()

	refunds, err := b.refundSvc.List(ctx, model.RefundFilter{Status: model.RefundStatusPending})
	if err != nil {
		b.logger.Error("failed to list pending refunds", zap.Error(err))
		return c.Send("Failed to load refund requests.")
	}

	withdrawals, err := b.walletSvc.ListTransactions(ctx, model.TransactionFilter{
		Type:   model.TransactionTypeWithdrawal,
		Status: model.TransactionStatusPending,
		Limit:  pendingListLimit,
	})
	if err != nil {
		b.logger.Error("failed to list pending withdrawals", zap.Error(err))
		return c.Send("Failed to load withdrawals.")
	}

	return c.Send(pendingText(refunds, withdrawals), tele.ModeHTML)
}

func (b *Bot) handleWallet(c tele.Context) error {
	userID := strings.TrimSpace(c.Message().Payload)
	if userID == "" {
		return c.Send("Usage: /wallet <userId>")
	}

	wallet, err := b.walletSvc.GetWallet(context.Background(), userID)
	if err != nil {
		return c.Send("Wallet not found.")
	}

	text := fmt.Sprintf(`<b>Wallet %s</b>

Balance: %s %s
Reserved: %s %s
Available: %s %s`,
		html.EscapeString(wallet.UserID),
		wallet.Balance.StringFixed(2), wallet.Currency,
		wallet.Reserved.StringFixed(2), wallet.Currency,
		wallet.Available.StringFixed(2), wallet.Currency,
	)
	return c.Send(text, tele.ModeHTML)
}

func (b *Bot) SendMessage(text string) error {
	_, err := b.bot.Send(&tele.Chat{ID: b.adminChatID}, text, tele.ModeHTML)
	return err
}

func (b *Bot) SendRefundRequested(refund *model.RefundRequest) error {
	return b.SendMessage(refundText(refund))
}

func (b *Bot) SendWithdrawalRequested(tx *model.Transaction) error {
	return b.SendMessage(withdrawalText(tx))
}

func refundText(refund *model.RefundRequest) string {
	item := refund.OrderID
	if refund.ItemName != nil && *refund.ItemName != "" {
		item = *refund.ItemName
	}

	return fmt.Sprintf(`💸 <b>New refund request</b>

User: <code>%s</code>
Item: %s
Amount: %s
Reason: %s

ID: <code>%s</code>`,
		html.EscapeString(refund.UserID),
		html.EscapeString(item),
		refund.Amount.StringFixed(2),
		html.EscapeString(refund.Reason),
		refund.ID,
	)
}

func withdrawalText(tx *model.Transaction) string {
	return fmt.Sprintf(`🏦 <b>Withdrawal requested</b>

User: <code>%s</code>
Amount: %s
Fee: %s
Total reserved: %s

ID: <code>%s</code>`,
		html.EscapeString(tx.UserID),
		tx.Amount.StringFixed(2),
		tx.Fee.StringFixed(2),
		tx.Total().StringFixed(2),
		tx.ID,
	)
}

func pendingText(refunds []model.RefundRequest, withdrawals []model.Transaction) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<b>Pending refunds (%d)</b>\n", len(refunds)))
	if len(refunds) == 0 {
		sb.WriteString("none\n")
	}
	for i, r := range refunds {
		if i == pendingListLimit {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(refunds)-pendingListLimit))
			break
		}
		sb.WriteString(fmt.Sprintf("• %s %s (%s)\n",
			html.EscapeString(r.UserID), r.Amount.StringFixed(2), html.EscapeString(r.OrderID)))
	}

	sb.WriteString(fmt.Sprintf("\n<b>Pending withdrawals (%d)</b>\n", len(withdrawals)))
	if len(withdrawals) == 0 {
		sb.WriteString("none\n")
	}
	for _, t := range withdrawals {
		sb.WriteString(fmt.Sprintf("• %s %s\n", html.EscapeString(t.UserID), t.Total().StringFixed(2)))
	}

	return sb.String()
}
