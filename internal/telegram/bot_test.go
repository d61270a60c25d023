package telegram

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/webagency/backend/internal/model"
)

func TestRefundTextEscapesInput(t *testing.T) {
	name := "Shop <Pro>"
	refund := &model.RefundRequest{
		ID:       uuid.New(),
		UserID:   "u1",
		OrderID:  "ord-1",
		ItemName: &name,
		Amount:   decimal.RequireFromString("49.9"),
		Reason:   "broken & late",
	}

	text := refundText(refund)

	assert.Contains(t, text, "Shop &lt;Pro&gt;")
	assert.Contains(t, text, "broken &amp; late")
	assert.Contains(t, text, "49.90")
	assert.Contains(t, text, refund.ID.String())
}

func TestRefundTextFallsBackToOrder(t *testing.T) {
	refund := &model.RefundRequest{ID: uuid.New(), UserID: "u1", OrderID: "ord-7", Amount: decimal.NewFromInt(5)}

	assert.Contains(t, refundText(refund), "Item: ord-7")
}

func TestWithdrawalTextShowsTotal(t *testing.T) {
	tx := &model.Transaction{
		ID:     uuid.New(),
		UserID: "u2",
		Type:   model.TransactionTypeWithdrawal,
		Amount: decimal.NewFromInt(100),
		Fee:    decimal.RequireFromString("5"),
	}

	text := withdrawalText(tx)

	assert.Contains(t, text, "Amount: 100.00")
	assert.Contains(t, text, "Fee: 5.00")
	assert.Contains(t, text, "Total reserved: 105.00")
}

func TestPendingText(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		text := pendingText(nil, nil)
		assert.Equal(t, 2, strings.Count(text, "none"))
	})

	t.Run("truncates refunds", func(t *testing.T) {
		refunds := make([]model.RefundRequest, pendingListLimit+3)
		for i := range refunds {
			refunds[i] = model.RefundRequest{UserID: "u1", OrderID: "o", Amount: decimal.NewFromInt(1)}
		}
		withdrawals := []model.Transaction{{UserID: "u3", Amount: decimal.NewFromInt(20), Fee: decimal.NewFromInt(1)}}

		text := pendingText(refunds, withdrawals)

		assert.Contains(t, text, "Pending refunds (13)")
		assert.Contains(t, text, "and 3 more")
		assert.Equal(t, pendingListLimit+1, strings.Count(text, "• "))
		assert.Contains(t, text, "u3 21.00")
	})
}
