package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/online-store/internal/domain/order"
	"github.com/example/online-store/internal/domain/user"
	"github.com/example/online-store/internal/email"
	"github.com/example/online-store/internal/event"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      string
	orderID string
	total   decimal.Decimal
	items   []email.OrderItem
	status  string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []email.OrderItem) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, orderID: orderID, total: total, items: items})
	return nil
}

func (m *mockMailer) SendStatusUpdate(to, orderID, status string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, orderID: orderID, status: status})
	return nil
}

type mockUsers map[uuid.UUID]*model.User

func (m mockUsers) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func encode(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	evt, err := event.New("agg", order.AggregateType, eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return raw
}

func newTestHandler() (*Handler, *mockMailer, *model.User) {
	alice := &model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	mailer := &mockMailer{}
	return NewHandler(mailer, mockUsers{alice.ID: alice}), mailer, alice
}

func TestHandler_OrderPlaced_SendsConfirmation(t *testing.T) {
	h, mailer, alice := newTestHandler()
	orderID := uuid.New()
	value := encode(t, order.EventOrderPlaced, order.OrderPlaced{
		OrderID: orderID,
		UserID:  alice.ID,
		Items: []order.PlacedItem{
			{ProductID: uuid.New(), Name: "mug", Quantity: 2, UnitPrice: model.NewMoney(decimal.RequireFromString("4.50"))},
		},
		Total:    model.NewMoney(decimal.RequireFromString("9.00")),
		PlacedAt: time.Now(),
	})

	require.NoError(t, h.HandleEvent(context.Background(), nil, value))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].to)
	assert.Equal(t, orderID.String(), mailer.sent[0].orderID)
	assert.Equal(t, "9.00", mailer.sent[0].total.StringFixed(2))
	require.Len(t, mailer.sent[0].items, 1)
	assert.Equal(t, "mug", mailer.sent[0].items[0].Name)
}

func TestHandler_StatusChanged_SendsUpdate(t *testing.T) {
	h, mailer, alice := newTestHandler()
	value := encode(t, order.EventOrderStatusChanged, order.OrderStatusChanged{
		OrderID: uuid.New(),
		UserID:  alice.ID,
		From:    model.OrderPending,
		To:      model.OrderCancelled,
	})

	require.NoError(t, h.HandleEvent(context.Background(), nil, value))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "cancelled", mailer.sent[0].status)
}

func TestHandler_UnknownUserIsSkipped(t *testing.T) {
	h, mailer, _ := newTestHandler()
	value := encode(t, order.EventOrderPlaced, order.OrderPlaced{OrderID: uuid.New(), UserID: uuid.New()})

	require.NoError(t, h.HandleEvent(context.Background(), nil, value))

	assert.Empty(t, mailer.sent)
}

func TestHandler_IgnoresOtherEvents(t *testing.T) {
	h, mailer, _ := newTestHandler()

	require.NoError(t, h.HandleEvent(context.Background(), nil, encode(t, "SomethingElse", map[string]string{})))

	assert.Empty(t, mailer.sent)
}

func TestHandler_Errors(t *testing.T) {
	h, mailer, alice := newTestHandler()

	assert.Error(t, h.HandleEvent(context.Background(), nil, []byte("garbage")))

	mailer.err = errors.New("smtp down")
	value := encode(t, order.EventOrderPlaced, order.OrderPlaced{OrderID: uuid.New(), UserID: alice.ID})
	assert.ErrorIs(t, h.HandleEvent(context.Background(), nil, value), mailer.err)
}
