package notification

import (
	"context"
	"errors"

	"github.com/example/online-store/internal/domain/order"
	"github.com/example/online-store/internal/domain/user"
	"github.com/example/online-store/internal/email"
	"github.com/example/online-store/internal/event"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Mailer sends customer emails
type Mailer interface {
	SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []email.OrderItem) error
	SendStatusUpdate(to, orderID, status string) error
}

// Users resolves the recipient of an order event
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Handler processes events for sending notifications
type Handler struct {
	mailer Mailer
	users  Users
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, users Users) *Handler {
	return &Handler{mailer: mailer, users: users}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	evt, err := event.Parse(value)
	if err != nil {
		log.Error().Err(err).Str("component", "notifier").Msg("failed to parse event")
		return err
	}

	switch evt.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(ctx, evt)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(ctx, evt)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, evt event.Event) error {
	var e order.OrderPlaced
	if err := evt.Decode(&e); err != nil {
		return err
	}

	logger := log.With().Str("component", "notifier").Str("order_id", e.OrderID.String()).Logger()
	logger.Info().Str("user_id", e.UserID.String()).Msg("processing OrderPlaced")

	u, ok := h.recipient(ctx, e.UserID)
	if !ok {
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, it := range e.Items {
		items[i] = email.OrderItem{
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Decimal,
		}
	}

	if err := h.mailer.SendOrderConfirmation(u.Email, e.OrderID.String(), e.Total.Decimal, items); err != nil {
		logger.Error().Err(err).Str("to", u.Email).Msg("failed to send order confirmation")
		return err
	}
	logger.Info().Str("to", u.Email).Msg("order confirmation sent")
	return nil
}

func (h *Handler) handleStatusChanged(ctx context.Context, evt event.Event) error {
	var e order.OrderStatusChanged
	if err := evt.Decode(&e); err != nil {
		return err
	}

	u, ok := h.recipient(ctx, e.UserID)
	if !ok {
		return nil
	}

	if err := h.mailer.SendStatusUpdate(u.Email, e.OrderID.String(), string(e.To)); err != nil {
		log.Error().Err(err).Str("component", "notifier").Str("order_id", e.OrderID.String()).
			Msg("failed to send status update")
		return err
	}
	return nil
}

// recipient looks up the user; unknown users are skipped, not retried.
func (h *Handler) recipient(ctx context.Context, id uuid.UUID) (*model.User, bool) {
	u, err := h.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			log.Warn().Str("component", "notifier").Str("user_id", id.String()).Msg("user not found")
		} else {
			log.Error().Err(err).Str("component", "notifier").Str("user_id", id.String()).Msg("error loading user")
		}
		return nil, false
	}
	return u, true
}
