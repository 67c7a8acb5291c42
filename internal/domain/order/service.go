package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/online-store/internal/domain/catalog"
	"github.com/example/online-store/internal/event"
	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidStatus     = errors.New("unknown order status")
)

// Publisher delivers domain events after the transaction that produced them
// has committed.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

type Service struct {
	store     store.Store
	publisher Publisher
	now       func() time.Time
}

// NewService creates the order service. pub may be nil, in which case no
// events are published.
func NewService(st store.Store, pub Publisher) *Service {
	return &Service{
		store:     st,
		publisher: pub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromCart turns the user's cart into a pending order and removes the
// cart. Stock was already taken when the items went into the cart, so it is
// not deducted again here. Either the whole order is written or nothing is.
func (s *Service) CreateFromCart(ctx context.Context, userID uuid.UUID) (*model.Order, error) {
	var (
		o      *model.Order
		placed OrderPlaced
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		// Locking the cart keeps a concurrent AddItem from slipping an item
		// in between reading the cart and deleting it.
		c, err := tx.GetCartByUserForUpdate(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrEmptyCart
		} else if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return ErrEmptyCart
		}

		now := s.now()
		o = &model.Order{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    model.OrderPending,
			Items:     make([]model.OrderItem, 0, len(c.Items)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		ids := make([]uuid.UUID, len(c.Items))
		for i, it := range c.Items {
			ids[i] = it.ProductID
		}
		discounts, err := tx.ListDiscounts(ctx, ids)
		if err != nil {
			return err
		}

		placed = OrderPlaced{OrderID: o.ID, UserID: userID, PlacedAt: now}
		for _, it := range c.Items {
			p, err := tx.GetProductForUpdate(ctx, it.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return catalog.ErrProductNotFound
			} else if err != nil {
				return err
			}
			if !p.IsActive {
				return fmt.Errorf("%w: %s", catalog.ErrProductUnavailable, p.Name)
			}

			item := model.OrderItem{
				ID:        uuid.New(),
				OrderID:   o.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
			}
			if err := tx.InsertOrderItem(ctx, &item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			o.Items = append(o.Items, item)

			unit := catalog.ApplyDiscount(*p, discounts[p.ID]).Price
			placed.Items = append(placed.Items, PlacedItem{
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  it.Quantity,
				UnitPrice: unit,
			})
			placed.Total = model.NewMoney(placed.Total.Add(unit.Mul(decimal.NewFromInt(int64(it.Quantity)))))
		}

		return tx.DeleteCart(ctx, c.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("component", "order").Str("order_id", o.ID.String()).Str("user_id", userID.String()).
		Int("items", len(o.Items)).Msg("order placed")
	s.publish(ctx, o.ID, EventOrderPlaced, placed)
	return o, nil
}

// UpdateStatus moves the user's order to status. Cancelling returns every
// item's quantity to stock in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, orderID, userID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		o    *model.Order
		from model.OrderStatus
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, orderID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		} else if err != nil {
			return err
		}

		from = o.Status
		if !CanTransition(from, status) {
			return transitionError(from, status)
		}

		if status == model.OrderCancelled {
			for _, it := range o.Items {
				if err := tx.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return fmt.Errorf("release stock for %s: %w", it.ProductID, err)
				}
			}
		}

		now := s.now()
		if err := tx.UpdateOrderStatus(ctx, o.ID, status, now); err != nil {
			return err
		}
		o.Status = status
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("component", "order").Str("order_id", o.ID.String()).
		Str("from", string(from)).Str("to", string(status)).Msg("order status changed")
	s.publish(ctx, o.ID, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:   o.ID,
		UserID:    o.UserID,
		From:      from,
		To:        status,
		ChangedAt: o.UpdatedAt,
	})
	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	var o *model.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, orderID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		orders, err = tx.ListOrders(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// publish is best effort: the database already holds the committed state.
func (s *Service) publish(ctx context.Context, orderID uuid.UUID, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	evt, err := event.New(orderID.String(), AggregateType, eventType, data)
	if err != nil {
		log.Error().Err(err).Str("component", "order").Msg("failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Error().Err(err).Str("component", "order").Str("order_id", orderID.String()).
			Str("event_type", eventType).Msg("failed to publish event")
	}
}
