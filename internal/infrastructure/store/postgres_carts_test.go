package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/online-store/internal/domain/cart"
	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_InsertCart_ConflictKeepsExisting(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()
	user := seedUser(t, st, "alice")

	first := model.Cart{ID: uuid.New(), UserID: user.ID, CreatedAt: baseTime}
	second := model.Cart{ID: uuid.New(), UserID: user.ID, CreatedAt: baseTime}
	inTx(t, st, func(tx store.Tx) error { return tx.InsertCart(ctx, &first) })
	inTx(t, st, func(tx store.Tx) error { return tx.InsertCart(ctx, &second) })

	inTx(t, st, func(tx store.Tx) error {
		got, err := tx.GetCartByUserForUpdate(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		return nil
	})
}

func TestPostgres_GetCartByUserForUpdate_SerializesWriters(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()
	user := seedUser(t, st, "alice")
	cat := seedCategory(t, st, "tools", uuid.Nil)
	p := seedProduct(t, st, "hammer", cat.ID, 100, baseTime)

	c := model.Cart{ID: uuid.New(), UserID: user.ID, CreatedAt: baseTime}
	inTx(t, st, func(tx store.Tx) error { return tx.InsertCart(ctx, &c) })

	// Every writer adds one unit, inserting the line when it is missing.
	// Only the cart lock keeps two writers from both seeing no line and
	// racing on the insert.
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.WithTx(ctx, func(tx store.Tx) error {
				locked, err := tx.GetCartByUserForUpdate(ctx, user.ID)
				if err != nil {
					return err
				}
				item, err := tx.GetCartItem(ctx, locked.ID, p.ID)
				if errors.Is(err, store.ErrNotFound) {
					time.Sleep(5 * time.Millisecond)
					return tx.InsertCartItem(ctx, &model.CartItem{CartID: locked.ID, ProductID: p.ID, Quantity: 1})
				}
				if err != nil {
					return err
				}
				item.Quantity++
				return tx.UpdateCartItem(ctx, item)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	inTx(t, st, func(tx store.Tx) error {
		item, err := tx.GetCartItem(ctx, c.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, writers, item.Quantity)
		return nil
	})
}

func TestPostgres_CartService_ConcurrentFirstAdds(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()
	user := seedUser(t, st, "alice")
	cat := seedCategory(t, st, "tools", uuid.Nil)
	p := seedProduct(t, st, "hammer", cat.ID, 100, baseTime)
	svc := cart.NewService(st)

	const adders = 6
	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, user.ID, p.ID, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	inTx(t, st, func(tx store.Tx) error {
		c, err := tx.GetCartByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 2*adders, c.Items[0].Quantity)

		got, err := tx.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 100-2*adders, got.Stock)
		return nil
	})
}

func TestPostgres_GetCartByUser_NoCart(t *testing.T) {
	st := newTestPostgresStore(t)
	user := seedUser(t, st, "alice")

	err := st.WithTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.GetCartByUser(context.Background(), user.ID)
		return err
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
