package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ticketbay/ticketing/internal/app"
	"github.com/ticketbay/ticketing/internal/clock"
	"github.com/ticketbay/ticketing/internal/domain"
	"github.com/ticketbay/ticketing/internal/testutil"
)

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewOrderRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateOrder and GetOrder", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, ttID := testutil.InsertEventAndTicketType(t, ctx, pool, "Concert", 5)

		order := domain.Order{
			ID:           uuid.NewString(),
			TicketTypeID: ttID,
			UserID:       "user-1",
			Quantity:     2,
			Status:       domain.OrderStatusPending,
			CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, repo.CreateOrder(ctx, order))

		got, err := repo.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.Quantity, got.Quantity)
		assert.Equal(t, order.Status, got.Status)
		assert.True(t, order.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.GetOrder(ctx, uuid.NewString())
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
		_, err = repo.GetOrder(ctx, "not-a-uuid")
		require.ErrorIs(t, err, domain.ErrInvalidID)

		err = repo.CreateOrder(ctx, domain.Order{
			ID: uuid.NewString(), TicketTypeID: uuid.NewString(), UserID: "u", Quantity: 1,
			Status: domain.OrderStatusPending, CreatedAt: time.Now().UTC(),
		})
		require.ErrorIs(t, err, domain.ErrTicketTypeNotFound)
	})

	t.Run("ListOrdersByUser only returns own orders", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, ttID := testutil.InsertEventAndTicketType(t, ctx, pool, "Concert", 5)

		mine := testutil.InsertOrder(t, ctx, pool, ttID, domain.Order{UserID: "alice", Quantity: 1})
		testutil.InsertOrder(t, ctx, pool, ttID, domain.Order{UserID: "bob", Quantity: 1})

		orders, err := repo.ListOrdersByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, mine, orders[0].ID)
	})

	t.Run("lock bind and release", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, ttID := testutil.InsertEventAndTicketType(t, ctx, pool, "Concert", 5)
		orderID := testutil.InsertOrder(t, ctx, pool, ttID, domain.Order{Quantity: 3})

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			free, err := repo.LockFreeTickets(txCtx, ttID, 3)
			require.NoError(t, err)
			require.Len(t, free, 3)

			ids := make([]string, 0, len(free))
			for _, tk := range free {
				assert.True(t, tk.Free())
				ids = append(ids, tk.ID)
			}
			n, err := repo.BindTickets(txCtx, orderID, ids)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			n, err = repo.BindTickets(txCtx, orderID, ids)
			require.NoError(t, err)
			assert.Zero(t, n, "bound tickets must not be re-bound")
			return repo.UpdateOrderStatus(txCtx, orderID, domain.OrderStatusFulfilled)
		})
		require.NoError(t, err)
		assert.Equal(t, 3, testutil.CountBound(t, ctx, pool, orderID))
		assert.Equal(t, 2, testutil.CountFree(t, ctx, pool, ttID))

		released, err := repo.ReleaseTickets(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, 3, released)
		assert.Equal(t, 5, testutil.CountFree(t, ctx, pool, ttID))
	})

	t.Run("locked tickets are skipped by a concurrent transaction", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, ttID := testutil.InsertEventAndTicketType(t, ctx, pool, "Concert", 3)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			first, err := repo.LockFreeTickets(txCtx, ttID, 2)
			require.NoError(t, err)
			require.Len(t, first, 2)

			// A separate transaction sees only the one unlocked ticket.
			return repo.WithTx(context.Background(), func(otherCtx context.Context) error {
				second, err := repo.LockFreeTickets(otherCtx, ttID, 3)
				require.NoError(t, err)
				require.Len(t, second, 1)
				assert.NotContains(t, []string{first[0].ID, first[1].ID}, second[0].ID)
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("UpdateOrderStatus on missing order", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.UpdateOrderStatus(ctx, uuid.NewString(), domain.OrderStatusFulfilled)
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestConcurrentAllocationNeverOversells(t *testing.T) {
	pool := testutil.NewTestPool(t, 24)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := NewOrderRepository(pool)
	allocator := app.NewAllocator(repo)

	tests := []struct {
		name     string
		capacity int
		orders   int
		quantity int
	}{
		{"single tickets", 10, 20, 1},
		{"multi ticket orders", 10, 12, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			testutil.TruncateAll(t, ctx, pool)
			_, ttID := testutil.InsertEventAndTicketType(t, ctx, pool, "Concert", tc.capacity)

			ids := make([]string, tc.orders)
			for i := range ids {
				ids[i] = testutil.InsertOrder(t, ctx, pool, ttID, domain.Order{Quantity: tc.quantity})
			}

			results := make([]error, tc.orders)
			var g errgroup.Group
			for i, id := range ids {
				g.Go(func() error {
					_, err := allocator.Allocate(ctx, id)
					results[i] = err
					return nil
				})
			}
			require.NoError(t, g.Wait())

			fulfilled := 0
			for i, err := range results {
				if err == nil {
					fulfilled++
					assert.Equal(t, tc.quantity, testutil.CountBound(t, ctx, pool, ids[i]))
					continue
				}
				require.ErrorIs(t, err, domain.ErrInsufficientInventory)
				assert.Zero(t, testutil.CountBound(t, ctx, pool, ids[i]))
			}

			bound := fulfilled * tc.quantity
			assert.LessOrEqual(t, bound, tc.capacity)
			assert.Equal(t, tc.capacity-bound, testutil.CountFree(t, ctx, pool, ttID))
			if tc.quantity == 1 {
				assert.Equal(t, tc.capacity, fulfilled)
			}
		})
	}
}

func TestCancelReleasesTickets(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	repo := NewOrderRepository(pool)
	clk := clock.NewManual(time.Now())
	svc := app.NewOrderService(repo, app.NewAllocator(repo), clk)
	_, ttID := testutil.InsertEventAndTicketType(t, ctx, pool, "Concert", 10)

	a, err := svc.PlaceOrder(ctx, app.CreateOrderInput{UserID: "alice", TicketTypeID: ttID, Quantity: 5})
	require.NoError(t, err)

	b, err := svc.PlaceOrder(ctx, app.CreateOrderInput{UserID: "bob", TicketTypeID: ttID, Quantity: 6})
	require.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Equal(t, 5, testutil.CountFree(t, ctx, pool, ttID))

	clk.Advance(time.Minute)
	cancelled, err := svc.Cancel(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled())
	assert.Equal(t, 10, testutil.CountFree(t, ctx, pool, ttID))

	b, err = svc.Allocate(ctx, "bob", b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, b.Status)
	assert.Equal(t, 4, testutil.CountFree(t, ctx, pool, ttID))
}
