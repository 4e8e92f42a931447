package services

import (
	"context"
	"errors"
	"sync"
	"tableside_server/database"
	"tableside_server/lib"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writerFixture struct {
	writer  *OrderWriter
	store   *fakeStore
	clients *fakeClients
	now     time.Time
}

func newWriterFixture() *writerFixture {
	f := &writerFixture{
		store:   newFakeStore(),
		clients: newFakeClients(),
		now:     time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	cfg := &structs.OrderingConfig{
		SubmissionCooldown:   30 * time.Second,
		POSCooldown:          0,
		TableNumberMaxLength: 10,
		TablePlaceholder:     "AUTO-ASSIGNED",
		DefaultServiceType:   string(tables.ServiceTypeOnSite),
	}
	f.writer = NewOrderWriter(testLogger(), cfg, f.store, f.clients)
	f.writer.retry = noRetry()
	f.writer.now = func() time.Time { return f.now }
	return f
}

func cart(lines ...structs.CartLine) *structs.OrderRequest {
	return &structs.OrderRequest{Items: lines, TableNumber: "12"}
}

func line(quantity int, price int64) structs.CartLine {
	return structs.CartLine{MenuItemId: uuid.New(), Quantity: quantity, Price: price}
}

var customer = structs.Submitter{ClientId: "device-1", Source: structs.OrderSourceCustomer}

func TestSubmitStoresOrderAndItems(t *testing.T) {
	f := newWriterFixture()
	req := cart(line(2, 450), line(1, 300))
	req.Notes = "no onions"

	res, err := f.writer.Submit(context.Background(), customer, req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Tier)
	assert.False(t, res.TableAssigned)
	assert.True(t, res.NotesPersisted)
	assert.Equal(t, int64(1200), res.Order.TotalPrice)
	assert.Equal(t, tables.OrderStatusPending, res.Order.Status)
	assert.Equal(t, tables.ServiceTypeOnSite, res.Order.ServiceType)
	require.Len(t, res.Order.Items, 2)
	assert.Equal(t, res.Order.Id, res.Order.Items[0].OrderId)
	assert.Equal(t, int64(450), res.Order.Items[0].PriceAtOrder)

	stored, err := f.store.GetOrder(context.Background(), res.Order.Id)
	require.NoError(t, err)
	assert.Equal(t, "no onions", stored.Notes)

	history, err := f.writer.History(context.Background(), customer.ClientId)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Order.Id, history[0].OrderId)
	assert.Equal(t, 2, history[0].ItemCount)
}

func TestSubmitTotalIncludesTip(t *testing.T) {
	f := newWriterFixture()
	req := cart(line(3, 500))
	req.TipAmount = 250

	res, err := f.writer.Submit(context.Background(), customer, req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Tier)
	assert.True(t, res.TipPersisted)
	assert.Equal(t, int64(1750), res.Order.TotalPrice)
	assert.Equal(t, int64(250), res.Order.TipAmount)

	var itemSum int64
	for _, item := range res.Order.Items {
		itemSum += item.LineTotal()
	}
	assert.Equal(t, res.Order.TotalPrice, itemSum+res.Order.TipAmount)
}

func TestSubmitDegradesWhenTipColumnMissing(t *testing.T) {
	f := newWriterFixture()
	f.store.missingColumns[tables.ColumnTipAmount] = true
	req := cart(line(1, 1000))
	req.TipAmount = 100
	req.Notes = "window seat"

	res, err := f.writer.Submit(context.Background(), customer, req)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Tier)
	assert.False(t, res.TipPersisted)
	assert.True(t, res.NotesPersisted)
	// The tip stays in the total even when its own column is dropped
	assert.Equal(t, int64(1100), res.Order.TotalPrice)
	assert.Zero(t, res.Order.TipAmount)
	require.Len(t, f.store.insertCalls, 2)
	assert.Contains(t, f.store.insertCalls[0], tables.ColumnTipAmount)
	assert.NotContains(t, f.store.insertCalls[1], tables.ColumnTipAmount)
}

func TestSubmitFallsBackToBaseColumns(t *testing.T) {
	f := newWriterFixture()
	f.store.missingColumns[tables.ColumnNotes] = true
	req := cart(line(1, 800))
	req.Notes = "extra napkins"

	res, err := f.writer.Submit(context.Background(), customer, req)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Tier)
	assert.False(t, res.NotesPersisted)
	assert.Empty(t, res.Order.Notes)
	// Without a tip there is no separate tip tier to try
	assert.Len(t, f.store.insertCalls, 2)
	assert.ElementsMatch(t, baseColumns, f.store.insertCalls[1])
}

func TestSubmitReportsStoreDetailWhenEveryTierFails(t *testing.T) {
	f := newWriterFixture()
	f.store.missingColumns[tables.ColumnServiceType] = true

	_, err := f.writer.Submit(context.Background(), customer, cart(line(1, 100)))
	require.Error(t, err)
	assert.ErrorIs(t, err, lib.ErrOrderNotSent)
	assert.Contains(t, err.Error(), `column "service_type"`)
	assert.Contains(t, err.Error(), "check the migration")

	// A failed submission gives the window back
	assert.False(t, f.clients.holds(customer.ClientId))

	delete(f.store.missingColumns, tables.ColumnServiceType)
	_, err = f.writer.Submit(context.Background(), customer, cart(line(1, 100)))
	assert.NoError(t, err)
}

func TestSubmitRejectsInvalidCarts(t *testing.T) {
	f := newWriterFixture()

	_, err := f.writer.Submit(context.Background(), customer, &structs.OrderRequest{})
	assert.ErrorIs(t, err, lib.ErrEmptyCart)

	_, err = f.writer.Submit(context.Background(), customer, cart(line(0, 100)))
	assert.ErrorIs(t, err, lib.ErrInvalidCart)

	_, err = f.writer.Submit(context.Background(), customer, cart(structs.CartLine{Quantity: 1, Price: 100}))
	assert.ErrorIs(t, err, lib.ErrInvalidCart)

	req := cart(line(1, 100))
	req.ServiceType = "drive-through"
	_, err = f.writer.Submit(context.Background(), customer, req)
	assert.ErrorIs(t, err, lib.ErrInvalidCart)

	assert.Empty(t, f.store.insertCalls)
}

func TestSubmitCooldown(t *testing.T) {
	f := newWriterFixture()
	ctx := context.Background()

	_, err := f.writer.Submit(ctx, customer, cart(line(1, 100)))
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Second)
	_, err = f.writer.Submit(ctx, customer, cart(line(1, 100)))
	require.Error(t, err)

	var cooldown *lib.CooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, 20*time.Second, cooldown.Remaining)
	assert.ErrorIs(t, err, lib.ErrSubmissionCooldown)
	assert.Len(t, f.store.insertCalls, 1)

	// Another device is not affected
	other := structs.Submitter{ClientId: "device-2", Source: structs.OrderSourceCustomer}
	_, err = f.writer.Submit(ctx, other, cart(line(1, 100)))
	assert.NoError(t, err)

	f.now = f.now.Add(21 * time.Second)
	_, err = f.writer.Submit(ctx, customer, cart(line(1, 100)))
	assert.NoError(t, err)
}

func TestSubmitConcurrentRequestsShareOneWindow(t *testing.T) {
	f := newWriterFixture()
	f.store.insertDelay = 50 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.writer.Submit(context.Background(), customer, cart(line(1, 100)))
		}()
	}
	wg.Wait()

	var ok, throttled int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, lib.ErrSubmissionCooldown):
			throttled++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, throttled)
	assert.Equal(t, 1, f.store.count())
}

func TestSubmitPOSHasNoCooldown(t *testing.T) {
	f := newWriterFixture()
	pos := structs.Submitter{ClientId: "terminal-1", Source: structs.OrderSourcePOS}

	for range 3 {
		_, err := f.writer.Submit(context.Background(), pos, cart(line(1, 100)))
		require.NoError(t, err)
	}
	assert.Len(t, f.store.insertCalls, 3)
}

func TestSubmitSkipsCooldownWhenStateUnreadable(t *testing.T) {
	f := newWriterFixture()
	f.clients.held[customer.ClientId] = f.now.Add(time.Minute)
	f.clients.readErr = errors.New("redis: connection refused")

	_, err := f.writer.Submit(context.Background(), customer, cart(line(1, 100)))
	assert.NoError(t, err)
}

func TestSubmitResolvesTable(t *testing.T) {
	t.Run("normalizes the requested table", func(t *testing.T) {
		f := newWriterFixture()
		req := cart(line(1, 100))
		req.TableNumber = " t-4 b!"

		res, err := f.writer.Submit(context.Background(), customer, req)
		require.NoError(t, err)
		assert.Equal(t, "T-4B", res.Order.TableNumber)
		assert.False(t, res.TableAssigned)
	})

	t.Run("reuses the last table of the device", func(t *testing.T) {
		f := newWriterFixture()
		f.clients.tables[customer.ClientId] = "7"
		req := cart(line(1, 100))
		req.TableNumber = ""

		res, err := f.writer.Submit(context.Background(), customer, req)
		require.NoError(t, err)
		assert.Equal(t, "7", res.Order.TableNumber)
		assert.True(t, res.TableAssigned)
	})

	t.Run("falls back to the placeholder", func(t *testing.T) {
		f := newWriterFixture()
		req := cart(line(1, 100))
		req.TableNumber = "???"

		res, err := f.writer.Submit(context.Background(), customer, req)
		require.NoError(t, err)
		assert.Equal(t, "AUTO-ASSIGNED", res.Order.TableNumber)
		assert.True(t, res.TableAssigned)
	})
}

func TestSubmitPartialOrder(t *testing.T) {
	f := newWriterFixture()
	f.store.itemsErr = errors.New("connection reset by peer")

	res, err := f.writer.Submit(context.Background(), customer, cart(line(2, 100)))
	require.Error(t, err)
	require.NotNil(t, res)

	var partial *lib.PartialOrderError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, res.Order.Id, partial.OrderId)
	assert.ErrorIs(t, err, lib.ErrItemsNotSaved)
	assert.Empty(t, res.Order.Items)

	// The order row exists, so the device is throttled like any other submit
	f.now = f.now.Add(5 * time.Second)
	f.store.itemsErr = nil
	_, err = f.writer.Submit(context.Background(), customer, cart(line(1, 100)))
	assert.ErrorIs(t, err, lib.ErrSubmissionCooldown)
}

func TestSubmitRetriesAfterLostReplyWithoutDuplicates(t *testing.T) {
	f := newWriterFixture()
	f.writer.retry = database.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2,
		EnableRetry:  true,
	}
	// The order row and then the items commit but their replies are lost
	f.store.lostReplies = 2

	res, err := f.writer.Submit(context.Background(), customer, cart(line(2, 100), line(1, 300)))
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.count())
	assert.Len(t, f.store.insertCalls, 2)

	stored, err := f.store.GetOrder(context.Background(), res.Order.Id)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, int64(500), stored.TotalPrice)
}

func TestWriteTiers(t *testing.T) {
	withTip := writeTiers(true)
	require.Len(t, withTip, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{withTip[0].number, withTip[1].number, withTip[2].number})
	assert.Contains(t, withTip[0].columns, tables.ColumnTipAmount)
	assert.NotContains(t, withTip[1].columns, tables.ColumnTipAmount)
	assert.Contains(t, withTip[1].columns, tables.ColumnNotes)

	withoutTip := writeTiers(false)
	require.Len(t, withoutTip, 2)
	assert.Equal(t, 3, withoutTip[1].number)
	assert.Contains(t, withoutTip[1].columns, tables.ColumnServiceType)
}
