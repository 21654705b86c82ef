package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itemserrors "sharebasket/internal/items/errors"
	"sharebasket/internal/items/validator"
	"sharebasket/pkg/config"
	apperrors "sharebasket/pkg/errors"
	"sharebasket/pkg/events"
	"sharebasket/pkg/keylock"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory ledger
// ────────────────────────────────────────────────

type mockItemRepository struct {
	mu      sync.Mutex
	baskets map[string]int64
	items   map[string][]*model.Item
	listErr error
}

func newMockRepo(codes ...string) *mockItemRepository {
	m := &mockItemRepository{baskets: map[string]int64{}, items: map[string][]*model.Item{}}
	for _, c := range codes {
		m.baskets[c] = 0
	}
	return m
}

func (m *mockItemRepository) Append(ctx context.Context, code string, item *model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.baskets[code]
	if !ok {
		return fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
	}
	last++
	m.baskets[code] = last
	item.ID = last
	item.BasketCode = code
	item.CreatedAt = time.Now().UTC()
	cp := *item
	m.items[code] = append(m.items[code], &cp)
	return nil
}

func (m *mockItemRepository) Delete(ctx context.Context, code string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.baskets[code]; !ok {
		return fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
	}
	items := m.items[code]
	for i, it := range items {
		if it.ID == id {
			m.items[code] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", itemserrors.ErrItemNotFound, id)
}

func (m *mockItemRepository) List(ctx context.Context, code string) ([]*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	if _, ok := m.baskets[code]; !ok {
		return nil, fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
	}
	out := make([]*model.Item, 0, len(m.items[code]))
	for _, it := range m.items[code] {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// stalledPublisher holds its first Publish call until release is closed.
type stalledPublisher struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStalledPublisher() *stalledPublisher {
	return &stalledPublisher{entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *stalledPublisher) Publish(ctx context.Context, e events.Event) error {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return nil
}

func (p *stalledPublisher) Close() error { return nil }

func newTestService(repo *mockItemRepository, pub *recordingPublisher) ItemService {
	cfg := &config.Config{Log: logger.Discard()}
	return NewItemService(repo, validator.NewItemValidator(), keylock.New(), pub, cfg)
}

func newItem(product, price string, qty int, by string) *model.NewItem {
	d := decimal.RequireFromString(price)
	return &model.NewItem{Product: product, Price: &d, Quantity: qty, AddedBy: by}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ────────────────────────────────────────────────
// Add / List
// ────────────────────────────────────────────────

func TestAdd(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(newMockRepo("AB12"), pub)

	item, err := svc.Add(context.Background(), "ab12", newItem("  Milk ", "1.50", 2, " Alice "))
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ID)
	assert.Equal(t, "AB12", item.BasketCode)
	assert.Equal(t, "Milk", item.Product)
	assert.Equal(t, "Alice", item.AddedBy)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeItemAdded, pub.events[0].Type)
}

func TestAdd_Validation(t *testing.T) {
	svc := newTestService(newMockRepo("AB12"), &recordingPublisher{})

	tests := []struct {
		name string
		item *model.NewItem
	}{
		{name: "blank product", item: newItem("   ", "1", 1, "Alice")},
		{name: "negative price", item: newItem("milk", "-1", 1, "Alice")},
		{name: "zero quantity", item: newItem("milk", "1", 0, "Alice")},
		{name: "no participant", item: newItem("milk", "1", 1, "")},
		{name: "blank participant", item: newItem("milk", "1", 1, "  \t ")},
		{name: "missing price", item: &model.NewItem{Product: "milk", Quantity: 1, AddedBy: "Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), "AB12", tt.item)
			require.Error(t, err)
			appErr := apperrors.AsAppError(err)
			assert.Equal(t, apperrors.CodeValidation, appErr.Code)
			assert.Equal(t, 400, appErr.StatusCode())
		})
	}

	list, err := svc.List(context.Background(), "AB12")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestAdd_UnknownBasket(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(newMockRepo(), pub)

	_, err := svc.Add(context.Background(), "NOPE", newItem("milk", "1", 1, "Alice"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Empty(t, pub.events)
}

func TestList_InsertionOrder(t *testing.T) {
	svc := newTestService(newMockRepo("AB12"), &recordingPublisher{})
	ctx := context.Background()

	for _, p := range []string{"milk", "bread", "eggs"} {
		_, err := svc.Add(ctx, "AB12", newItem(p, "1", 1, "Alice"))
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, "AB12")
	require.NoError(t, err)
	assert.Equal(t, "AB12", list.Code)
	require.Len(t, list.Items, 3)
	for i, p := range []string{"milk", "bread", "eggs"} {
		assert.Equal(t, p, list.Items[i].Product)
		assert.Equal(t, int64(i+1), list.Items[i].ID)
	}
}

func TestList_Errors(t *testing.T) {
	repo := newMockRepo("AB12")
	svc := newTestService(repo, &recordingPublisher{})

	_, err := svc.List(context.Background(), "ZZZZ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	repo.listErr = errors.New("connection reset")
	_, err = svc.List(context.Background(), "AB12")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	repo.listErr = fmt.Errorf("failed to find items: %w", context.DeadlineExceeded)
	_, err = svc.List(context.Background(), "AB12")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
}

func TestAdd_ConcurrentDistinctIDs(t *testing.T) {
	svc := newTestService(newMockRepo("AB12"), &recordingPublisher{})

	const n = 50
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, err := svc.Add(context.Background(), "AB12", newItem(fmt.Sprintf("p%d", i), "1", 1, "Alice"))
			if assert.NoError(t, err) {
				mu.Lock()
				ids[item.ID] = true
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, ids, n)
}

// ────────────────────────────────────────────────
// Delete
// ────────────────────────────────────────────────

func TestDelete_Twice(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(newMockRepo("AB12"), pub)
	ctx := context.Background()

	item, err := svc.Add(ctx, "AB12", newItem("milk", "1", 1, "Alice"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "AB12", item.ID))
	err = svc.Delete(ctx, "AB12", item.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.TypeItemDeleted, pub.events[1].Type)
}

func TestDelete_Errors(t *testing.T) {
	svc := newTestService(newMockRepo("AB12"), &recordingPublisher{})

	assert.True(t, apperrors.HasCode(svc.Delete(context.Background(), "NOPE", 1), apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(svc.Delete(context.Background(), "AB12", 0), apperrors.CodeInvalidInput))
	assert.True(t, apperrors.HasCode(svc.Delete(context.Background(), "", 1), apperrors.CodeInvalidInput))
}

// ────────────────────────────────────────────────
// Totals
// ────────────────────────────────────────────────

func TestTotals_SharedBasketScenario(t *testing.T) {
	svc := newTestService(newMockRepo("AB12"), &recordingPublisher{})
	ctx := context.Background()

	milk, err := svc.Add(ctx, "AB12", newItem("Milk", "1.50", 2, "Alice"))
	require.NoError(t, err)
	bread, err := svc.Add(ctx, "AB12", newItem("Bread", "1.00", 1, "Bob"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), milk.ID)
	assert.Equal(t, int64(2), bread.ID)

	sum, err := svc.Totals(ctx, "AB12", "Alice")
	require.NoError(t, err)
	assert.True(t, sum.Total.Equal(dec("4.00")), "total = %s", sum.Total)
	assert.True(t, sum.Individual.Equal(dec("3.00")), "individual = %s", sum.Individual)
	require.Len(t, sum.ByParticipant, 2)
	assert.Equal(t, "Alice", sum.ByParticipant[0].Participant)

	require.NoError(t, svc.Delete(ctx, "AB12", bread.ID))

	sum, err = svc.Totals(ctx, "AB12", "Alice")
	require.NoError(t, err)
	assert.True(t, sum.Total.Equal(dec("3.00")))
	assert.True(t, sum.Individual.Equal(dec("3.00")))
}

func TestTotals_IndividualNeverExceedsTotal(t *testing.T) {
	svc := newTestService(newMockRepo("AB12"), &recordingPublisher{})
	ctx := context.Background()

	_, err := svc.Add(ctx, "AB12", newItem("tea", "2.35", 3, "Carol"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, "AB12", newItem("cake", "0", 1, "Dan"))
	require.NoError(t, err)

	for _, who := range []string{"Carol", "Dan", "nobody", ""} {
		sum, err := svc.Totals(ctx, "AB12", who)
		require.NoError(t, err)
		assert.True(t, sum.Individual.LessThanOrEqual(sum.Total), who)
	}
}

func TestAdd_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(newMockRepo("AB12"), pub)

	_, err := svc.Add(context.Background(), "AB12", newItem("milk", "1", 1, "Alice"))
	assert.NoError(t, err)
}

func TestAdd_SlowPublisherDoesNotBlockBasket(t *testing.T) {
	pub := newStalledPublisher()
	defer close(pub.release)
	cfg := &config.Config{Log: logger.Discard()}
	svc := NewItemService(newMockRepo("AB12"), validator.NewItemValidator(), keylock.New(), pub, cfg)

	first := make(chan error, 1)
	go func() {
		_, err := svc.Add(context.Background(), "AB12", newItem("Milk", "1.50", 2, "Alice"))
		first <- err
	}()

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first add never reached the publisher")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	bread, err := svc.Add(ctx, "AB12", newItem("Bread", "3", 1, "Bob"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), bread.ID)

	require.NoError(t, svc.Delete(ctx, "AB12", bread.ID))

	items, err := svc.List(ctx, "AB12")
	require.NoError(t, err)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "Milk", items.Items[0].Product)

	select {
	case err := <-first:
		t.Fatalf("first add returned before its publish was released: %v", err)
	default:
	}
}
