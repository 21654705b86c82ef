package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	basketserrors "sharebasket/internal/baskets/errors"
	"sharebasket/internal/baskets/validator"
	"sharebasket/pkg/config"
	apperrors "sharebasket/pkg/errors"
	"sharebasket/pkg/events"
	"sharebasket/pkg/keylock"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory repository and recording publisher
// ────────────────────────────────────────────────

type mockBasketRepository struct {
	mu        sync.Mutex
	baskets   map[string]*model.Basket
	createErr error
}

func newMockRepo() *mockBasketRepository {
	return &mockBasketRepository{baskets: map[string]*model.Basket{}}
}

func (m *mockBasketRepository) Create(ctx context.Context, b *model.Basket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.baskets[b.Code]; ok {
		return fmt.Errorf("%w: %s", basketserrors.ErrCodeTaken, b.Code)
	}
	b.CreatedAt = time.Now().UTC()
	if b.Participants == nil {
		b.Participants = []string{}
	}
	cp := *b
	cp.Participants = append([]string{}, b.Participants...)
	m.baskets[b.Code] = &cp
	return nil
}

func (m *mockBasketRepository) FindByCode(ctx context.Context, code string) (*model.Basket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.baskets[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", basketserrors.ErrNotFound, code)
	}
	cp := *b
	cp.Participants = append([]string{}, b.Participants...)
	return &cp, nil
}

func (m *mockBasketRepository) AddParticipant(ctx context.Context, code, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.baskets[code]
	if !ok {
		return fmt.Errorf("%w: %s", basketserrors.ErrNotFound, code)
	}
	if !b.HasParticipant(name) {
		b.Participants = append(b.Participants, name)
	}
	return nil
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

func sequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return codes[len(codes)-1], nil
		}
		c := codes[i]
		i++
		return c, nil
	}
}

func newTestService(repo *mockBasketRepository, pub *recordingPublisher, gen func() (string, error)) BasketService {
	cfg := &config.Config{
		CodeLength:      6,
		CodeMaxAttempts: 3,
		Log:             logger.Discard(),
	}
	return NewBasketService(repo, validator.NewBasketValidator(), keylock.New(), pub, gen, cfg)
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub, sequence("AB12CD"))

	b, err := svc.Create(context.Background(), &model.CreateBasketRequest{})
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", b.Code)
	assert.Empty(t, b.Participants)
	assert.False(t, b.CreatedAt.IsZero())

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeBasketCreated, pub.events[0].Type)
}

func TestCreate_WithCreatorJoins(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &recordingPublisher{}, sequence("AB12CD"))

	_, err := svc.Create(context.Background(), &model.CreateBasketRequest{Name: "  Alice "})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "ab12cd")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, got.Participants)
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	repo := newMockRepo()
	require.NoError(t, repo.Create(context.Background(), &model.Basket{Code: "TAKEN1"}))
	svc := newTestService(repo, &recordingPublisher{}, sequence("TAKEN1", "TAKEN1", "FRESH2"))

	b, err := svc.Create(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "FRESH2", b.Code)
}

func TestCreate_CodeSpaceExhausted(t *testing.T) {
	repo := newMockRepo()
	require.NoError(t, repo.Create(context.Background(), &model.Basket{Code: "TAKEN1"}))
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub, sequence("TAKEN1"))

	_, err := svc.Create(context.Background(), nil)
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeCodesExhausted, appErr.Code)
	assert.Equal(t, 503, appErr.StatusCode())
	assert.Equal(t, 3, appErr.Details["attempts"])
	assert.ErrorIs(t, err, basketserrors.ErrCodeSpaceExhausted)
	assert.Empty(t, pub.events)
}

func TestCreate_StoreFailure(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("disk I/O error")
	svc := newTestService(repo, &recordingPublisher{}, sequence("AB12CD"))

	_, err := svc.Create(context.Background(), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

// ────────────────────────────────────────────────
// Join / Get
// ────────────────────────────────────────────────

func TestJoin(t *testing.T) {
	repo := newMockRepo()
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub, sequence("AB12CD"))
	_, err := svc.Create(context.Background(), nil)
	require.NoError(t, err)

	code, err := svc.Join(context.Background(), " ab12cd ", &model.JoinBasketRequest{Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", code)

	// re-join is a no-op
	_, err = svc.Join(context.Background(), "AB12CD", &model.JoinBasketRequest{Name: "Bob"})
	require.NoError(t, err)

	b, err := svc.Get(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, b.Participants)
}

func TestJoin_UnknownBasket(t *testing.T) {
	svc := newTestService(newMockRepo(), &recordingPublisher{}, sequence("AB12CD"))

	_, err := svc.Join(context.Background(), "NOPE99", &model.JoinBasketRequest{Name: "Bob"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestJoin_Validation(t *testing.T) {
	svc := newTestService(newMockRepo(), &recordingPublisher{}, sequence("AB12CD"))

	_, err := svc.Join(context.Background(), "AB12CD", &model.JoinBasketRequest{Name: "   "})
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Equal(t, 400, appErr.StatusCode())

	_, err = svc.Join(context.Background(), "  ", &model.JoinBasketRequest{Name: "Bob"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestJoin_PublishFailureDoesNotFail(t *testing.T) {
	repo := newMockRepo()
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub, sequence("AB12CD"))
	_, err := svc.Create(context.Background(), nil)
	require.NoError(t, err)

	pub.err = errors.New("broker down")
	_, err = svc.Join(context.Background(), "AB12CD", &model.JoinBasketRequest{Name: "Bob"})
	assert.NoError(t, err)
}

func TestJoin_SlowPublisherDoesNotBlockBasket(t *testing.T) {
	repo := newMockRepo()
	repo.baskets["AB12CD"] = &model.Basket{Code: "AB12CD", Participants: []string{}}
	pub := newStalledPublisher()
	defer close(pub.release)
	cfg := &config.Config{CodeLength: 6, CodeMaxAttempts: 3, Log: logger.Discard()}
	svc := NewBasketService(repo, validator.NewBasketValidator(), keylock.New(), pub, sequence("AB12CD"), cfg)

	go func() {
		_, _ = svc.Join(context.Background(), "AB12CD", &model.JoinBasketRequest{Name: "Alice"})
	}()

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first join never reached the publisher")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := svc.Join(ctx, "AB12CD", &model.JoinBasketRequest{Name: "Bob"})
	require.NoError(t, err)

	b, err := svc.Get(ctx, "AB12CD")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, b.Participants)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo(), &recordingPublisher{}, sequence("AB12CD"))
	_, err := svc.Get(context.Background(), "ZZZZZZ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
