// Package reconcile keeps one participant's view of a basket in step with the
// server by polling. All network calls of a session happen on the goroutine
// running Run, so a mutation never overlaps a poll.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sharebasket/pkg/aggregate"
	"sharebasket/pkg/client"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/model"
)

const DefaultInterval = 10 * time.Second

var (
	ErrNotJoined  = errors.New("session has not joined a basket")
	ErrNotPolling = errors.New("session is not polling")
	ErrLeft       = errors.New("session left the basket")
)

// Ledger is the part of the server API a session needs.
// *client.BasketClient satisfies it.
type Ledger interface {
	JoinBasket(ctx context.Context, code, name string) (string, error)
	ListItems(ctx context.Context, code string) ([]*model.Item, error)
	AddItem(ctx context.Context, code string, item model.NewItem, idempotencyKey string) (*model.Item, error)
	DeleteItem(ctx context.Context, code string, id int64) error
}

type State int

const (
	Disconnected State = iota
	Joined
	Polling
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Joined:
		return "joined"
	case Polling:
		return "polling"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// View is a snapshot of the basket as last fetched. Notice is set while
// the latest fetch failed and cleared by the next success.
type View struct {
	Code        string
	Participant string
	Items       []*model.Item
	Totals      model.Totals
	Shares      []model.Share
	FetchedAt   time.Time
	Notice      string
}

type Observer func(View)

type Options struct {
	Interval time.Duration
	Log      *logger.Logger
}

type mutation struct {
	run    func(ctx context.Context) error
	result chan error
}

type Session struct {
	ledger   Ledger
	name     string
	interval time.Duration
	log      *logger.Logger

	mu        sync.Mutex
	code      string
	state     State
	view      View
	observers []Observer
	cancel    context.CancelFunc
	done      chan struct{}

	mutations chan mutation
}

func NewSession(ledger Ledger, code, name string, opts Options) *Session {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Session{
		ledger:    ledger,
		code:      code,
		name:      name,
		interval:  opts.Interval,
		log:       opts.Log,
		mutations: make(chan mutation),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// View returns the latest snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyView(s.view)
}

// Subscribe registers fn for every view change. fn runs on the loop
// goroutine and must not call back into the session's mutating methods.
func (s *Session) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Join registers the participant with the basket and adopts the server's
// canonical code.
func (s *Session) Join(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return nil
	}
	code := s.code
	s.mu.Unlock()

	canonical, err := s.ledger.JoinBasket(ctx, code, s.name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.code = canonical
	s.state = Joined
	s.view = View{Code: canonical, Participant: s.name, Items: []*model.Item{}, Shares: []model.Share{}}
	s.mu.Unlock()

	s.log.Info("Joined basket", "basket_code", canonical, "participant", s.name)
	return nil
}

// Run polls until ctx is done, Leave is called or the basket disappears. It
// fetches immediately, then every interval. The returned error is non-nil
// only for a hard stop such as a NotFound.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Joined {
		s.mu.Unlock()
		if s.State() == Polling {
			return errors.New("session is already polling")
		}
		return ErrNotJoined
	}
	ctx, cancel := context.WithCancel(ctx)
	s.state = Polling
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.state == Polling {
			s.state = Joined
		}
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	if err := s.refresh(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				return err
			}

		case m := <-s.mutations:
			m.result <- m.run(ctx)
			if err := s.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// Leave stops polling and disconnects. Nothing is sent to the server.
func (s *Session) Leave() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.state = Disconnected
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.log.Info("Left basket", "basket_code", s.Code(), "participant", s.name)
}

// Add submits an item through the loop. A transient failure is retried
// once with the same idempotency key, so the retry cannot add twice.
func (s *Session) Add(ctx context.Context, item model.NewItem) (*model.Item, error) {
	if item.AddedBy == "" {
		item.AddedBy = s.name
	}
	key := client.NewIdempotencyKey()
	code := s.Code()

	var added *model.Item
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		added, err = s.ledger.AddItem(ctx, code, item, key)
		if err != nil && client.IsTransient(err) && ctx.Err() == nil {
			s.log.Debug("Retrying add", "basket_code", code, "error", err)
			added, err = s.ledger.AddItem(ctx, code, item, key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Delete is not retried: a retry after a delete that did land would report
// NotFound for the user's own action.
func (s *Session) Delete(ctx context.Context, id int64) error {
	code := s.Code()
	return s.submit(ctx, func(ctx context.Context) error {
		return s.ledger.DeleteItem(ctx, code, id)
	})
}

func (s *Session) submit(ctx context.Context, run func(ctx context.Context) error) error {
	s.mu.Lock()
	state, done := s.state, s.done
	s.mu.Unlock()
	if state != Polling {
		return ErrNotPolling
	}

	m := mutation{run: run, result: make(chan error, 1)}
	select {
	case s.mutations <- m:
	case <-done:
		return ErrLeft
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-m.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh fetches the ledger, retrying once on a transient failure. Only a
// NotFound is returned; other failures become the view's notice.
func (s *Session) refresh(ctx context.Context) error {
	code := s.Code()

	items, err := s.ledger.ListItems(ctx, code)
	if err != nil && client.IsTransient(err) && ctx.Err() == nil {
		items, err = s.ledger.ListItems(ctx, code)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if client.IsNotFound(err) {
			s.log.Warn("Basket no longer exists", "basket_code", code, "error", err)
			s.setNotice("Basket not found: " + err.Error())
			return err
		}
		s.log.Warn("Failed to refresh basket", "basket_code", code, "error", err)
		s.setNotice("Could not refresh basket: " + err.Error())
		return nil
	}

	totals := aggregate.Aggregate(items, s.name)
	s.mu.Lock()
	s.view = View{
		Code:        code,
		Participant: s.name,
		Items:       items,
		Totals:      totals,
		Shares:      aggregate.ByParticipant(items),
		FetchedAt:   time.Now(),
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) setNotice(msg string) {
	s.mu.Lock()
	s.view.Notice = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	view := copyView(s.view)
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(view)
	}
}

func copyView(v View) View {
	v.Items = append([]*model.Item(nil), v.Items...)
	v.Shares = append([]model.Share(nil), v.Shares...)
	return v
}
