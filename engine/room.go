package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"casino-engine/models"
)

// AccountService is the external balance store.
type AccountService interface {
	GetBalance(ctx context.Context, accountID string) (int, error)
	UpdateBalance(ctx context.Context, accountID string, newBalance int, entry models.HistoryEntry) error
}

// Authorizer answers admin checks for lobby teardown.
type Authorizer interface {
	IsAuthorized(ctx context.Context, accountID string) (bool, error)
}

// Client is one connected session. Send must not block the room.
type Client interface {
	SessionID() string
	Send(ev models.Event)
}

type JoinOptions struct {
	AccountID string
	Name      string
}

const (
	balanceTimeout   = 5 * time.Second
	settleAttempts   = 3
	settleBaseDelay  = 500 * time.Millisecond
	settleMaxBackoff = 2 * time.Second
)

type eventKind int

const (
	evJoin eventKind = iota
	evMessage
	evLeave
	evDisconnect
	evBalance
	evInspect
	evDestroy
)

type roomEvent struct {
	kind    eventKind
	session string
	client  Client
	join    JoinOptions
	msg     models.Message
	balance int
	err     error
	inspect func(*Table)
	reply   chan error
}

// Room is the actor that owns one Table. Every mutation runs on its loop goroutine.
type Room struct {
	id       string
	table    *Table
	accounts AccountService
	opts     Options
	logger   zerolog.Logger

	inbox     chan roomEvent
	done      chan struct{}
	closeOnce sync.Once
	onClosed  func(id string)

	clients map[string]Client
	idle    *time.Timer
	ticker  *time.Ticker

	summary  atomic.Value
	settling sync.WaitGroup
}

func newRoom(id string, game Game, opts Options, deckFactory DeckFactory, accounts AccountService, logger zerolog.Logger, onClosed func(string)) *Room {
	r := &Room{
		id:       id,
		accounts: accounts,
		opts:     opts,
		logger:   logger.With().Str("room_id", id).Str("game", string(game.Type())).Logger(),
		inbox:    make(chan roomEvent, 256),
		done:     make(chan struct{}),
		onClosed: onClosed,
		clients:  make(map[string]Client),
	}
	r.table = NewTable(id, game, opts, deckFactory, TableHooks{
		OnEvent:  r.deliver,
		OnSettle: r.persist,
	}, r.logger)
	r.opts = r.table.Options()
	r.summary.Store(r.table.Summary())
	r.idle = time.NewTimer(r.opts.InactivityTimeout)

	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) Summary() models.RoomSummary {
	return r.summary.Load().(models.RoomSummary)
}

func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Join(ctx context.Context, client Client, opts JoinOptions) error {
	return r.request(ctx, roomEvent{kind: evJoin, session: client.SessionID(), client: client, join: opts})
}

// Send queues a client message. Rejections are reported to the sender as events, not here.
func (r *Room) Send(ctx context.Context, sessionID string, msg models.Message) error {
	return r.post(ctx, roomEvent{kind: evMessage, session: sessionID, msg: msg})
}

func (r *Room) Leave(ctx context.Context, sessionID string) error {
	return r.request(ctx, roomEvent{kind: evLeave, session: sessionID})
}

func (r *Room) Disconnect(ctx context.Context, sessionID string) error {
	return r.post(ctx, roomEvent{kind: evDisconnect, session: sessionID})
}

// Inspect runs fn on the room goroutine and waits for it.
func (r *Room) Inspect(ctx context.Context, fn func(*Table)) error {
	return r.request(ctx, roomEvent{kind: evInspect, inspect: fn})
}

// Sync returns once every event queued before it has been processed.
func (r *Room) Sync(ctx context.Context) error {
	return r.Inspect(ctx, func(*Table) {})
}

// Destroy disposes the room and tells every client. Destroying twice is a no-op.
func (r *Room) Destroy() {
	if err := r.post(context.Background(), roomEvent{kind: evDestroy}); err != nil {
		return
	}
	<-r.done
}

// WaitSettled blocks until queued balance writes are done.
func (r *Room) WaitSettled() {
	r.settling.Wait()
}

func (r *Room) post(ctx context.Context, ev roomEvent) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- ev:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) request(ctx context.Context, ev roomEvent) error {
	ev.reply = make(chan error, 1)
	if err := r.post(ctx, ev); err != nil {
		return err
	}
	select {
	case err := <-ev.reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) loop() {
	defer r.shutdown()
	for {
		select {
		case ev := <-r.inbox:
			if stop := r.handle(ev); stop {
				return
			}
		case <-r.tickC():
			if ticker, ok := r.table.Game().(Ticker); ok {
				if err := ticker.Tick(r.table); err != nil {
					r.logger.Error().Err(err).Msg("Tick failed")
				}
				r.table.releaseDropped()
			}
		case <-r.idleC():
			if r.table.Empty() {
				r.logger.Info().Dur("timeout", r.opts.InactivityTimeout).Msg("Room idle, destroying")
				r.table.Broadcast(models.EventRoomDestroyed, map[string]string{"reason": "inactive"})
				return
			}
			r.idle = nil
		}
		r.afterEvent()
	}
}

func (r *Room) handle(ev roomEvent) bool {
	var err error
	switch ev.kind {
	case evJoin:
		err = r.handleJoin(ev)
	case evMessage:
		r.handleMessage(ev.session, ev.msg)
	case evLeave:
		r.table.Leave(ev.session)
		delete(r.clients, ev.session)
	case evDisconnect:
		r.table.Disconnect(ev.session)
		delete(r.clients, ev.session)
	case evBalance:
		r.table.ApplyBalance(ev.session, ev.balance, ev.err)
	case evInspect:
		ev.inspect(r.table)
	case evDestroy:
		r.logger.Info().Msg("Room destroyed")
		r.table.Broadcast(models.EventRoomDestroyed, map[string]string{"reason": "destroyed"})
		if ev.reply != nil {
			ev.reply <- nil
		}
		return true
	}
	if ev.reply != nil {
		ev.reply <- err
	}
	return false
}

func (r *Room) handleJoin(ev roomEvent) error {
	if _, ok := r.table.State().Find(ev.session); ok {
		return nil
	}

	p := models.NewPlayer(ev.session, ev.join.AccountID, ev.join.Name, r.opts.DefaultCredits)
	p.BalancePending = ev.join.AccountID != "" && r.accounts != nil

	r.clients[ev.session] = ev.client
	if err := r.table.Join(p); err != nil {
		delete(r.clients, ev.session)
		return err
	}
	r.table.SendTo(ev.session, models.EventStateSnapshot, r.table.Snapshot())

	if p.BalancePending {
		go r.lookupBalance(ev.session, ev.join.AccountID)
	}
	r.logger.Debug().Str("session_id", ev.session).Str("account_id", ev.join.AccountID).Msg("Player joined")
	return nil
}

func (r *Room) handleMessage(sessionID string, msg models.Message) {
	err := r.table.HandleMessage(sessionID, msg)
	if err == nil {
		return
	}
	if IsRejection(err) {
		r.table.SendTo(sessionID, models.EventActionRejected, models.ActionRejectedEvent{Action: msg.Type, Reason: err.Error()})
		return
	}
	if !errors.Is(err, models.ErrEmptyDeck) {
		r.logger.Error().Err(err).Str("session_id", sessionID).Str("message", msg.Type).Msg("Message failed")
	}
}

func (r *Room) lookupBalance(sessionID, accountID string) {
	ctx, cancel := context.WithTimeout(context.Background(), balanceTimeout)
	defer cancel()
	balance, err := r.accounts.GetBalance(ctx, accountID)
	if postErr := r.post(context.Background(), roomEvent{kind: evBalance, session: sessionID, balance: balance, err: err}); postErr != nil {
		r.logger.Debug().Str("session_id", sessionID).Msg("Balance arrived after room closed")
	}
}

// afterEvent keeps the idle timer and the race ticker in line with the table.
func (r *Room) afterEvent() {
	r.summary.Store(r.table.Summary())

	if r.table.Empty() {
		if r.idle == nil {
			r.idle = time.NewTimer(r.opts.InactivityTimeout)
		}
	} else if r.idle != nil {
		r.idle.Stop()
		r.idle = nil
	}

	ticker, ok := r.table.Game().(Ticker)
	playing := r.table.State().Phase.Is(models.PhasePlaying)
	switch {
	case ok && playing && r.ticker == nil:
		r.ticker = time.NewTicker(ticker.TickInterval())
	case r.ticker != nil && !playing:
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Room) tickC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

func (r *Room) idleC() <-chan time.Time {
	if r.idle == nil {
		return nil
	}
	return r.idle.C
}

func (r *Room) shutdown() {
	if r.idle != nil {
		r.idle.Stop()
	}
	if r.ticker != nil {
		r.ticker.Stop()
	}
	if r.onClosed != nil {
		r.onClosed(r.id)
	}
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Room) deliver(target string, ev models.Event) {
	if target == Everyone {
		for _, c := range r.clients {
			c.Send(ev)
		}
		return
	}
	if c, ok := r.clients[target]; ok {
		c.Send(ev)
	}
}

// persist writes a settlement off the room goroutine, retrying with exponential backoff.
func (r *Room) persist(s Settlement) {
	if r.accounts == nil {
		return
	}
	r.settling.Add(1)
	go func() {
		defer r.settling.Done()
		for attempt := 0; attempt < settleAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), balanceTimeout)
			err := r.accounts.UpdateBalance(ctx, s.AccountID, s.Balance, s.Entry)
			cancel()
			if err == nil {
				return
			}
			r.logger.Warn().Err(err).Str("account_id", s.AccountID).Int("attempt", attempt+1).Msg("Balance update failed")
			if attempt < settleAttempts-1 {
				time.Sleep(calculateBackoff(attempt))
			}
		}
		r.logger.Error().Str("account_id", s.AccountID).Int("balance", s.Balance).Msg("Balance update abandoned")
	}()
}

func calculateBackoff(attempt int) time.Duration {
	backoff := settleBaseDelay * time.Duration(1<<uint(attempt))
	if backoff > settleMaxBackoff {
		backoff = settleMaxBackoff
	}
	return backoff
}
