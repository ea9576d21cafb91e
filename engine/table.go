package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-engine/models"
)

// Settlement is a balance write queued when a hand ends or a player departs.
type Settlement struct {
	SessionID string
	AccountID string
	Balance   int
	Entry     models.HistoryEntry
}

// Broadcast target for TableHooks.OnEvent.
const Everyone = ""

type TableHooks struct {
	// OnEvent delivers an event to one session, or to every client when target is Everyone.
	OnEvent  func(target string, ev models.Event)
	OnSettle func(Settlement)
}

// Table is the single-owner state machine of one room. It is not safe for concurrent use;
// the Room actor serializes every call.
type Table struct {
	state    *models.RoomState
	game     Game
	opts     Options
	newDeck  DeckFactory
	hooks    TableHooks
	logger   zerolog.Logger
	baseline map[string]int
}

func NewTable(id string, game Game, opts Options, deckFactory DeckFactory, hooks TableHooks, logger zerolog.Logger) *Table {
	opts = opts.withDefaults()
	if deckFactory == nil {
		rng := opts.Rand
		deckFactory = func() *models.Deck { return models.NewDeck(rand.New(rand.NewSource(rng.Int63()))) }
	}
	if hooks.OnEvent == nil {
		hooks.OnEvent = func(string, models.Event) {}
	}
	if hooks.OnSettle == nil {
		hooks.OnSettle = func(Settlement) {}
	}
	return &Table{
		state:    models.NewRoomState(id, game.Type(), opts.MaxClients, deckFactory()),
		game:     game,
		opts:     opts,
		newDeck:  deckFactory,
		hooks:    hooks,
		logger:   logger,
		baseline: make(map[string]int),
	}
}

func (t *Table) State() *models.RoomState { return t.state }
func (t *Table) Game() Game               { return t.game }
func (t *Table) Options() Options         { return t.opts }
func (t *Table) Rand() *rand.Rand         { return t.opts.Rand }

func (t *Table) Empty() bool {
	return t.state.Players.Len() == 0 && t.state.WaitingRoom.Len() == 0
}

func (t *Table) Broadcast(event string, data interface{}) {
	t.hooks.OnEvent(Everyone, models.Event{Event: event, RoomID: t.state.ID, Data: data})
}

func (t *Table) SendTo(sessionID, event string, data interface{}) {
	t.hooks.OnEvent(sessionID, models.Event{Event: event, RoomID: t.state.ID, Data: data})
}

// Join admits p into the seats while waiting, or into the waiting room otherwise.
// Joining twice with the same session is a no-op.
func (t *Table) Join(p *models.Player) error {
	s := t.state
	if _, ok := s.Find(p.SessionID); ok {
		return nil
	}

	if !s.Phase.Active() && s.Players.Len() < s.MaxClients {
		s.Players.Add(p)
		if s.Owner == "" {
			s.Owner = p.SessionID
		}
	} else {
		if s.WaitingRoom.Len() >= s.MaxClients {
			return ErrRoomFull
		}
		s.WaitingRoom.Add(p)
	}
	t.baseline[p.SessionID] = p.TotalCredits

	t.Broadcast(models.EventPlayerJoin, models.PlayerJoinEvent{
		SessionID:    p.SessionID,
		TotalCredits: p.TotalCredits,
		Players:      publicPlayers(s.Players.List()),
		WaitingRoom:  publicPlayers(s.WaitingRoom.List()),
	})
	return nil
}

// ApplyBalance completes the asynchronous balance lookup started on join.
// On failure the player keeps the default credits.
func (t *Table) ApplyBalance(sessionID string, balance int, err error) {
	p, ok := t.state.Find(sessionID)
	if !ok || !p.BalancePending {
		return
	}
	p.BalancePending = false
	if err != nil {
		t.logger.Warn().Err(err).Str("account_id", p.AccountID).Msg("Balance lookup failed, using default credits")
	} else {
		p.TotalCredits = balance
	}
	t.baseline[sessionID] = p.TotalCredits
	t.Broadcast(models.EventStateSnapshot, t.Snapshot())
}

// Leave removes the session from whichever map holds it. A departing turn holder forfeits
// the turn first, so the pointer never references a missing seat.
func (t *Table) Leave(sessionID string) bool {
	s := t.state

	if p, ok := s.WaitingRoom.Get(sessionID); ok {
		_, idx := s.WaitingRoom.Remove(sessionID)
		t.settleDeparture(p, false)
		t.reassignOwner(sessionID)
		t.broadcastLeft(sessionID, idx)
		return true
	}

	p, ok := s.Players.Get(sessionID)
	if !ok {
		return false
	}

	midHand := s.Phase.Is(models.PhaseDealing) || s.Phase.Is(models.PhasePlaying)
	if midHand && s.CurrentTurn == sessionID {
		if err := t.game.Forfeit(t, p); err != nil {
			t.logger.Error().Err(err).Str("session_id", sessionID).Msg("Forfeit on leave failed")
		}
	}
	t.game.Leaving(t, p)

	_, idx := s.Players.Remove(sessionID)
	if len(p.Hand) > 0 {
		if s.Phase.Active() {
			s.Deck.Discard(p.Hand...)
		} else {
			s.Deck.Return(p.Hand...)
		}
		p.Hand = nil
	}
	t.settleDeparture(p, !s.Phase.Active())
	t.reassignOwner(sessionID)
	t.broadcastLeft(sessionID, idx)
	t.game.Left(t)
	return true
}

func (t *Table) broadcastLeft(sessionID string, idx int) {
	t.Broadcast(models.EventPlayerLeft, models.PlayerLeftEvent{
		SessionID:  sessionID,
		Players:    publicPlayers(t.state.Players.List()),
		NextPlayer: t.state.CurrentTurn,
		Index:      idx,
	})
}

func (t *Table) reassignOwner(departed string) {
	s := t.state
	if s.Owner != departed {
		return
	}
	switch {
	case s.Players.Len() > 0:
		s.Owner = s.Players.First().SessionID
	case s.WaitingRoom.Len() > 0:
		s.Owner = s.WaitingRoom.First().SessionID
	default:
		s.Owner = ""
	}
	t.Broadcast(models.EventOwnerChanged, map[string]string{"owner": s.Owner})
}

// settleDeparture persists the credits of a departing player. Stakes placed before the deal
// are refunded when refund is set.
func (t *Table) settleDeparture(p *models.Player, refund bool) {
	if refund {
		staked := p.CurrentBet + p.TotalWagered()
		p.TotalCredits += staked
		p.CurrentBet = 0
		p.Wagers = nil
		if t.state.Pot >= staked {
			t.state.Pot -= staked
		}
	}
	t.settle(p, models.HistoryPayout)
	delete(t.baseline, p.SessionID)
}

func (t *Table) settle(p *models.Player, eventType models.HistoryEventType) {
	if p.AccountID == "" || p.BalancePending {
		return
	}
	delta := p.TotalCredits - t.baseline[p.SessionID]
	t.baseline[p.SessionID] = p.TotalCredits
	t.hooks.OnSettle(Settlement{
		SessionID: p.SessionID,
		AccountID: p.AccountID,
		Balance:   p.TotalCredits,
		Entry: models.HistoryEntry{
			ID:        uuid.New().String(),
			EventType: eventType,
			RoomID:    t.state.ID,
			GameType:  t.state.GameType,
			Hand:      t.state.HandNumber,
			Delta:     delta,
			Timestamp: time.Now(),
		},
	})
}

// Disconnect handles a dropped transport. Outside a played hand the player leaves at once.
// Mid-hand the seat is kept until the hand ends: a dropped turn holder forfeits through the
// disconnect guard, and a turn that later reaches the seat is forfeited on a
// currentTurnDisconnect notice from the remaining clients. Repeats are no-ops.
func (t *Table) Disconnect(sessionID string) {
	s := t.state
	p, ok := s.Players.Get(sessionID)
	if !ok {
		t.Leave(sessionID)
		return
	}
	if !p.Connected {
		return
	}
	p.Connected = false
	if !s.Phase.Is(models.PhasePlaying) {
		t.Leave(sessionID)
		return
	}
	if s.CurrentTurn == sessionID {
		t.forfeitDropped(p)
	}
	t.releaseDropped()
}

// handleTurnNotice applies a client's currentTurnDisconnect. Only a dropped turn holder is
// forfeited, and only while the guard is clear; disconnectionHandled or a new game clears it.
func (t *Table) handleTurnNotice() {
	s := t.state
	if s.DisconnectCheck || !s.Phase.Is(models.PhasePlaying) {
		return
	}
	p, ok := s.Players.Get(s.CurrentTurn)
	if !ok || p.Connected {
		return
	}
	t.forfeitDropped(p)
}

func (t *Table) forfeitDropped(p *models.Player) {
	s := t.state
	s.DisconnectCheck = true
	if err := t.game.Forfeit(t, p); err != nil {
		t.logger.Error().Err(err).Str("session_id", p.SessionID).Msg("Forfeit on disconnect failed")
	}
	t.Broadcast(models.EventHandleDisconnection, map[string]string{"nextPlayer": s.CurrentTurn})
}

// releaseDropped removes disconnected seats once no hand is being played, or as soon as no
// connected player is left to play it.
func (t *Table) releaseDropped() {
	s := t.state
	var dropped []string
	connected := 0
	for _, p := range s.Players.List() {
		if p.Connected {
			connected++
		} else {
			dropped = append(dropped, p.SessionID)
		}
	}
	if len(dropped) == 0 || (s.Phase.Is(models.PhasePlaying) && connected > 0) {
		return
	}
	for _, id := range dropped {
		t.Leave(id)
	}
}

func (t *Table) HandleMessage(sessionID string, msg models.Message) error {
	err := t.handleMessage(sessionID, msg)
	t.releaseDropped()
	return err
}

func (t *Table) handleMessage(sessionID string, msg models.Message) error {
	s := t.state
	p, ok := s.Players.Get(sessionID)
	if !ok {
		if msg.Type == models.MsgLeave && t.Leave(sessionID) {
			return nil
		}
		return ErrUnknownPlayer
	}

	switch msg.Type {
	case models.MsgLeave:
		t.Leave(sessionID)
		return nil
	case models.MsgNewGame:
		return t.NewGame()
	case models.MsgCurrentTurnDisconnect:
		t.handleTurnNotice()
		return nil
	case models.MsgDisconnectionHandled:
		s.DisconnectCheck = false
		return nil
	}

	err := t.game.Handle(t, p, msg)
	if errors.Is(err, models.ErrEmptyDeck) {
		t.logger.Error().Err(err).Str("message", msg.Type).Str("phase", s.Phase.String()).Msg("Action aborted")
	}
	return err
}

// NewGame moves a finished room back to waiting. Waiting-room players take the open seats.
func (t *Table) NewGame() error {
	s := t.state
	if !s.Phase.Is(models.PhaseFinished) {
		return ErrWrongPhase
	}

	s.Deck = t.newDeck()
	s.DealerCards = nil
	s.CommunityCards = nil
	s.Pot = 0
	s.HighestBet = 0
	s.CurrentTurn = ""
	s.DisconnectCheck = false
	for _, p := range s.Players.List() {
		p.Reset()
	}

	for s.Players.Len() < s.MaxClients && s.WaitingRoom.Len() > 0 {
		p, _ := s.WaitingRoom.Remove(s.WaitingRoom.First().SessionID)
		p.Reset()
		s.Players.Add(p)
	}
	if s.Owner == "" && s.Players.Len() > 0 {
		s.Owner = s.Players.First().SessionID
	}

	s.Phase = models.Waiting()
	t.game.Reset(t)
	t.Broadcast(models.EventStateSnapshot, t.Snapshot())
	return nil
}

func (t *Table) requirePhase(kind models.PhaseKind) error {
	if !t.state.Phase.Is(kind) {
		return fmt.Errorf("%w: %s", ErrWrongPhase, t.state.Phase)
	}
	return nil
}

func (t *Table) requireTurn(p *models.Player) error {
	if err := t.requirePhase(models.PhasePlaying); err != nil {
		return err
	}
	if t.state.CurrentTurn != p.SessionID {
		return ErrNotYourTurn
	}
	return nil
}

// requireStake validates a wager placed before the deal.
func (t *Table) requireStake(p *models.Player, amount int) error {
	if err := t.requirePhase(models.PhaseWaiting); err != nil {
		return err
	}
	if p.BalancePending {
		return ErrBalancePending
	}
	if amount <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrInvalidMessage)
	}
	if amount > p.TotalCredits {
		return fmt.Errorf("%w: stake %d, credits %d", ErrInsufficientCredits, amount, p.TotalCredits)
	}
	return nil
}

// markReady flags p and reports whether the whole table is ready to deal.
func (t *Table) markReady(p *models.Player) bool {
	p.IsReady = true
	if t.everyoneReady() {
		return true
	}
	t.Broadcast(models.EventWaitForOthers, map[string]string{"user": p.SessionID})
	return false
}

func (t *Table) everyoneReady() bool {
	players := t.state.Players.List()
	if len(players) < t.game.MinPlayers() {
		return false
	}
	for _, p := range players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

func (t *Table) beginHand() {
	t.state.Phase = models.Dealing()
	t.state.HandNumber++
}

// draw takes the next card. Reshuffled discards may still be flagged face up, so a face-down
// draw clears the flag.
func (t *Table) draw(faceUp bool) (models.Card, error) {
	var card models.Card
	var err error
	if faceUp {
		card, err = t.state.Deck.DrawFaceUp()
	} else {
		card, err = t.state.Deck.Draw()
		card.FaceUp = false
	}
	if err != nil {
		return models.Card{}, fmt.Errorf("draw: %w", err)
	}
	return card, nil
}

// dealRoundRobin gives one card per player per pass in seat order. When dealerFaceUp is set the
// dealer takes a card at the end of each pass.
func (t *Table) dealRoundRobin(players []*models.Player, passes int, faceUp bool, dealerFaceUp []bool) error {
	for pass := 0; pass < passes; pass++ {
		for _, p := range players {
			c, err := t.draw(faceUp)
			if err != nil {
				return err
			}
			p.Hand = append(p.Hand, c)
		}
		if pass < len(dealerFaceUp) {
			c, err := t.draw(dealerFaceUp[pass])
			if err != nil {
				return err
			}
			t.state.DealerCards = append(t.state.DealerCards, c)
		}
	}
	return nil
}

// finish ends the hand and queues a settlement for every seated account.
func (t *Table) finish() {
	t.state.Phase = models.Finished()
	t.state.CurrentTurn = ""
	for _, p := range t.state.Players.List() {
		t.settle(p, models.HistoryHandResult)
	}
}

type Snapshot struct {
	ID             string           `json:"id"`
	GameType       models.GameType  `json:"gameType"`
	Phase          models.Phase     `json:"phase"`
	Players        []*models.Player `json:"players"`
	WaitingRoom    []*models.Player `json:"waitingRoom"`
	DealerCards    []models.Card    `json:"dealerCards"`
	CommunityCards []models.Card    `json:"communityCards"`
	CurrentTurn    string           `json:"currentTurn"`
	Pot            int              `json:"pot"`
	HighestBet     int              `json:"highestBet"`
	Owner          string           `json:"owner"`
	HandNumber     int              `json:"handNumber"`
}

func (t *Table) Snapshot() Snapshot {
	s := t.state
	return Snapshot{
		ID:             s.ID,
		GameType:       s.GameType,
		Phase:          s.Phase,
		Players:        publicPlayers(s.Players.List()),
		WaitingRoom:    publicPlayers(s.WaitingRoom.List()),
		DealerCards:    maskCards(s.DealerCards),
		CommunityCards: maskCards(s.CommunityCards),
		CurrentTurn:    s.CurrentTurn,
		Pot:            s.Pot,
		HighestBet:     s.HighestBet,
		Owner:          s.Owner,
		HandNumber:     s.HandNumber,
	}
}

func (t *Table) Summary() models.RoomSummary {
	s := t.state
	return models.RoomSummary{
		ID:       s.ID,
		GameType: s.GameType,
		Phase:    s.Phase.String(),
		Players:  s.Players.Len(),
		Waiting:  s.WaitingRoom.Len(),
		Owner:    s.Owner,
		Hand:     s.HandNumber,
	}
}

func maskCards(cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	for i, c := range cards {
		if c.FaceUp {
			out[i] = c
		}
	}
	return out
}

// publicPlayers copies the sessions with face-down cards hidden.
func publicPlayers(players []*models.Player) []*models.Player {
	out := make([]*models.Player, len(players))
	for i, p := range players {
		cp := *p
		cp.Hand = maskCards(p.Hand)
		cp.Wagers = append([]models.Wager(nil), p.Wagers...)
		out[i] = &cp
	}
	return out
}
