package auction

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"bidvault/core/events"
	"bidvault/core/types"
)

var errNilState = errors.New("auction engine: state not configured")

// engineState is the narrow view of ledger state the engine mutates. It is
// implemented by core/state.Manager and by test doubles.
type engineState interface {
	AuctionPut(*Auction) error
	AuctionGet(id [32]byte) (*Auction, bool)
	OfferPut(*Offer) error
	OfferGet(auctionID [32]byte, buyer [20]byte) (*Offer, bool)
	AuctionVaultAddress(id [32]byte) ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type auctionEvent struct {
	evt *types.Event
}

func (e auctionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e auctionEvent) Event() *types.Event { return e.evt }

// Engine wires the auction escrow state machine with external state and event
// emitters. All authorization and window checks run before any balance
// transfer, so a failed operation never leaves partial side effects.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates an auction engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(auctionEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) loadAuction(id [32]byte) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	a, ok := e.state.AuctionGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// transfer moves amount between two ledger accounts. It is the only place the
// engine mutates raw balances and never partially applies.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: negative transfer amount", ErrInvalidOperation)
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// Create initialises and persists a new auction. The identifier derives from
// the seller, treasury and salt, so retrying an identical definition is
// idempotent while a colliding identifier with a different definition is
// rejected.
func (e *Engine) Create(seller, treasury [20]byte, salt [32]byte, duration int64, reservePrice *big.Int) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if seller == ([20]byte{}) {
		return nil, fmt.Errorf("auction: seller required")
	}
	if treasury == ([20]byte{}) {
		return nil, fmt.Errorf("auction: treasury required")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidOperation)
	}
	reserve := cloneBigInt(reservePrice)
	if reserve.Sign() < 0 {
		return nil, fmt.Errorf("%w: reserve price must be non-negative", ErrInvalidOperation)
	}
	now := e.now()
	if now > math.MaxInt64-duration {
		return nil, fmt.Errorf("%w: end time overflows timestamp range", ErrInvalidOperation)
	}
	id := ComputeID(seller, treasury, salt)
	if existing, ok := e.state.AuctionGet(id); ok {
		if existing.Seller != seller || existing.Treasury != treasury {
			return nil, fmt.Errorf("auction: identifier already exists with different definition")
		}
		return existing.Clone(), nil
	}
	a := &Auction{
		ID:        id,
		Seller:    seller,
		Treasury:  treasury,
		MaxPrice:  reserve,
		EndTime:   now + duration,
		CreatedAt: now,
		Open:      true,
	}
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(a))
	return a.Clone(), nil
}

// Bid places a bid expressed as the bidder's new cumulative escrowed total.
// Only the difference between the new total and what the bidder already holds
// in escrow moves from their balance into the auction vault, so a returning
// bidder tops up instead of re-depositing their full stake.
//
// Checks run in order: deadline, price, self-outbid. The first failing check
// wins and nothing is mutated.
func (e *Engine) Bid(id [32]byte, bidder [20]byte, amount *big.Int) (*Offer, error) {
	a, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	if !a.Open || e.now() >= a.EndTime {
		return nil, ErrClosed
	}
	amt := cloneBigInt(amount)
	if amt.Cmp(a.MaxPrice) <= 0 {
		return nil, ErrBidTooLow
	}
	if bidder == a.MaxBidder {
		return nil, ErrAlreadyHighestBidder
	}
	offer, ok := e.state.OfferGet(id, bidder)
	if !ok {
		offer = &Offer{AuctionID: id, Buyer: bidder, Amount: big.NewInt(0)}
	}
	if offer.Amount == nil {
		offer.Amount = big.NewInt(0)
	}
	// amount > maxPrice >= the bidder's previous accepted total, so the delta
	// is positive whenever the ordering above holds. Guard anyway: a negative
	// delta would silently refund the difference.
	delta := new(big.Int).Sub(amt, offer.Amount)
	if delta.Sign() <= 0 {
		return nil, fmt.Errorf("%w: bid below already escrowed stake", ErrInvalidOperation)
	}
	vault, err := e.state.AuctionVaultAddress(id)
	if err != nil {
		return nil, err
	}
	if err := e.transfer(bidder, vault, delta); err != nil {
		return nil, err
	}
	offer.Amount = amt
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	a.MaxPrice = cloneBigInt(amt)
	a.MaxBidder = bidder
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewBidEvent(a, offer))
	return offer.Clone(), nil
}

// End settles the auction: the winning amount moves from the vault to the
// seller and the auction closes. Only the seller may call it, only after the
// deadline, and only once.
func (e *Engine) End(id [32]byte, caller [20]byte) (*Auction, error) {
	a, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	if caller != a.Seller {
		return nil, ErrWrongOwner
	}
	if e.now() < a.EndTime {
		return nil, ErrOpen
	}
	if !a.Open {
		return nil, ErrClosed
	}
	if a.MaxBidder != ([20]byte{}) {
		vault, err := e.state.AuctionVaultAddress(id)
		if err != nil {
			return nil, err
		}
		if err := e.transfer(vault, a.Seller, a.MaxPrice); err != nil {
			return nil, err
		}
	}
	a.Open = false
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewClosedEvent(a))
	return a.Clone(), nil
}

// Refund returns a losing bidder's escrowed stake once the auction has been
// settled. The winner's stake funded the payout and is never refunded. A
// second refund of the same offer finds a zero stake and is rejected.
func (e *Engine) Refund(id [32]byte, caller [20]byte) (*big.Int, error) {
	a, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	if a.Open {
		return nil, ErrOpen
	}
	if caller == a.MaxBidder {
		return nil, ErrWinnerRefund
	}
	offer, ok := e.state.OfferGet(id, caller)
	if !ok {
		return nil, ErrNotFound
	}
	if offer.Buyer != caller {
		return nil, ErrWrongOwner
	}
	amount := cloneBigInt(offer.Amount)
	if amount.Sign() == 0 {
		return nil, ErrNothingEscrowed
	}
	vault, err := e.state.AuctionVaultAddress(id)
	if err != nil {
		return nil, err
	}
	if err := e.transfer(vault, caller, amount); err != nil {
		return nil, err
	}
	offer.Amount = big.NewInt(0)
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(NewRefundedEvent(a, caller, amount))
	return amount, nil
}

// Get returns the auction with the given identifier.
func (e *Engine) Get(id [32]byte) (*Auction, error) {
	return e.loadAuction(id)
}

// OfferOf returns the offer a bidder holds against an auction.
func (e *Engine) OfferOf(id [32]byte, bidder [20]byte) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok := e.state.AuctionGet(id); !ok {
		return nil, ErrNotFound
	}
	offer, ok := e.state.OfferGet(id, bidder)
	if !ok {
		return nil, ErrNotFound
	}
	return offer, nil
}
