package core

import (
	"math/big"
	"sync"

	"bidvault/core/events"
	"bidvault/core/state"
	"bidvault/core/types"
	"bidvault/native/auction"
	"bidvault/storage"
)

const maxRecentEvents = 256

// Node owns the ledger state and the auction engine and serializes every
// operation behind a single mutex, so no two operations on the same auction
// ever interleave. The mutex is the transaction boundary.
type Node struct {
	mu     sync.Mutex
	state  *state.Manager
	engine *auction.Engine

	recentEvents []types.Event
}

// NewNode wires a state manager and auction engine over the provided database.
func NewNode(db storage.Database) *Node {
	n := &Node{state: state.NewManager(db)}
	engine := auction.NewEngine()
	engine.SetState(n.state)
	engine.SetEmitter(n)
	n.engine = engine
	return n
}

// SetNowFunc overrides the engine's time source. Intended for tests.
func (n *Node) SetNowFunc(now func() int64) {
	n.engine.SetNowFunc(now)
}

// Emit implements events.Emitter, buffering recent events for RPC queries.
// Called with the node mutex already held by the operation that emitted.
func (n *Node) Emit(evt events.Event) {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	n.recentEvents = append(n.recentEvents, *payload)
	if len(n.recentEvents) > maxRecentEvents {
		n.recentEvents = n.recentEvents[len(n.recentEvents)-maxRecentEvents:]
	}
}

// Events returns a copy of the buffered events, newest last.
func (n *Node) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Event, len(n.recentEvents))
	copy(out, n.recentEvents)
	return out
}

// AuctionCreate initialises a new auction.
func (n *Node) AuctionCreate(seller, treasury [20]byte, salt [32]byte, duration int64, reservePrice *big.Int) (*auction.Auction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Create(seller, treasury, salt, duration, reservePrice)
}

// AuctionBid places a cumulative-total bid for the given bidder.
func (n *Node) AuctionBid(id [32]byte, bidder [20]byte, amount *big.Int) (*auction.Offer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Bid(id, bidder, amount)
}

// AuctionEnd settles the auction in favour of the seller.
func (n *Node) AuctionEnd(id [32]byte, caller [20]byte) (*auction.Auction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.End(id, caller)
}

// AuctionRefund returns a losing bidder's escrowed stake.
func (n *Node) AuctionRefund(id [32]byte, caller [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Refund(id, caller)
}

// AuctionGet returns the auction with the given identifier.
func (n *Node) AuctionGet(id [32]byte) (*auction.Auction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Get(id)
}

// AuctionOffer returns the offer a bidder holds against an auction.
func (n *Node) AuctionOffer(id [32]byte, bidder [20]byte) (*auction.Offer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.OfferOf(id, bidder)
}

// GetAccount returns the account stored for the address.
func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr[:])
}

// Mint credits an address with native balance. Operator facility for seeding
// accounts.
func (n *Node) Mint(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Mint(addr[:], amount)
}
