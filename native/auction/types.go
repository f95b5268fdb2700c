package auction

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNotFound is returned when the referenced auction or offer does not exist.
	ErrNotFound = errors.New("auction: not found")
	// ErrBidTooLow is returned when a bid is not strictly greater than the current
	// highest price. Ties do not win.
	ErrBidTooLow = errors.New("auction: bid too low")
	// ErrAlreadyHighestBidder is returned when the current leader attempts to
	// outbid themselves.
	ErrAlreadyHighestBidder = errors.New("auction: already the highest bidder")
	// ErrClosed is returned when a bid arrives after the deadline or when a
	// settled auction is asked to settle again.
	ErrClosed = errors.New("auction: closed")
	// ErrOpen is returned when settlement or refund is attempted while the
	// auction is still running.
	ErrOpen = errors.New("auction: still open")
	// ErrWrongOwner is returned when the caller does not match the identity
	// recorded on the auction or offer.
	ErrWrongOwner = errors.New("auction: wrong owner")
	// ErrInvalidOperation is returned for arithmetic overflow or underflow on
	// amounts and timestamps. No balances are mutated when it fires.
	ErrInvalidOperation = errors.New("auction: invalid operation")
	// ErrWinnerRefund is returned when the current highest bidder attempts a
	// self-refund. The winning stake funds the payout to the seller.
	ErrWinnerRefund = errors.New("auction: winner cannot refund")
	// ErrInsufficientFunds is returned when a transfer source lacks the balance
	// to cover the requested amount.
	ErrInsufficientFunds = errors.New("auction: insufficient funds")
	// ErrNothingEscrowed is returned when a refund targets an offer whose stake
	// has already been returned.
	ErrNothingEscrowed = errors.New("auction: nothing escrowed")
)

// Auction captures the parameters and runtime state of a single-item English
// auction. The identifier is the keccak256 hash of the seller, treasury and a
// caller-supplied salt, giving deterministic IDs without a registry.
type Auction struct {
	ID        [32]byte
	Seller    [20]byte
	Treasury  [20]byte
	MaxBidder [20]byte
	MaxPrice  *big.Int
	EndTime   int64
	CreatedAt int64
	Open      bool
}

// Clone returns a deep copy of the auction so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	if a.MaxPrice != nil {
		clone.MaxPrice = new(big.Int).Set(a.MaxPrice)
	} else {
		clone.MaxPrice = big.NewInt(0)
	}
	return &clone
}

// Offer tracks the cumulative amount one bidder currently holds in escrow for
// one auction. It is created lazily on the bidder's first accepted bid and
// zeroed on refund.
type Offer struct {
	AuctionID [32]byte
	Buyer     [20]byte
	Amount    *big.Int
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// ComputeID derives the deterministic auction identifier from its immutable
// definition.
func ComputeID(seller, treasury [20]byte, salt [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash(seller[:], treasury[:], salt[:])
}

// SanitizeAuction validates the supplied auction record, returning a cloned
// instance with a non-nil price field. The original value is not mutated.
func SanitizeAuction(a *Auction) (*Auction, error) {
	if a == nil {
		return nil, fmt.Errorf("auction: nil auction")
	}
	clone := a.Clone()
	if clone.MaxPrice.Sign() < 0 {
		return nil, fmt.Errorf("auction: price must be non-negative")
	}
	if clone.EndTime < clone.CreatedAt {
		return nil, fmt.Errorf("auction: end time before creation time")
	}
	return clone, nil
}

// SanitizeOffer validates the supplied offer record, returning a cloned
// instance with a non-nil amount field.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("auction: nil offer")
	}
	clone := o.Clone()
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("auction: offer amount must be non-negative")
	}
	if clone.Buyer == ([20]byte{}) {
		return nil, fmt.Errorf("auction: offer buyer required")
	}
	return clone, nil
}
