package auction

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"bidvault/core/types"
	"bidvault/crypto"
)

const (
	EventTypeAuctionCreated  = "auction.created"
	EventTypeAuctionBid      = "auction.bid"
	EventTypeAuctionClosed   = "auction.closed"
	EventTypeAuctionRefunded = "auction.refunded"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// auction.
func NewCreatedEvent(a *Auction) *types.Event { return newAuctionEvent(EventTypeAuctionCreated, a) }

// NewBidEvent returns the canonical event payload emitted when a bid is
// accepted and becomes the new highest bid.
func NewBidEvent(a *Auction, o *Offer) *types.Event {
	evt := newAuctionEvent(EventTypeAuctionBid, a)
	if o != nil {
		evt.Attributes["bidder"] = crypto.NewAddress(crypto.BidPrefix, o.Buyer[:]).String()
		evt.Attributes["escrowed"] = formatAmount(o.Amount)
	}
	return evt
}

// NewClosedEvent returns the canonical event payload emitted when the seller
// settles the auction.
func NewClosedEvent(a *Auction) *types.Event { return newAuctionEvent(EventTypeAuctionClosed, a) }

// NewRefundedEvent returns the canonical event payload emitted when a losing
// bidder reclaims their escrowed stake.
func NewRefundedEvent(a *Auction, buyer [20]byte, amount *big.Int) *types.Event {
	evt := newAuctionEvent(EventTypeAuctionRefunded, a)
	evt.Attributes["buyer"] = crypto.NewAddress(crypto.BidPrefix, buyer[:]).String()
	evt.Attributes["refunded"] = formatAmount(amount)
	return evt
}

func newAuctionEvent(eventType string, a *Auction) *types.Event {
	attrs := make(map[string]string)
	if a == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(a.ID[:])
	attrs["seller"] = crypto.NewAddress(crypto.BidPrefix, a.Seller[:]).String()
	attrs["treasury"] = crypto.NewAddress(crypto.BidPrefix, a.Treasury[:]).String()
	attrs["maxPrice"] = formatAmount(a.MaxPrice)
	attrs["endTime"] = strconv.FormatInt(a.EndTime, 10)
	attrs["open"] = strconv.FormatBool(a.Open)
	if a.MaxBidder != ([20]byte{}) {
		attrs["maxBidder"] = crypto.NewAddress(crypto.BidPrefix, a.MaxBidder[:]).String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
