package state

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bidvault/native/auction"
)

var (
	auctionRecordPrefix = []byte("auction/record/")
	auctionOfferPrefix  = []byte("auction/offer/")
	auctionVaultSeed    = []byte("auction/vault/")
)

func auctionStorageKey(id [32]byte) []byte {
	buf := make([]byte, len(auctionRecordPrefix)+len(id))
	copy(buf, auctionRecordPrefix)
	copy(buf[len(auctionRecordPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

// offerStorageKey derives the unique slot for a bidder's offer from the pair
// (auction, bidder), replacing the host-runtime seed derivation with a plain
// hash of both identities.
func offerStorageKey(id [32]byte, buyer [20]byte) []byte {
	buf := make([]byte, len(auctionOfferPrefix)+len(id)+len(buyer))
	copy(buf, auctionOfferPrefix)
	copy(buf[len(auctionOfferPrefix):], id[:])
	copy(buf[len(auctionOfferPrefix)+len(id):], buyer[:])
	return ethcrypto.Keccak256(buf)
}

type storedAuction struct {
	ID        [32]byte
	Seller    [20]byte
	Treasury  [20]byte
	MaxBidder [20]byte
	MaxPrice  *big.Int
	EndTime   *big.Int
	CreatedAt *big.Int
	Open      uint8
}

func newStoredAuction(a *auction.Auction) *storedAuction {
	price := big.NewInt(0)
	if a.MaxPrice != nil {
		price = new(big.Int).Set(a.MaxPrice)
	}
	open := uint8(0)
	if a.Open {
		open = 1
	}
	return &storedAuction{
		ID:        a.ID,
		Seller:    a.Seller,
		Treasury:  a.Treasury,
		MaxBidder: a.MaxBidder,
		MaxPrice:  price,
		EndTime:   big.NewInt(a.EndTime),
		CreatedAt: big.NewInt(a.CreatedAt),
		Open:      open,
	}
}

func (s *storedAuction) toAuction() *auction.Auction {
	out := &auction.Auction{
		ID:        s.ID,
		Seller:    s.Seller,
		Treasury:  s.Treasury,
		MaxBidder: s.MaxBidder,
		MaxPrice:  big.NewInt(0),
		Open:      s.Open == 1,
	}
	if s.MaxPrice != nil {
		out.MaxPrice = new(big.Int).Set(s.MaxPrice)
	}
	if s.EndTime != nil {
		out.EndTime = s.EndTime.Int64()
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	return out
}

type storedOffer struct {
	AuctionID [32]byte
	Buyer     [20]byte
	Amount    *big.Int
}

// AuctionPut validates and persists an auction record.
func (m *Manager) AuctionPut(a *auction.Auction) error {
	sanitized, err := auction.SanitizeAuction(a)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(newStoredAuction(sanitized))
	if err != nil {
		return err
	}
	return m.db.Put(auctionStorageKey(sanitized.ID), encoded)
}

// AuctionGet loads an auction record. The boolean is false when no record
// exists or the stored bytes cannot be decoded.
func (m *Manager) AuctionGet(id [32]byte) (*auction.Auction, bool) {
	data, err := m.db.Get(auctionStorageKey(id))
	if err != nil {
		return nil, false
	}
	stored := new(storedAuction)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	return stored.toAuction(), true
}

// OfferPut validates and persists a bidder's offer record.
func (m *Manager) OfferPut(o *auction.Offer) error {
	sanitized, err := auction.SanitizeOffer(o)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(&storedOffer{
		AuctionID: sanitized.AuctionID,
		Buyer:     sanitized.Buyer,
		Amount:    sanitized.Amount,
	})
	if err != nil {
		return err
	}
	return m.db.Put(offerStorageKey(sanitized.AuctionID, sanitized.Buyer), encoded)
}

// OfferGet loads the offer a bidder holds against an auction.
func (m *Manager) OfferGet(id [32]byte, buyer [20]byte) (*auction.Offer, bool) {
	data, err := m.db.Get(offerStorageKey(id, buyer))
	if err != nil {
		return nil, false
	}
	stored := new(storedOffer)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	amount := big.NewInt(0)
	if stored.Amount != nil {
		amount = new(big.Int).Set(stored.Amount)
	}
	return &auction.Offer{AuctionID: stored.AuctionID, Buyer: stored.Buyer, Amount: amount}, true
}

// AuctionVaultAddress derives the program-controlled escrow account for an
// auction. No private key exists for the address, so vault funds move only
// through the engine.
func (m *Manager) AuctionVaultAddress(id [32]byte) ([20]byte, error) {
	buf := make([]byte, len(auctionVaultSeed)+len(id))
	copy(buf, auctionVaultSeed)
	copy(buf[len(auctionVaultSeed):], id[:])
	digest := ethcrypto.Keccak256(buf)
	var vault [20]byte
	copy(vault[:], digest[12:])
	if vault == ([20]byte{}) {
		return vault, errors.New("state: derived zero vault address")
	}
	return vault, nil
}
