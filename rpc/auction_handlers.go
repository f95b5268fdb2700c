package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"bidvault/core/types"
	"bidvault/crypto"
	"bidvault/native/auction"
)

const (
	codeAuctionInvalidParams = -32021
	codeAuctionNotFound      = -32022
	codeAuctionForbidden     = -32023
	codeAuctionConflict      = -32024
	codeAuctionInternal      = -32025
)

type auctionCreateParams struct {
	Seller       string `json:"seller"`
	Treasury     string `json:"treasury"`
	Salt         string `json:"salt"`
	Duration     int64  `json:"duration"`
	ReservePrice string `json:"reservePrice"`
}

type auctionBidParams struct {
	ID     string `json:"id"`
	Bidder string `json:"bidder"`
	Amount string `json:"amount"`
}

type auctionActorParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

type auctionIDParams struct {
	ID string `json:"id"`
}

type auctionOfferParams struct {
	ID     string `json:"id"`
	Bidder string `json:"bidder"`
}

type auctionFundParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type auctionBalanceParams struct {
	Address string `json:"address"`
}

type auctionJSON struct {
	ID        string `json:"id"`
	Seller    string `json:"seller"`
	Treasury  string `json:"treasury"`
	MaxBidder string `json:"maxBidder,omitempty"`
	MaxPrice  string `json:"maxPrice"`
	EndTime   int64  `json:"endTime"`
	CreatedAt int64  `json:"createdAt"`
	Open      bool   `json:"open"`
}

type offerJSON struct {
	AuctionID string `json:"auctionId"`
	Buyer     string `json:"buyer"`
	Amount    string `json:"amount"`
}

type balanceJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type refundJSON struct {
	AuctionID string `json:"auctionId"`
	Buyer     string `json:"buyer"`
	Refunded  string `json:"refunded"`
}

func parseBech32Address(raw string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return out, fmt.Errorf("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid address: %w", err)
	}
	if addr.Prefix() != crypto.BidPrefix {
		return out, fmt.Errorf("address must carry the %s prefix", crypto.BidPrefix)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parsePositiveBigInt(raw, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%s required", field)
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a base-10 integer", field)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative", field)
	}
	return value, nil
}

func parseAuctionID(raw string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	if len(trimmed) != 64 {
		return out, fmt.Errorf("auction id must be 32 hex-encoded bytes")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid auction id: %w", err)
	}
	copy(out[:], decoded)
	return out, nil
}

func parseSaltHex(raw string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	if len(trimmed) != 64 {
		return out, fmt.Errorf("salt must be 32 hex-encoded bytes")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid salt: %w", err)
	}
	copy(out[:], decoded)
	return out, nil
}

func formatAuctionID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.BidPrefix, addr[:]).String()
}

func formatAuctionJSON(a *auction.Auction) auctionJSON {
	out := auctionJSON{
		ID:        formatAuctionID(a.ID),
		Seller:    formatAddress(a.Seller),
		Treasury:  formatAddress(a.Treasury),
		MaxPrice:  a.MaxPrice.String(),
		EndTime:   a.EndTime,
		CreatedAt: a.CreatedAt,
		Open:      a.Open,
	}
	if a.MaxBidder != ([20]byte{}) {
		out.MaxBidder = formatAddress(a.MaxBidder)
	}
	return out
}

func formatOfferJSON(o *auction.Offer) offerJSON {
	return offerJSON{
		AuctionID: formatAuctionID(o.AuctionID),
		Buyer:     formatAddress(o.Buyer),
		Amount:    o.Amount.String(),
	}
}

func decodeSingleParam(req *RPCRequest, target interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object")
	}
	if err := json.Unmarshal(req.Params[0], target); err != nil {
		return fmt.Errorf("invalid params payload: %w", err)
	}
	return nil
}

func (s *Server) handleAuctionCreate(w http.ResponseWriter, req *RPCRequest) {
	var params auctionCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	seller, err := parseBech32Address(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	treasury, err := parseBech32Address(params.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	salt, err := parseSaltHex(params.Salt)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	reserve, err := parsePositiveBigInt(params.ReservePrice, "reservePrice")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	created, err := s.node.AuctionCreate(seller, treasury, salt, params.Duration, reserve)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAuctionJSON(created))
}

func (s *Server) handleAuctionBid(w http.ResponseWriter, req *RPCRequest) {
	var params auctionBidParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAuctionID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	bidder, err := parseBech32Address(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parsePositiveBigInt(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	offer, err := s.node.AuctionBid(id, bidder, amount)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatOfferJSON(offer))
}

func (s *Server) handleAuctionEnd(w http.ResponseWriter, req *RPCRequest) {
	var params auctionActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAuctionID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	closed, err := s.node.AuctionEnd(id, caller)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAuctionJSON(closed))
}

func (s *Server) handleAuctionRefund(w http.ResponseWriter, req *RPCRequest) {
	var params auctionActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAuctionID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	refunded, err := s.node.AuctionRefund(id, caller)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, refundJSON{
		AuctionID: formatAuctionID(id),
		Buyer:     formatAddress(caller),
		Refunded:  refunded.String(),
	})
}

func (s *Server) handleAuctionFund(w http.ResponseWriter, req *RPCRequest) {
	var params auctionFundParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parsePositiveBigInt(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	if amount.Sign() == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, "amount must be positive", nil)
		return
	}
	if err := s.node.Mint(addr, amount); err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	account, err := s.node.GetAccount(addr)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceJSON{
		Address: formatAddress(addr),
		Balance: account.Balance.String(),
		Nonce:   account.Nonce,
	})
}

func (s *Server) handleAuctionGet(w http.ResponseWriter, req *RPCRequest) {
	var params auctionIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAuctionID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	record, err := s.node.AuctionGet(id)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAuctionJSON(record))
}

func (s *Server) handleAuctionGetOffer(w http.ResponseWriter, req *RPCRequest) {
	var params auctionOfferParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAuctionID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	bidder, err := parseBech32Address(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	offer, err := s.node.AuctionOffer(id, bidder)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatOfferJSON(offer))
}

func (s *Server) handleAuctionBalance(w http.ResponseWriter, req *RPCRequest) {
	var params auctionBalanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, err.Error(), nil)
		return
	}
	account, err := s.node.GetAccount(addr)
	if err != nil {
		writeAuctionError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceJSON{
		Address: formatAddress(addr),
		Balance: account.Balance.String(),
		Nonce:   account.Nonce,
	})
}

func (s *Server) handleAuctionEvents(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeAuctionInvalidParams, "auction_events takes no params", nil)
		return
	}
	evts := s.node.Events()
	if evts == nil {
		evts = []types.Event{}
	}
	writeResult(w, req.ID, evts)
}

// writeAuctionError maps engine errors onto HTTP status plus JSON-RPC error
// codes. Callers see not_found, forbidden, conflict, or internal_error.
func writeAuctionError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeAuctionNotFound, "not_found", err.Error())
	case errors.Is(err, auction.ErrWrongOwner),
		errors.Is(err, auction.ErrWinnerRefund),
		errors.Is(err, auction.ErrAlreadyHighestBidder):
		writeError(w, http.StatusForbidden, id, codeAuctionForbidden, "forbidden", err.Error())
	case errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrClosed),
		errors.Is(err, auction.ErrOpen),
		errors.Is(err, auction.ErrNothingEscrowed),
		errors.Is(err, auction.ErrInsufficientFunds),
		errors.Is(err, auction.ErrInvalidOperation):
		writeError(w, http.StatusConflict, id, codeAuctionConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeAuctionInternal, "internal_error", err.Error())
	}
}
