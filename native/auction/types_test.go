package auction

import (
	"math/big"
	"testing"
)

func TestComputeIDIsDeterministic(t *testing.T) {
	seller := newTestAddress(0x01)
	treasury := newTestAddress(0x02)

	first := ComputeID(seller, treasury, [32]byte{0xAA})
	second := ComputeID(seller, treasury, [32]byte{0xAA})
	if first != second {
		t.Fatal("same definition must derive the same identifier")
	}
	if first == ComputeID(seller, treasury, [32]byte{0xBB}) {
		t.Fatal("different salts must derive different identifiers")
	}
	if first == ComputeID(treasury, seller, [32]byte{0xAA}) {
		t.Fatal("swapped parties must derive different identifiers")
	}
}

func TestAuctionCloneIsDeep(t *testing.T) {
	a := &Auction{ID: [32]byte{0x01}, MaxPrice: big.NewInt(100), Open: true}
	clone := a.Clone()
	clone.MaxPrice.SetInt64(999)
	if a.MaxPrice.Cmp(big.NewInt(100)) != 0 {
		t.Fatal("mutating the clone must not affect the original")
	}
}

func TestSanitizeAuction(t *testing.T) {
	if _, err := SanitizeAuction(nil); err == nil {
		t.Fatal("nil auction must be rejected")
	}
	if _, err := SanitizeAuction(&Auction{MaxPrice: big.NewInt(-1)}); err == nil {
		t.Fatal("negative price must be rejected")
	}
	if _, err := SanitizeAuction(&Auction{MaxPrice: big.NewInt(0), CreatedAt: 100, EndTime: 50}); err == nil {
		t.Fatal("end time before creation must be rejected")
	}
	sanitized, err := SanitizeAuction(&Auction{CreatedAt: 10, EndTime: 20})
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.MaxPrice == nil || sanitized.MaxPrice.Sign() != 0 {
		t.Fatal("nil price must normalise to zero")
	}
}

func TestSanitizeOffer(t *testing.T) {
	if _, err := SanitizeOffer(nil); err == nil {
		t.Fatal("nil offer must be rejected")
	}
	if _, err := SanitizeOffer(&Offer{Buyer: [20]byte{}, Amount: big.NewInt(1)}); err == nil {
		t.Fatal("offer without a buyer must be rejected")
	}
	if _, err := SanitizeOffer(&Offer{Buyer: newTestAddress(0xA1), Amount: big.NewInt(-5)}); err == nil {
		t.Fatal("negative stake must be rejected")
	}
	sanitized, err := SanitizeOffer(&Offer{Buyer: newTestAddress(0xA1)})
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.Amount == nil || sanitized.Amount.Sign() != 0 {
		t.Fatal("nil amount must normalise to zero")
	}
}
