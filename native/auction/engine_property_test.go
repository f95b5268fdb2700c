package auction

import (
	"errors"
	"math/big"
	"testing"

	"pgregory.net/rapid"
)

// Drives a random bid sequence against one auction and checks the standing
// invariants: the highest price never decreases and always equals the largest
// accepted bid, each bidder's escrowed stake never decreases, and the vault
// holds exactly the sum of all escrowed stakes.
func TestProperty_BidSequenceInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := newMockState()
		engine, now := newTestEngine(state)

		seller := newTestAddress(0x01)
		treasury := newTestAddress(0x02)
		bidders := [][20]byte{newTestAddress(0xA1), newTestAddress(0xB1), newTestAddress(0xC1), newTestAddress(0xD1)}
		for _, b := range bidders {
			state.fund(b, 1_000_000)
		}

		reserve := rapid.Int64Range(0, 1000).Draw(t, "reserve")
		a, err := engine.Create(seller, treasury, [32]byte{0x01}, 3600, big.NewInt(reserve))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		vault, _ := state.AuctionVaultAddress(a.ID)
		highest := big.NewInt(reserve)
		stakes := make(map[[20]byte]*big.Int)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			*now++
			bidder := bidders[rapid.IntRange(0, len(bidders)-1).Draw(t, "bidder")]
			amount := big.NewInt(rapid.Int64Range(0, 5000).Draw(t, "amount"))

			_, err := engine.Bid(a.ID, bidder, amount)
			switch {
			case err == nil:
				if amount.Cmp(highest) <= 0 {
					t.Fatalf("accepted bid %s not above previous highest %s", amount, highest)
				}
				highest = new(big.Int).Set(amount)
				prev := stakes[bidder]
				if prev != nil && amount.Cmp(prev) < 0 {
					t.Fatalf("bidder stake decreased from %s to %s", prev, amount)
				}
				stakes[bidder] = new(big.Int).Set(amount)
			case errors.Is(err, ErrBidTooLow):
				if amount.Cmp(highest) > 0 {
					t.Fatalf("bid %s above highest %s rejected as too low", amount, highest)
				}
			case errors.Is(err, ErrAlreadyHighestBidder):
				// Leader re-bid, nothing to check.
			default:
				t.Fatalf("unexpected bid error: %v", err)
			}

			got, _ := state.AuctionGet(a.ID)
			if got.MaxPrice.Cmp(highest) != 0 {
				t.Fatalf("max price %s diverged from highest accepted %s", got.MaxPrice, highest)
			}

			total := big.NewInt(0)
			for _, stake := range stakes {
				total.Add(total, stake)
			}
			if state.balance(vault).Cmp(total) != 0 {
				t.Fatalf("vault holds %s, offers sum to %s", state.balance(vault), total)
			}
		}
	})
}
