package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Distributor is the external money mover. Shares are pot fractions that
// sum to exactly 1; the engine never touches currency itself.
type Distributor interface {
	Distribute(ctx context.Context, roomID string, potCents int64, shares map[string]decimal.Decimal) error
}

// EvenShares splits the pot evenly across userIDs. The last share takes
// the complement so rounding can never make the total drift from 1.
func EvenShares(userIDs []string) map[string]decimal.Decimal {
	if len(userIDs) == 0 {
		return nil
	}

	out := make(map[string]decimal.Decimal, len(userIDs))
	each := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(userIDs))))
	running := decimal.Zero
	for i, id := range userIDs {
		if i == len(userIDs)-1 {
			out[id] = decimal.NewFromInt(1).Sub(running)
			break
		}
		out[id] = each
		running = running.Add(each)
	}

	return out
}

// SoleWinner is the degenerate split for a single surviving member.
func SoleWinner(userID string) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{userID: decimal.NewFromInt(1)}
}
