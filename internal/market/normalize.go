package market

import (
	"math"

	"github.com/shopspring/decimal"

	"nifty-bank-live/internal/snapshot"
)

// Normalize turns a raw provider quote into a stored record. A zero previous
// close means "no data", not "no change".
func Normalize(q RawQuote) snapshot.QuoteRecord {
	if !q.Available() || q.PrevClose == 0 || !finite(q.Last) || !finite(q.PrevClose) {
		return snapshot.UnavailableRecord()
	}
	change := (q.Last - q.PrevClose) / q.PrevClose * 100
	if !finite(change) {
		return snapshot.UnavailableRecord()
	}
	return snapshot.QuoteRecord{
		Price:     snapshot.Present(Round2(q.Last)),
		Change:    snapshot.Present(Round2(change)),
		PrevClose: snapshot.Present(Round2(q.PrevClose)),
	}
}

// NormalizeAll builds one record per universe ticker. Tickers missing from
// quotes are unavailable; quotes for tickers outside the universe are ignored.
func NormalizeAll(u Universe, quotes Quotes) snapshot.Snapshot {
	out := make(snapshot.Snapshot, u.Len())
	for _, sym := range u.symbols {
		q, ok := quotes[sym]
		if !ok {
			out[sym] = snapshot.UnavailableRecord()
			continue
		}
		out[sym] = Normalize(q)
	}
	return out
}

// Round2 rounds the shortest decimal form of v to two places, ties away
// from zero, so 1.005 becomes 1.01. Non-finite input is returned as is.
func Round2(v float64) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
