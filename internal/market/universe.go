package market

import "strings"

// Default watchlists. The tracked universe is their union.
var (
	Nifty50Top5   = []string{"RELIANCE.NS", "TCS.NS", "INFY.NS", "HDFCBANK.NS", "ICICIBANK.NS"}
	BankNiftyTop5 = []string{"HDFCBANK.NS", "ICICIBANK.NS", "SBIN.NS", "AXISBANK.NS", "KOTAKBANK.NS"}
)

// Universe is the fixed, deduplicated set of tracked tickers in first-seen order.
type Universe struct {
	symbols []string
	index   map[string]struct{}
}

func NewUniverse(lists ...[]string) Universe {
	u := Universe{index: make(map[string]struct{})}
	for _, list := range lists {
		for _, sym := range list {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym == "" {
				continue
			}
			if _, dup := u.index[sym]; dup {
				continue
			}
			u.index[sym] = struct{}{}
			u.symbols = append(u.symbols, sym)
		}
	}
	return u
}

func (u Universe) Symbols() []string {
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out
}

func (u Universe) Contains(symbol string) bool {
	_, ok := u.index[symbol]
	return ok
}

func (u Universe) Len() int { return len(u.symbols) }
