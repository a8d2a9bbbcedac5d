package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// NotAvailable is the wire form of an unavailable field.
const NotAvailable = "N/A"

// Value is either a present number or the unavailable marker.
type Value struct {
	v  float64
	ok bool
}

func Present(v float64) Value { return Value{v: v, ok: true} }

func Unavailable() Value { return Value{} }

func (v Value) Float() (float64, bool) { return v.v, v.ok }

func (v Value) IsPresent() bool { return v.ok }

func (v Value) String() string {
	if !v.ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", v.v)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return json.Marshal(NotAvailable)
	}
	if math.IsNaN(v.v) || math.IsInf(v.v, 0) {
		return nil, fmt.Errorf("value is not finite: %v", v.v)
	}
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Unavailable()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != NotAvailable {
			return fmt.Errorf("unexpected value %q", s)
		}
		*v = Unavailable()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = Present(f)
	return nil
}

// QuoteRecord is the stored result for one ticker. A record is either fully
// populated or fully unavailable.
type QuoteRecord struct {
	Price     Value `json:"price"`
	Change    Value `json:"change"`
	PrevClose Value `json:"prevClose"`
}

func UnavailableRecord() QuoteRecord {
	return QuoteRecord{Price: Unavailable(), Change: Unavailable(), PrevClose: Unavailable()}
}

func (r QuoteRecord) Available() bool {
	return r.Price.ok && r.Change.ok && r.PrevClose.ok
}

// Valid reports whether the record is all present or all unavailable.
func (r QuoteRecord) Valid() bool {
	n := 0
	for _, v := range []Value{r.Price, r.Change, r.PrevClose} {
		if v.ok {
			n++
		}
	}
	return n == 0 || n == 3
}

// Snapshot maps ticker symbol to its latest record.
type Snapshot map[string]QuoteRecord

func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s Snapshot) Available() int {
	n := 0
	for _, r := range s {
		if r.Available() {
			n++
		}
	}
	return n
}

func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for sym, r := range s {
		or, ok := o[sym]
		if !ok || r != or {
			return false
		}
	}
	return true
}
