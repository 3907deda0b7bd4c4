package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"sync/atomic"
)

// HoursPerDay is the fixed length of every hourly bucket sequence.
const HoursPerDay = 24

// HourlyBuckets is a 24-slot counter sequence, index = hour of day.
type HourlyBuckets [HoursPerDay]int64

var healedBuckets atomic.Int64

// HealedBuckets reports how many corrupt hourly sequences were reset while decoding.
func HealedBuckets() int64 {
	return healedBuckets.Load()
}

// UnmarshalJSON accepts only a 24-element numeric array. Anything else
// (wrong length, strings, nulls, nested values) decodes as 24 zeros.
func (b *HourlyBuckets) UnmarshalJSON(data []byte) error {
	*b = HourlyBuckets{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) != HoursPerDay {
		healedBuckets.Add(1)
		return nil
	}

	var out HourlyBuckets
	for i, item := range raw {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			healedBuckets.Add(1)
			return nil
		}
		n, ok := v.(json.Number)
		if !ok {
			healedBuckets.Add(1)
			return nil
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			healedBuckets.Add(1)
			return nil
		}
		out[i] = int64(math.Round(f))
	}
	*b = out
	return nil
}

// Sum adds every bucket.
func (b HourlyBuckets) Sum() int64 {
	var total int64
	for _, v := range b {
		total += v
	}
	return total
}
