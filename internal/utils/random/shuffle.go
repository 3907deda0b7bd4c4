package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Shuffle performs a cryptographically secure shuffle of the slice.
func Shuffle[T any](slice []T) error {
	for i := len(slice) - 1; i > 0; i-- {
		j, err := Intn(i + 1)
		if err != nil {
			return err
		}
		slice[i], slice[j] = slice[j], slice[i]
	}
	return nil
}

// Sample returns n distinct elements drawn uniformly without replacement.
// The input slice is left untouched; n is clamped to len(items).
func Sample[T any](items []T, n int) ([]T, error) {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return []T{}, nil
	}
	pool := make([]T, len(items))
	copy(pool, items)
	if err := Shuffle(pool); err != nil {
		return nil, err
	}
	return pool[:n], nil
}

// Pick returns one uniformly random element of a non-empty slice.
func Pick[T any](items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, fmt.Errorf("pick from empty slice")
	}
	i, err := Intn(len(items))
	if err != nil {
		return zero, err
	}
	return items[i], nil
}

// Intn returns a uniform integer in [0, n).
func Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}
