package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrInvalidProbability is returned for a probability outside [0, 1] or a
// key that is not a 2-digit number.
var ErrInvalidProbability = errors.New("invalid probability")

// ReadProbabilities decodes a JSON object of loto -> probability.
// Keys are normalized to two digits ("7" becomes "07").
func ReadProbabilities(r io.Reader) (map[string]float64, error) {
	var raw map[string]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode probabilities: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for k, p := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || n > 99 || len(k) > 2 {
			return nil, fmt.Errorf("key %q: %w", k, ErrInvalidProbability)
		}
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%s = %v: %w", k, p, ErrInvalidProbability)
		}
		out[fmt.Sprintf("%02d", n)] = p
	}
	return out, nil
}
