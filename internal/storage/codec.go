package storage

import (
	"encoding/json"
	"fmt"

	"lottery-bridge-lab/internal/domain"
)

// EncodeMetrics renders bridge metrics as the JSON stored in the metrics
// column. A nil metrics value encodes to nil (SQL NULL).
func EncodeMetrics(m *domain.BridgeMetrics) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	return data, nil
}

// DecodeMetrics is the inverse of EncodeMetrics. Empty input decodes to nil.
func DecodeMetrics(data []byte) (*domain.BridgeMetrics, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m domain.BridgeMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &m, nil
}

// EncodePrediction splits a prediction into its stored columns. A nil
// prediction encodes to an empty kind and a nil value.
func EncodePrediction(p *domain.Prediction) (kind string, value *string, label string) {
	if p == nil {
		return "", nil, ""
	}
	s := p.String()
	return string(p.Kind), &s, p.Label
}

// DecodePrediction is the inverse of EncodePrediction.
func DecodePrediction(kind string, value *string, label string) (*domain.Prediction, error) {
	if kind == "" || value == nil {
		return nil, nil
	}
	p, err := domain.ParsePrediction(domain.PredictionKind(kind), *value)
	if err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	p.Label = label
	return &p, nil
}
