package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PredictionKind defines how a prediction is checked against an outcome.
type PredictionKind string

const (
	PredictPair    PredictionKind = "PAIR"    // Lô: hit when any number is among the lotos
	PredictTouch   PredictionKind = "TOUCH"   // Đề: hit when either đề digit is a touch
	PredictNumbers PredictionKind = "NUMBERS" // Đề: hit when the đề is one of the numbers
	PredictExclude PredictionKind = "EXCLUDE" // Đề: hit when no đề digit is a touch
)

// Prediction is the number set a bridge produces for one draw.
type Prediction struct {
	Kind    PredictionKind
	Numbers []string // zero-padded 2-digit numbers (PAIR, NUMBERS)
	Touches []int    // digits 0-9 (TOUCH, EXCLUDE)
	Label   string   // optional display label, e.g. "Bộ 12"
}

// Outcome is what a draw actually produced, as seen by predictions.
type Outcome struct {
	Lotos map[string]struct{} // last two digits of every number in every tier
	De    string              // last two digits of the special prize, "" if missing
}

// HasLoto reports whether n appeared among the lotos.
func (o Outcome) HasLoto(n string) bool {
	_, ok := o.Lotos[n]
	return ok
}

// IsEmpty reports whether the outcome carries nothing to check against.
func (o Outcome) IsEmpty() bool {
	return len(o.Lotos) == 0 && o.De == ""
}

// Hit checks the prediction against an outcome.
func (p Prediction) Hit(o Outcome) bool {
	switch p.Kind {
	case PredictPair:
		for _, n := range p.Numbers {
			if o.HasLoto(n) {
				return true
			}
		}
		return false
	case PredictNumbers:
		for _, n := range p.Numbers {
			if n == o.De {
				return true
			}
		}
		return false
	case PredictTouch:
		return touches(o.De, p.Touches)
	case PredictExclude:
		if len(o.De) != 2 {
			return false
		}
		return !touches(o.De, p.Touches)
	default:
		return false
	}
}

func touches(de string, digits []int) bool {
	if len(de) != 2 {
		return false
	}
	d1, d2 := int(de[0]-'0'), int(de[1]-'0')
	for _, t := range digits {
		if t == d1 || t == d2 {
			return true
		}
	}
	return false
}

// Targets returns the 2-digit numbers the prediction covers, sorted.
// Touch and exclusion predictions cover every number containing a touch digit.
func (p Prediction) Targets() []string {
	switch p.Kind {
	case PredictPair, PredictNumbers:
		seen := make(map[string]struct{}, len(p.Numbers))
		out := make([]string, 0, len(p.Numbers))
		for _, n := range p.Numbers {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
		sort.Strings(out)
		return out
	case PredictTouch, PredictExclude:
		var out []string
		for i := 0; i < 100; i++ {
			n := fmt.Sprintf("%02d", i)
			if touches(n, p.Touches) {
				out = append(out, n)
			}
		}
		return out
	default:
		return nil
	}
}

// String renders the prediction the way reports and stores carry it:
// "12,21" for number sets, "T:3,8" for touches, "X:4" for exclusions.
func (p Prediction) String() string {
	switch p.Kind {
	case PredictTouch:
		return "T:" + joinDigits(p.Touches)
	case PredictExclude:
		return "X:" + joinDigits(p.Touches)
	default:
		return strings.Join(p.Numbers, ",")
	}
}

func joinDigits(ds []int) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// ParsePrediction is the inverse of Prediction.String for a known kind.
func ParsePrediction(kind PredictionKind, s string) (Prediction, error) {
	p := Prediction{Kind: kind}
	switch kind {
	case PredictTouch, PredictExclude:
		s = strings.TrimPrefix(strings.TrimPrefix(s, "T:"), "X:")
		if s == "" {
			return p, nil
		}
		for _, part := range strings.Split(s, ",") {
			d, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || d < 0 || d > 9 {
				return Prediction{}, fmt.Errorf("parse touch %q: %w", part, ErrUnresolvableReference)
			}
			p.Touches = append(p.Touches, d)
		}
	case PredictPair, PredictNumbers:
		if s == "" {
			return p, nil
		}
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if len(part) != 2 {
				return Prediction{}, fmt.Errorf("parse number %q: %w", part, ErrUnresolvableReference)
			}
			p.Numbers = append(p.Numbers, part)
		}
	default:
		return Prediction{}, fmt.Errorf("parse prediction kind %q: %w", kind, ErrUnresolvableReference)
	}
	return p, nil
}
