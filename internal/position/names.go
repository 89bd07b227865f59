package position

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"lottery-bridge-lab/internal/domain"
)

const (
	mirrorPrefix = "Bong("
	mirrorSuffix = ")"
)

var namePattern = regexp.MustCompile(`^(GDB|G[1-7])(?:\.(\d+))?\[(\d+)\]$`)

// Name returns the display name of slot i:
// GDB[2], G1[0], G3.2[4], Bong(G7.4[1]).
func Name(i int) (string, bool) {
	if i < 0 || i >= Size {
		return "", false
	}
	if i >= Canonical {
		inner, _ := Name(i - Canonical)
		return mirrorPrefix + inner + mirrorSuffix, true
	}
	for _, l := range layout {
		end := l.start + l.count*l.width
		if i >= end {
			continue
		}
		offset := i - l.start
		group, digit := offset/l.width, offset%l.width
		if l.count == 1 {
			return fmt.Sprintf("%s[%d]", l.tier.Code(), digit), true
		}
		return fmt.Sprintf("%s.%d[%d]", l.tier.Code(), group+1, digit), true
	}
	return "", false
}

// Index resolves a slot name produced by Name.
// The group number may be omitted for single-number tiers.
// Unresolvable names return false.
func Index(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, mirrorPrefix) && strings.HasSuffix(name, mirrorSuffix) {
		inner := strings.TrimSuffix(strings.TrimPrefix(name, mirrorPrefix), mirrorSuffix)
		i, ok := Index(inner)
		if !ok || i >= Canonical {
			return 0, false
		}
		return i + Canonical, true
	}

	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	tier, ok := tierByCode(m[1])
	if !ok {
		return 0, false
	}
	group := 1
	if m[2] != "" {
		g, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, false
		}
		group = g
	}
	digit, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}

	l := layout[tier]
	if group < 1 || group > l.count || digit < 0 || digit >= l.width {
		return 0, false
	}
	return l.start + (group-1)*l.width + digit, true
}

// MustIndex is Index for names known at compile time.
func MustIndex(name string) int {
	i, ok := Index(name)
	if !ok {
		panic(fmt.Sprintf("position: unknown slot name %q", name))
	}
	return i
}

// ResolveName is Index with the error taxonomy of the engine.
func ResolveName(name string) (int, error) {
	i, ok := Index(name)
	if !ok {
		return 0, fmt.Errorf("slot %q: %w", name, domain.ErrUnresolvableReference)
	}
	return i, nil
}

func tierByCode(code string) (domain.Tier, bool) {
	for t := domain.TierSpecial; t <= domain.TierSeventh; t++ {
		if t.Code() == code {
			return t, true
		}
	}
	return 0, false
}
