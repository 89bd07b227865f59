package bridge

import (
	"fmt"
	"sort"
)

// A Bộ groups the numbers whose digits agree modulo 5.
// The 5 double sets (00, 11, 22, 33, 44) hold 4 numbers, the other 10 hold 8.

// SetKey identifies a Bộ by its reduced digits, e.g. "03".
type SetKey string

var setMembers = buildSets()

func buildSets() map[SetKey][]string {
	sets := make(map[SetKey][]string, 15)
	for i := 0; i < 100; i++ {
		n := fmt.Sprintf("%02d", i)
		key, _ := SetOf(n)
		sets[key] = append(sets[key], n)
	}
	return sets
}

// SetOf returns the Bộ of a 2-digit number.
func SetOf(number string) (SetKey, bool) {
	if len(number) != 2 || number[0] < '0' || number[0] > '9' || number[1] < '0' || number[1] > '9' {
		return "", false
	}
	a, b := int(number[0]-'0')%5, int(number[1]-'0')%5
	if a > b {
		a, b = b, a
	}
	return SetKey(fmt.Sprintf("%d%d", a, b)), true
}

// SetOfDigits returns the Bộ of the number formed by two digits.
func SetOfDigits(d1, d2 int) SetKey {
	key, _ := SetOf(fmt.Sprintf("%d%d", d1, d2))
	return key
}

// SetMembers returns the sorted numbers of a Bộ, nil for an unknown key.
func SetMembers(key SetKey) []string {
	members := setMembers[key]
	if members == nil {
		return nil
	}
	return append([]string(nil), members...)
}

// AllSets returns the 15 Bộ keys in order.
func AllSets() []SetKey {
	keys := make([]SetKey, 0, len(setMembers))
	for k := range setMembers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
