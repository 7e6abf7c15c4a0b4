package util

import (
	"cmp"
	"strconv"
	"unicode"
)

// CompareNatural orders strings with a numeric suffix by that number,
// so that "V2" sorts before "V10"
func CompareNatural(a, b string) int {
	aPrefix, aNum, aOk := splitNumericSuffix(a)
	bPrefix, bNum, bOk := splitNumericSuffix(b)
	if !aOk || !bOk || aPrefix != bPrefix {
		return cmp.Compare(a, b)
	}
	if c := cmp.Compare(aNum, bNum); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func splitNumericSuffix(s string) (prefix string, n uint64, ok bool) {
	i := len(s)
	for i > 0 && unicode.IsDigit(rune(s[i-1])) {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.ParseUint(s[i:], 10, 64)
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
