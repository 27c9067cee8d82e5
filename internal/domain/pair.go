package domain

import "strings"

const pairSep = "->"

// PairKey renders an ordered pair as "FROM->TO".
func PairKey(from, to string) string {
	return NormalizeCode(from) + pairSep + NormalizeCode(to)
}

// SplitPairKey is the inverse of PairKey.
func SplitPairKey(key string) (from, to string, ok bool) {
	from, to, ok = strings.Cut(key, pairSep)
	if !ok || !codeRe.MatchString(from) || !codeRe.MatchString(to) {
		return "", "", false
	}
	return from, to, true
}
