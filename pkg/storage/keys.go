package storage

import (
	"fmt"
	"strconv"
)

// Key schema:
//
//	ord:<20-digit sequence> → wire order JSON
//	meta:seq                → next sequence number
//
// Zero-padded sequences keep pebble's byte order equal to insertion order.
const (
	prefixOrder = "ord:"
	keyNextSeq  = "meta:seq"
	seqDigits   = 20
)

func orderKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%0*d", prefixOrder, seqDigits, seq))
}

func seqFromKey(key []byte) (uint64, error) {
	if len(key) != len(prefixOrder)+seqDigits {
		return 0, fmt.Errorf("malformed order key %q", key)
	}
	return strconv.ParseUint(string(key[len(prefixOrder):]), 10, 64)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
