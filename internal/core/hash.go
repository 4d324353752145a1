package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"unicode/utf16"
)

const murmurM = 0x5bd1e995

// HashString is the murmur2 variant used by @emotion/hash: seed zero, one
// byte per UTF-16 code unit, rendered in base 36.
func HashString(s string) string {
	units := utf16.Encode([]rune(s))

	var h uint32
	i := 0
	n := len(units)
	for ; n >= 4; n -= 4 {
		k := uint32(units[i]&0xff) |
			uint32(units[i+1]&0xff)<<8 |
			uint32(units[i+2]&0xff)<<16 |
			uint32(units[i+3]&0xff)<<24
		i += 4

		k *= murmurM
		k ^= k >> 24
		h = (k * murmurM) ^ (h * murmurM)
	}

	switch n {
	case 3:
		h ^= uint32(units[i+2]&0xff) << 16
		fallthrough
	case 2:
		h ^= uint32(units[i+1]&0xff) << 8
		fallthrough
	case 1:
		h ^= uint32(units[i] & 0xff)
		h *= murmurM
	}

	h ^= h >> 13
	h *= murmurM
	h ^= h >> 15

	return strconv.FormatUint(uint64(h), 36)
}

func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
