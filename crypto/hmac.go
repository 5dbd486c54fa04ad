package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
)

// HMACSHA384Size is the size of an HMAC-SHA384 tag.
const HMACSHA384Size = 48

// HMACSHA384 computes HMAC-SHA384 over the concatenation of parts.
func HMACSHA384(key []byte, parts ...[]byte) [HMACSHA384Size]byte {
	mac := hmac.New(sha512.New384, key)
	for _, p := range parts {
		mac.Write(p)
	}
	var out [HMACSHA384Size]byte
	mac.Sum(out[:0])
	return out
}

// VerifyHMACSHA384 checks tag against HMAC-SHA384 over parts in constant time.
func VerifyHMACSHA384(key, tag []byte, parts ...[]byte) bool {
	if len(tag) != HMACSHA384Size {
		return false
	}
	expected := HMACSHA384(key, parts...)
	return hmac.Equal(expected[:], tag)
}
