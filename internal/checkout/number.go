package checkout

import (
	"crypto/rand"
	"fmt"
)

// Unambiguous uppercase alphabet: no 0/O, 1/I/L so support staff can read
// order numbers back over the phone.
const numberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const numberLength = 8

// NewOrderNumber returns a fresh human-readable order number, "KM-" plus
// eight random characters. Collisions are left to the unique index; the
// keyspace is large enough that retrying is not worth the code.
func NewOrderNumber() (string, error) {
	buf := make([]byte, numberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "KM-" + string(buf), nil
}
