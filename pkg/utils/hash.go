package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns a stable hex digest used for cache key derivation.
func HashString(input string) string {
	sum := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", sum)
}
