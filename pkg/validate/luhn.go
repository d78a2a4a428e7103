package validate

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/ShiraazMoollatjie/goluhn"
)

func IsLuhn(s string) bool {
	err := goluhn.Validate(s)
	return err == nil
}

func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GenerateLuhn returns a random numeric code of the given length whose last
// digit is a valid Luhn check digit.
func GenerateLuhn(length int) string {
	if length < 2 {
		length = 2
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(rand.IntN(9) + 1))
	for i := 1; i < length-1; i++ {
		b.WriteString(strconv.Itoa(rand.IntN(10)))
	}
	body := b.String()
	for d := 0; d < 10; d++ {
		candidate := body + strconv.Itoa(d)
		if IsLuhn(candidate) {
			return candidate
		}
	}
	return body + "0"
}
