// Package id parses and formats the surrogate IDs of accounts and transactions.
package id

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a positive decimal ID such as "42".
func Parse(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be positive", s)
	}
	return n, nil
}

// ParseOptional parses s like Parse but returns 0 for an empty string.
func ParseOptional(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return Parse(s)
}

// Format returns the decimal form of an ID.
func Format(n int64) string {
	return strconv.FormatInt(n, 10)
}
