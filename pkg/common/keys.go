package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Key format constants for serialization
const (
	ProductKeyPrefix = "p:" // Prefix for product keys
	productKeyDigits = 20   // Width of a zero padded uint64
)

// FormatUint64 formats a uint64 as a string
func FormatUint64(value uint64) string {
	return strconv.FormatUint(value, 10)
}

// FormatInt formats an int as a string
func FormatInt(value int) string {
	return strconv.Itoa(value)
}

// ParseUint64 parses a string as a uint64
func ParseUint64(value string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(value), 10, 64)
}

// ParseInt parses a string as an int
func ParseInt(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}

// FormatProductKey formats a product key for storage.
// Ids are zero padded so that byte order equals numeric order.
func FormatProductKey(productID uint64) string {
	return fmt.Sprintf("%s%0*d", ProductKeyPrefix, productKeyDigits, productID)
}

// ParseProductKey extracts the product id from a key made by FormatProductKey
func ParseProductKey(key string) (uint64, error) {
	if !strings.HasPrefix(key, ProductKeyPrefix) {
		return 0, fmt.Errorf("not a product key: %q", key)
	}
	return strconv.ParseUint(key[len(ProductKeyPrefix):], 10, 64)
}
