package nanoid

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize = 16

	number    = "0123456789"
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// PrimaryKey is the alphabet of alert identifiers
	PrimaryKey = number + lowercase + uppercase
	// PrimaryKeySize is the length of alert identifiers
	PrimaryKeySize = defaultSize
)

// getSize returns the provided size or the default size if not provided
func getSize(l ...int) int {
	if len(l) > 0 && l[0] > 0 {
		return l[0]
	}
	return defaultSize
}

// PrimaryKeyFunc returns a function that generates primary keys with specified length
func PrimaryKeyFunc(l ...int) func() string {
	size := getSize(l...)
	return func() string {
		return gonanoid.MustGenerate(PrimaryKey, size)
	}
}

// IsPrimaryKey verifies if a string is a valid primary key
func IsPrimaryKey(id string) bool {
	if len(id) != PrimaryKeySize {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune(PrimaryKey, c) {
			return false
		}
	}
	return true
}
