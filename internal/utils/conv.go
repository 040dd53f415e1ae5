package utils

import (
	"strconv"
)

// ParseID parses a positive numeric path id, returning 0 if it is not one.
func ParseID(s string) uint {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(i)
}
