package config

import (
	"fmt"
	"strconv"
	"strings"
)

const maxByteSize = 128 * 1024 * 1024 * 1024 // 128 GiB

var byteSizeUnits = []struct {
	suffix string
	factor int64
}{
	// Longest suffixes first so "gib" isn't matched as "gi"-then-stray-"b".
	{"gib", 1024 * 1024 * 1024},
	{"mib", 1024 * 1024},
	{"kib", 1024},
	{"gb", 1000 * 1000 * 1000},
	{"mb", 1000 * 1000},
	{"kb", 1000},
	{"b", 1},
}

// ParseByteSize parses a human byte-size string such as "10mb", "1.5gb" or
// "2048" (bytes, no suffix). Binary suffixes (kib/mib/gib) and decimal
// suffixes (kb/mb/gb) are both accepted. Sizes above 128 GiB are rejected.
func ParseByteSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	numPart := trimmed
	factor := int64(1)
	for _, u := range byteSizeUnits {
		if strings.HasSuffix(trimmed, u.suffix) {
			numPart = strings.TrimSpace(strings.TrimSuffix(trimmed, u.suffix))
			factor = u.factor
			break
		}
	}

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid byte size %q: negative", s)
	}

	bytes := value * float64(factor)
	if bytes > float64(maxByteSize) {
		return 0, fmt.Errorf("byte size %q exceeds maximum of 128 GiB", s)
	}

	return int64(bytes), nil
}
