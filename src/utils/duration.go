package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationTokenRe = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParseDurationToken converts a compact duration token ("30s", "5m", "1h",
// "1d") into a time.Duration. Anything outside that shape is rejected.
func ParseDurationToken(token string) (time.Duration, error) {
	match := durationTokenRe.FindStringSubmatch(token)
	if match == nil {
		return 0, fmt.Errorf("invalid duration token %q", token)
	}

	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration token %q: %w", token, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid duration token %q", token)
	}

	switch match[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return 0, fmt.Errorf("invalid duration token %q", token)
}
