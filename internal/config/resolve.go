package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRatio parses a success_threshold-shaped string ("0.8" or "80%")
// into a 0..1 float.
func ParseRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty ratio")
	}
	if strings.HasSuffix(s, "%") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage %q: %w", s, err)
		}
		return n / 100, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ratio %q: %w", s, err)
	}
	return n, nil
}

// ParseBatchSize parses a batch_size-shaped string ("10" or "25%")
// into either an absolute count (isRatio=false) or a ratio
// (isRatio=true) suitable for target.WithBatchSize /
// target.WithBatchSizeRatio. An empty string yields (0, false, nil).
func ParseBatchSize(s string) (value float64, isRatio bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if strings.HasSuffix(s, "%") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid batch_size percentage %q: %w", s, err)
		}
		return n / 100, true, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid batch_size %q: %w", s, err)
	}
	return n, false, nil
}
