// Package config provides campaign document decoding, validation and run settings for viking.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// majorMinor reduces a semantic version such as "0.1.4" or "v0.1.4" to "0.1".
func majorMinor(version string) (string, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid CLI version %q", version)
	}
	for _, p := range parts[:2] {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("invalid CLI version %q", version)
		}
	}
	return parts[0] + "." + parts[1], nil
}
