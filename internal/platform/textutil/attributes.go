// Package textutil provides small string helpers shared across transports.
package textutil

import "strings"

// NormalizeAttributes trims keys and values and drops entries whose key or
// value ends up empty. Message brokers reject attributes with blank keys, and
// empty values carry no routing information.
func NormalizeAttributes(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
