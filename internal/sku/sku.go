// Package sku builds collision-free commerce SKUs from storefront product names.
package sku

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxLength is the longest SKU the commerce platform accepts.
const MaxLength = 130

// Normalize lower-cases label, turns spaces into underscores and keeps only [a-z_].
func Normalize(label string) string {
	label = strings.ToLower(strings.ReplaceAll(label, " ", "_"))

	var b strings.Builder
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Generate returns "<productID>_<normalized label>", suffixed with _v2, _v3, ...
// until it is absent from existing. The result never exceeds MaxLength.
//
// existing must be the project's current SKU list; nothing is remembered
// between calls.
func Generate(label string, productID int, existing []string) string {
	base := truncate(strconv.Itoa(productID)+"_"+Normalize(label), MaxLength)

	used := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		used[s] = struct{}{}
	}

	candidate := base
	for attempt := 2; ; attempt++ {
		if _, taken := used[candidate]; !taken {
			return candidate
		}
		suffix := fmt.Sprintf("_v%d", attempt)
		candidate = truncate(base, MaxLength-len(suffix)) + suffix
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
