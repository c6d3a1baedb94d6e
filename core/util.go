package core

import (
	"slices"
	"strings"
)

// CleanString trims s and lowers it when lower is true.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) == 0 || !lower[0] {
		return s
	}
	return strings.ToLower(s)
}

func Bool(b bool) *bool { return &b }

func StringInSlice(s string, list []string) bool { return slices.Contains(list, s) }
