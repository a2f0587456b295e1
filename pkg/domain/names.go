package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Display name limits. Lengths count Unicode code points.
const (
	MaxDisplayNameLength = 50
	// MaxUnbrokenRun is the longest run of non-space characters a name may contain.
	MaxUnbrokenRun = 24
)

// NameProblem returns a description of why name breaks the display name rule,
// or an empty string when it is acceptable. Only U+0020 breaks a run.
func NameProblem(name string) string {
	if strings.TrimSpace(name) == "" {
		return "must not be empty"
	}
	if n := utf8.RuneCountInString(name); n > MaxDisplayNameLength {
		return fmt.Sprintf("is %d characters long; the maximum is %d", n, MaxDisplayNameLength)
	}
	run, longest := 0, 0
	for _, r := range name {
		if r == ' ' {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	if longest > MaxUnbrokenRun {
		return fmt.Sprintf("has %d contiguous characters without a space; a space is required at least once per %d characters", longest, MaxUnbrokenRun+1)
	}
	return ""
}

// ValidName reports whether name satisfies the display name rule.
func ValidName(name string) bool {
	return NameProblem(name) == ""
}
