package util

import (
	"regexp"
	"strings"
)

var phoneJunk = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize user input into E.164-like format.
// countryCode (digits only, e.g. "98") is used to expand local numbers
// that start with a single "0"; empty leaves them untouched.
func NormalizePhone(raw, countryCode string) string {
	s := phoneJunk.ReplaceAllString(strings.TrimSpace(raw), "")
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")

	switch {
	case s == "" || s == "+":
		return ""
	case strings.HasPrefix(s, "+"):
		// already international
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case countryCode != "" && strings.HasPrefix(s, "0"):
		s = "+" + countryCode + s[1:]
	case countryCode != "" && strings.HasPrefix(s, countryCode):
		s = "+" + s
	}

	return s
}
