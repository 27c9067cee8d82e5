package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var codeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is identified by its ISO-style code; DisplayName is informational.
type Currency struct {
	Code        string
	DisplayName string
}

// NewCurrency normalizes code to upper case and rejects anything but three ASCII letters.
func NewCurrency(code, displayName string) (Currency, error) {
	c := NormalizeCode(code)
	if !codeRe.MatchString(c) {
		return Currency{}, fmt.Errorf("invalid currency code %q", code)
	}
	return Currency{Code: c, DisplayName: strings.TrimSpace(displayName)}, nil
}

// NormalizeCode trims and upper-cases a currency code without validating it.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c Currency) String() string { return c.Code }
