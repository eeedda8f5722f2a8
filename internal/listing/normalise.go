package listing

import (
	"strconv"
	"strings"
	"unicode"
)

// FirstInt extracts the first run of ASCII digits in s.
// "3 (shared)" gives 3, text without digits gives an unknown Count.
func FirstInt(s string) Count {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return atoiCount(s[start:i])
		}
	}
	if start >= 0 {
		return atoiCount(s[start:])
	}
	return Count{}
}

func atoiCount(digits string) Count {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Count{}
	}
	return CountOf(n)
}

// HasDigit reports whether s contains an ASCII digit
func HasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

// HasCurrencySymbol reports whether s contains a currency symbol (₦, $, £, ...)
func HasCurrencySymbol(s string) bool {
	return strings.IndexFunc(s, isCurrency) >= 0
}

func isCurrency(r rune) bool {
	return unicode.Is(unicode.Sc, r)
}

// NormalisePrice strips currency symbols and thousands separators.
// "₦ 150,000,000" becomes "150000000".
func NormalisePrice(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isCurrency(r) || r == ',' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// StripBoilerplate removes each phrase from s and trims the result
func StripBoilerplate(s string, phrases []string) string {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		s = strings.ReplaceAll(s, p, "")
	}
	return strings.TrimSpace(s)
}

// AfterLastOf returns the text after the last "of" in s, trimmed.
// "1 of 12" gives "12". ok is false when s has no "of".
func AfterLastOf(s string) (string, bool) {
	i := strings.LastIndex(s, "of")
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(s[i+len("of"):]), true
}
