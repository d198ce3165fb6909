package diag

import (
	"regexp"
)

// Redactor handles sensitive data redaction from text
type Redactor struct {
	patterns []redactionPattern
}

type redactionPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor for Wi-Fi credentials and secrets
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactionPattern{
			// YAML keys: password, passphrase, psk, secret (password_secret names are kept)
			{
				regex:       regexp.MustCompile(`(?im)^(\s*)(password|passphrase|psk|secret|token)\s*:\s*(.+)$`),
				replacement: `$1$2: [REDACTED]`,
			},
			// wpa_supplicant style
			{
				regex:       regexp.MustCompile(`(?im)^(\s*)(psk|wep_key\d|password)\s*=\s*(.+)$`),
				replacement: `$1$2=[REDACTED]`,
			},
			// JSON log payloads
			{
				regex:       regexp.MustCompile(`(?i)"(password|passphrase|psk)"\s*:\s*"[^"]*"`),
				replacement: `"$1":"[REDACTED]"`,
			},
		},
	}
}

// Redact applies all redaction patterns to the input text
func (r *Redactor) Redact(input string) string {
	result := input
	for _, pattern := range r.patterns {
		result = pattern.regex.ReplaceAllString(result, pattern.replacement)
	}
	return result
}
