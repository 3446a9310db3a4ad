package utils

import "strings"

// PhoneFromChatID extracts a canonical E.164-ish phone number from a gateway
// chat identifier such as "5519989349254@s.whatsapp.net". Everything after
// the domain separator is discarded, non-digits are stripped and the result
// is prefixed with "+". Returns "" when no digits remain.
func PhoneFromChatID(chatID string) string {
	local := chatID
	if at := strings.IndexByte(chatID, '@'); at >= 0 {
		local = chatID[:at]
	}
	return NormalizePhone(local)
}

// NormalizePhone strips every non-digit character and prefixes "+".
// Returns "" for input with no digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}
