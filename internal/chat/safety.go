package chat

import "regexp"

// unsafePatterns flag answers that leak or solicit contact details, payment
// data or credentials. This is a keyword heuristic, not a guarantee.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)e-?mail`),
	regexp.MustCompile(`(?i)phone|mobile number|cell number`),
	regexp.MustCompile(`(?i)whats\s?app|telegram|signal app|skype|wechat`),
	regexp.MustCompile(`(?i)credit card|debit card|bank account|iban|paypal|venmo`),
	regexp.MustCompile(`(?i)password|passcode|\bssn\b|social security`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
}

// IsSafe reports whether answer matches none of the disallowed patterns.
func IsSafe(answer string) bool {
	for _, p := range unsafePatterns {
		if p.MatchString(answer) {
			return false
		}
	}
	return true
}
