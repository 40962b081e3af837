package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinLabelLength = 3
	MaxLabelLength = 63
)

// Violation messages, reported in rule order.
const (
	MsgLength     = "length must be between 3 and 63 characters"
	MsgCharset    = "only lowercase letters a-z, digits 0-9 and hyphens are allowed"
	MsgDoubleDash = "must not contain consecutive hyphens"
	MsgBoundary   = "must start and end with a letter or digit"
	MsgReserved   = "is a reserved word"
	MsgNotAString = "not a string"
)

// DefaultReservedWords returns a fresh copy of the stock reserved-word list.
func DefaultReservedWords() []string {
	return []string{"eth", "xyz", "com", "org", "net", "io", "app"}
}

// Validator checks registration labels against syntax rules and a
// reserved-word policy. It is immutable once built.
type Validator struct {
	reserved map[string]struct{}
}

// NewValidator builds a Validator with the given reserved words. Words are
// matched case-insensitively.
func NewValidator(reserved []string) *Validator {
	v := &Validator{reserved: make(map[string]struct{}, len(reserved))}
	for _, w := range reserved {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			v.reserved[w] = struct{}{}
		}
	}
	return v
}

// NewDefaultValidator uses DefaultReservedWords.
func NewDefaultValidator() *Validator {
	return NewValidator(DefaultReservedWords())
}

// Validate evaluates every rule against label and returns all violations.
// Length is counted in bytes.
func (v *Validator) Validate(label string) ValidationResult {
	errs := make([]string, 0, 5)

	if n := len(label); n < MinLabelLength || n > MaxLabelLength {
		errs = append(errs, MsgLength)
	}

	for i := 0; i < len(label); i++ {
		if !isLabelByte(label[i]) {
			errs = append(errs, MsgCharset)
			break
		}
	}

	if strings.Contains(label, "--") {
		errs = append(errs, MsgDoubleDash)
	}

	if label != "" {
		first, _ := utf8.DecodeRuneInString(label)
		last, _ := utf8.DecodeLastRuneInString(label)
		if !isLetterOrDigit(first) || !isLetterOrDigit(last) {
			errs = append(errs, MsgBoundary)
		}
	}

	if _, ok := v.reserved[strings.ToLower(label)]; ok {
		errs = append(errs, MsgReserved)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateValue validates a label received as an untyped value, such as a
// decoded JSON field. Anything but a string is rejected without further checks.
func (v *Validator) ValidateValue(value any) ValidationResult {
	s, ok := value.(string)
	if !ok {
		return ValidationResult{Valid: false, Errors: []string{MsgNotAString}}
	}
	return v.Validate(s)
}

// Reserved reports whether word is in the reserved set.
func (v *Validator) Reserved(word string) bool {
	_, ok := v.reserved[strings.ToLower(word)]
	return ok
}

func isLabelByte(c byte) bool {
	return isAlnum(c) || c == '-'
}

// The boundary rule only looks at letter-or-digit; case is the charset rule's job.
func isLetterOrDigit(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
