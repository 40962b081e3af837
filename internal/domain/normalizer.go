package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

var ErrEmptyLabel = errors.New("name contains an empty label")

// lookupProfile applies UTS-46 mapping (case folding, NFC), the STD3 ASCII
// rules and the hyphen checks. ENS hashes the Unicode form, so names are
// decoded back with ToUnicode.
var lookupProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
)

// NormalizeName converts a name as a user would type it into the canonical
// form that is hashed. The empty name stays empty (root). ASCII and
// Unicode input go through the same profile.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", nil
	}

	// Drop trailing dot: "foo.eth." → "foo.eth".
	name = strings.TrimSuffix(name, Separator)
	if err := checkLabels(name, raw); err != nil {
		return "", err
	}

	u, err := lookupProfile.ToUnicode(name)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}

	// Mapping may delete characters, e.g. a soft hyphen.
	if err := checkLabels(u, raw); err != nil {
		return "", err
	}
	return u, nil
}

func checkLabels(name, raw string) error {
	for _, l := range strings.Split(name, Separator) {
		if l == "" {
			return fmt.Errorf("%w: %q", ErrEmptyLabel, raw)
		}
	}
	return nil
}

// Labels splits a name into its labels, most specific first.
// The root name has no labels.
func Labels(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Separator)
}

// Join builds "label.parent"; an empty parent yields the label alone.
func Join(label, parent string) string {
	if parent == "" {
		return label
	}
	return label + Separator + parent
}
