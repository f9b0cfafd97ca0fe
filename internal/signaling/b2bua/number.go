package b2bua

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NumberTransform rewrites a dialed number before a PSTN leg is created.
// A returned error aborts the forward.
type NumberTransform func(number string) (string, error)

// ErrEmptyNumber is returned by transforms handed an empty number.
var ErrEmptyNumber = errors.New("empty number")

// E164Transform normalizes numbers to E.164, reading national numbers in
// the given default region (ISO 3166 code such as "US" or "GB").
func E164Transform(region string) NumberTransform {
	region = strings.ToUpper(strings.TrimSpace(region))
	return func(number string) (string, error) {
		number = strings.TrimSpace(number)
		if number == "" {
			return "", ErrEmptyNumber
		}
		num, err := phonenumbers.Parse(number, region)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", number, err)
		}
		if !phonenumbers.IsPossibleNumber(num) {
			return "", fmt.Errorf("parse %q: not a possible number", number)
		}
		return phonenumbers.Format(num, phonenumbers.E164), nil
	}
}

// PrefixTransform replaces a leading prefix. Numbers without it pass
// through unchanged.
func PrefixTransform(from, to string) NumberTransform {
	return func(number string) (string, error) {
		if number == "" {
			return "", ErrEmptyNumber
		}
		if rest, ok := strings.CutPrefix(number, from); ok {
			return to + rest, nil
		}
		return number, nil
	}
}

// ChainTransforms applies transforms in order, stopping at the first error.
func ChainTransforms(transforms ...NumberTransform) NumberTransform {
	return func(number string) (string, error) {
		var err error
		for _, t := range transforms {
			if t == nil {
				continue
			}
			if number, err = t(number); err != nil {
				return "", err
			}
		}
		return number, nil
	}
}
