// Package normalize contains the pure per-field cleanup applied to raw
// applicant records before validation. Nothing here decides validity; a
// value that cannot be canonicalized passes through for the classifier to
// reject.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/admitguard/admitguard/internal/model"
)

var titler = cases.Title(language.English)

// Name trims and title-cases a person or place name.
func Name(s string) string {
	return titler.String(strings.TrimSpace(s))
}

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Digits strips every non-digit character.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// Phone canonicalizes a phone number to a 10-digit local number. After
// stripping non-digits, a recognized international or trunk prefix is
// removed, longest match first:
//
//	13 digits starting "091" -> drop 3
//	12 digits starting "91"  -> drop 2
//	11 digits starting "0"   -> drop 1
//
// Anything else is returned unchanged; wrong-length results are caught by
// the classifier's phone rule, not fixed here.
func Phone(s string) string {
	p := Digits(strings.TrimSpace(s))
	switch {
	case len(p) == 13 && strings.HasPrefix(p, "091"):
		return p[3:]
	case len(p) == 12 && strings.HasPrefix(p, "91"):
		return p[2:]
	case len(p) == 11 && strings.HasPrefix(p, "0"):
		return p[1:]
	}
	return p
}

// Record applies the standard cleanup to a raw record in place: names,
// city and state title-cased, email lowered, phone and Aadhaar reduced to
// digits.
func Record(r *model.RawRecord) {
	r.FirstName = Name(r.FirstName)
	r.LastName = Name(r.LastName)
	r.Email = Email(r.Email)
	r.Phone = Phone(r.Phone)
	r.Aadhaar = Digits(strings.TrimSpace(r.Aadhaar))
	r.State = Name(r.State)
	r.City = Name(r.City)
}
