// Package fixture builds randomized request payloads for the clinic
// registration API. Builders are pure data construction: no network calls,
// no shared state. Every payload gets fresh random suffixes on unique
// fields (names, email, health card) so repeated or concurrent runs never
// collide on backend uniqueness constraints.
package fixture

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Errors returned by the fixture package.
var (
	// ErrUnknownTestKind is returned for an unrecognized test record kind.
	ErrUnknownTestKind = errors.New("fixture: unknown test kind")
)

// Overrides pins specific payload fields after randomization. A nil value
// removes the field entirely, which validation scenarios use to exercise
// required-field checks.
type Overrides map[string]any

// Factory produces randomized-but-valid payloads for each entity kind the
// backend exposes.
type Factory struct {
	fk *gofakeit.Faker

	// nowFunc is replaceable for tests.
	nowFunc func() time.Time
}

// New creates a factory with a random seed.
func New() *Factory {
	return &Factory{
		fk:      gofakeit.New(0),
		nowFunc: time.Now,
	}
}

// NewSeeded creates a factory with a fixed seed. Suffixes remain random:
// the seed only pins the faker-generated values.
func NewSeeded(seed uint64) *Factory {
	return &Factory{
		fk:      gofakeit.New(seed),
		nowFunc: time.Now,
	}
}

// WithNowFunc sets a custom time source for tests.
func (f *Factory) WithNowFunc(fn func() time.Time) *Factory {
	f.nowFunc = fn
	return f
}

const suffixCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// suffixLength gives roughly 41 bits of entropy, enough to make collisions
// across runs negligible.
const suffixLength = 8

// Suffix returns a fresh random alphanumeric suffix.
func Suffix() string {
	return randomString(suffixLength, suffixCharset)
}

// Digits returns a random numeric string of length n (phone numbers,
// health card numbers).
func Digits(n int) string {
	return randomString(n, "0123456789")
}

func randomString(n int, charset string) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		idx, err := crand.Int(crand.Reader, max)
		if err != nil {
			// crypto/rand.Reader failing is unrecoverable for a test tool.
			panic(fmt.Sprintf("fixture: random source failed: %v", err))
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}

// today returns the current date in ISO-8601.
func (f *Factory) today() string {
	return f.nowFunc().Format("2006-01-02")
}

// apply merges overrides into the base payload, overrides last. A nil
// override value deletes the field.
func apply(base map[string]any, ov Overrides) map[string]any {
	for k, v := range ov {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return base
}

// Registration builds an admin-registration payload covering every field the
// endpoint accepts: identity, demographics, address, contact and clinical
// blocks plus consent.
func (f *Factory) Registration(ov Overrides) map[string]any {
	sfx := Suffix()
	first := f.fk.FirstName()
	last := f.fk.LastName()

	base := map[string]any{
		// Identity
		"firstName": first + "_" + sfx,
		"lastName":  last + "_" + sfx,
		"dob":       f.fk.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
		"gender":    f.fk.RandomString([]string{"male", "female", "non-binary", "prefer_not_to_say"}),
		"language":  f.fk.RandomString([]string{"en", "fr"}),

		// Contact
		"email": strings.ToLower(fmt.Sprintf("%s.%s.%s@example.com", first, last, sfx)),
		"phone": Digits(10),

		// Health card
		"healthCardNumber":  Digits(10),
		"healthCardVersion": strings.ToUpper(randomString(2, "abcdefghijklmnopqrstuvwxyz")),

		// Address
		"address":    f.fk.Street(),
		"city":       f.fk.City(),
		"province":   f.fk.StateAbr(),
		"postalCode": f.fk.Zip(),

		// Emergency contact
		"emergencyContactName":  f.fk.Name(),
		"emergencyContactPhone": Digits(10),

		// Clinical
		"physician":      "Dr. " + f.fk.LastName(),
		"referralSource": f.fk.RandomString([]string{"self", "physician", "community", "outreach"}),
		"specialNotes":   f.fk.Sentence(6),

		// Consent
		"consentGiven": true,
		"consentDate":  f.today(),

		// Registration metadata
		"regDate": f.today(),
		"regTime": f.nowFunc().Format("15:04"),
	}

	return apply(base, ov)
}

// Activity builds an activity payload for an existing registration.
func (f *Factory) Activity(ov Overrides) map[string]any {
	base := map[string]any{
		"activityType": f.fk.RandomString([]string{"visit", "phone_call", "outreach", "followup"}),
		"description":  f.fk.Sentence(8),
		"activityDate": f.today(),
		"activityTime": f.nowFunc().Format("15:04"),
		"performedBy":  f.fk.Name(),
	}
	return apply(base, ov)
}

// Note builds a clinical note payload.
func (f *Factory) Note(ov Overrides) map[string]any {
	base := map[string]any{
		"noteTitle":  "Note " + Suffix(),
		"noteText":   f.fk.Paragraph(1, 3, 10, " "),
		"noteType":   f.fk.RandomString([]string{"general", "clinical", "admin"}),
		"authorName": f.fk.Name(),
		"noteDate":   f.today(),
	}
	return apply(base, ov)
}

// Template builds a notes-template payload. An empty name gets a unique
// generated one.
func (f *Factory) Template(name, content string, ov Overrides) map[string]any {
	if name == "" {
		name = "Template " + Suffix()
	}
	if content == "" {
		content = f.fk.Paragraph(1, 2, 12, " ")
	}
	base := map[string]any{
		"name":     name,
		"content":  content,
		"isActive": true,
	}
	return apply(base, ov)
}

// Disposition builds a disposition payload for a registration.
func (f *Factory) Disposition(ov Overrides) map[string]any {
	base := map[string]any{
		"disposition":     f.fk.RandomString([]string{"referred", "treated", "declined", "follow_up_required"}),
		"reason":          f.fk.Sentence(5),
		"dispositionDate": f.today(),
		"recordedBy":      f.fk.Name(),
	}
	return apply(base, ov)
}
