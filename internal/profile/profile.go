package profile

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/venuely/editor-bridge/internal/sanitize"
)

// DefaultMaxContentBytes bounds document size when a profile does not
// set its own limit.
const DefaultMaxContentBytes = 256 * 1024

var (
	// ErrInvalid marks a profile that failed validation.
	ErrInvalid = errors.New("profile: invalid")

	// ErrNotFound marks a lookup for an unregistered profile ID.
	ErrNotFound = errors.New("profile: not found")
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Profile is a named editor preset. Zero timing fields mean "use the
// service defaults"; they are resolved when a session is created.
type Profile struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Placeholder     string   `json:"placeholder,omitempty"`
	Toolbar         []string `json:"toolbar,omitempty"`
	SanitizePolicy  string   `json:"sanitize_policy"`
	MaxContentBytes int      `json:"max_content_bytes"`

	DebounceInterval time.Duration `json:"debounce_interval"`
	SuppressionTTL   time.Duration `json:"suppression_ttl"`
}

// Validate checks identifiers, policy names, and bounds.
func (p *Profile) Validate() error {
	if !idPattern.MatchString(p.ID) {
		return fmt.Errorf("%w: id %q must be a lowercase slug", ErrInvalid, p.ID)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: %s: name required", ErrInvalid, p.ID)
	}
	if _, err := sanitize.New(p.SanitizePolicy); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, p.ID, err)
	}
	if p.MaxContentBytes < 0 {
		return fmt.Errorf("%w: %s: max_content_bytes must not be negative", ErrInvalid, p.ID)
	}
	if p.DebounceInterval < 0 || p.SuppressionTTL < 0 {
		return fmt.Errorf("%w: %s: timing overrides must not be negative", ErrInvalid, p.ID)
	}
	return nil
}

// Sanitizer builds the sanitizer for this profile's policy. Call only
// on validated profiles.
func (p *Profile) Sanitizer() *sanitize.Sanitizer {
	s, err := sanitize.New(p.SanitizePolicy)
	if err != nil {
		s, _ = sanitize.New(sanitize.PolicyBasic)
	}
	return s
}

// MaxBytes returns the effective content size limit.
func (p *Profile) MaxBytes() int {
	if p.MaxContentBytes > 0 {
		return p.MaxContentBytes
	}
	return DefaultMaxContentBytes
}

func (p *Profile) clone() *Profile {
	c := *p
	c.Toolbar = append([]string(nil), p.Toolbar...)
	return &c
}

// Builtins returns the profiles shipped with the service, one per
// document kind the booking product edits.
func Builtins() []*Profile {
	return []*Profile{
		{
			ID:              "venue",
			Name:            "Venue description",
			Placeholder:     "Describe the venue space, capacity, and amenities.",
			Toolbar:         []string{"bold", "italic", "underline", "heading", "list", "link", "image"},
			SanitizePolicy:  sanitize.PolicyRich,
			MaxContentBytes: 512 * 1024,
		},
		{
			ID:             "event",
			Name:           "Event program",
			Placeholder:    "Outline the schedule, speakers, and sessions.",
			Toolbar:        []string{"bold", "italic", "heading", "list", "link"},
			SanitizePolicy: sanitize.PolicyBasic,
		},
		{
			ID:              "vendor",
			Name:            "Vendor notes",
			Placeholder:     "Keep notes on pricing, availability, and terms.",
			Toolbar:         []string{"bold", "italic", "list"},
			SanitizePolicy:  sanitize.PolicyBasic,
			MaxContentBytes: 128 * 1024,
			// Vendor notes are short; flush faster than prose kinds.
			DebounceInterval: 200 * time.Millisecond,
		},
	}
}
