// Package sanitize applies content policy at the trust boundary.
//
// Content arriving from a sandboxed editor surface is still untrusted
// input: the sandbox isolates execution, not intent. Each editor
// profile names a policy; the bridge runs every inbound and outbound
// value through it so both sides always agree on what survives.
package sanitize

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
)

// Policy names accepted by New.
const (
	PolicyRich  = "rich"  // formatted text, lists, tables, links, images
	PolicyBasic = "basic" // inline formatting and lists only
	PolicyNone  = "none"  // passthrough, for trusted embedders
)

// ErrUnknownPolicy marks a policy name outside the known set.
var ErrUnknownPolicy = errors.New("sanitize: unknown policy")

// Sanitizer cleans content according to a named policy.
type Sanitizer struct {
	name   string
	policy *bluemonday.Policy

	// checkImages enables payload sniffing of data: image sources.
	checkImages bool
}

// New builds the sanitizer for a named policy.
func New(name string) (*Sanitizer, error) {
	switch name {
	case PolicyRich:
		policy := bluemonday.UGCPolicy()
		policy.AllowDataURIImages()
		return &Sanitizer{name: name, policy: policy, checkImages: true}, nil

	case PolicyBasic:
		policy := bluemonday.NewPolicy()
		policy.AllowElements(
			"p", "br", "strong", "em", "b", "i", "u", "s",
			"ul", "ol", "li", "blockquote",
			"h1", "h2", "h3", "h4",
		)
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowStandardURLs()
		policy.RequireNoFollowOnLinks(true)
		return &Sanitizer{name: name, policy: policy}, nil

	case PolicyNone, "":
		return &Sanitizer{name: PolicyNone}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Name returns the policy name.
func (s *Sanitizer) Name() string { return s.name }

// Sanitize cleans content under the configured policy. The result is
// deterministic: sanitizing already-sanitized content returns it
// unchanged, which the synchronization core relies on for its
// value-equality checks.
func (s *Sanitizer) Sanitize(content string) string {
	if s.policy == nil {
		return content
	}
	cleaned := s.policy.Sanitize(content)
	if s.checkImages {
		cleaned = dropUnverifiedImages(cleaned)
	}
	return cleaned
}

// dropUnverifiedImages removes img elements whose data: payload does
// not sniff as a real image. Declared mediatypes are not trusted; the
// decoded bytes decide.
func dropUnverifiedImages(content string) string {
	if !strings.Contains(content, "data:") {
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}

	removed := false
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || !strings.HasPrefix(src, "data:") {
			return
		}
		if !isImagePayload(src) {
			sel.Remove()
			removed = true
		}
	})
	if !removed {
		return content
	}

	inner, err := doc.Find("body").Html()
	if err != nil {
		return content
	}
	return inner
}

// isImagePayload decodes a data: URI and checks the detected type.
func isImagePayload(src string) bool {
	meta, data, found := strings.Cut(src, ",")
	if !found || !strings.Contains(meta, ";base64") {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mimetype.Detect(decoded).String(), "image/")
}
