package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field locates one value inside a listing container.
type Field struct {
	// Selectors are tried in order; the first one producing a non-empty value wins.
	// An empty selector addresses the container itself.
	Selectors []string
	// Attr names the attribute to read. Empty reads the element text.
	Attr string
	// Pattern optionally narrows the value to its first match, or to the first
	// capture group when the pattern has one.
	Pattern *regexp.Regexp

	next *Field
}

// Text builds a Field reading element text.
func Text(selectors ...string) Field {
	return Field{Selectors: selectors}
}

// Attr builds a Field reading attr.
func Attr(attr string, selectors ...string) Field {
	return Field{Selectors: selectors, Attr: attr}
}

// Match returns a copy of f narrowed by pattern.
func (f Field) Match(pattern string) Field {
	f.Pattern = regexp.MustCompile(pattern)
	return f
}

// Or returns a copy of f that falls back to alt when f yields nothing.
func (f Field) Or(alt Field) Field {
	f.next = &alt
	return f
}

// Empty reports whether the field has no selectors.
func (f Field) Empty() bool {
	return len(f.Selectors) == 0
}

// Value extracts the field from a container.
func (f Field) Value(s *goquery.Selection) string {
	for _, sel := range f.Selectors {
		target := s
		if sel != "" {
			target = s.Find(sel)
		}
		if target.Length() == 0 {
			continue
		}
		target = target.First()

		var v string
		if f.Attr == "" {
			v = CleanText(target.Text())
		} else {
			attr, _ := target.Attr(f.Attr)
			v = strings.TrimSpace(attr)
		}
		if f.Pattern != nil && v != "" {
			v = f.narrow(v)
		}
		if v != "" {
			return v
		}
	}
	if f.next != nil {
		return f.next.Value(s)
	}
	return ""
}

func (f Field) narrow(v string) string {
	m := f.Pattern.FindStringSubmatch(v)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return strings.TrimSpace(m[1])
	default:
		return strings.TrimSpace(m[0])
	}
}

// Rules describe how listings are laid out on one platform's search page.
type Rules struct {
	// Containers is a fallback chain of listing container selectors. The first
	// selector matching at least one element is used.
	Containers []string

	Name          Field
	Price         Field
	PriceFraction Field
	Link          Field
	Image         Field
	Rating        Field
	ReviewCount   Field
	Seller        Field
	Shipping      Field
	Availability  Field

	// RatingScale converts platform ratings to a 0-5 scale (e.g. 0.05 for
	// percentages). Zero means the rating is already on a 0-5 scale.
	RatingScale float64
}

// ContainerQuery joins the container chain into a single CSS selector list,
// suitable for waiting on any of them to appear.
func (r Rules) ContainerQuery() string {
	return strings.Join(r.Containers, ", ")
}

// Source carries the platform facts extraction needs.
type Source struct {
	Platform string
	Origin   string
	Currency string
	Seller   string
	Rules    Rules
}
