// Package records defines the payloads exchanged with the comics API and the
// sparse detail record collected by a harvest run.
package records

import (
	"fmt"
	"strings"
)

// DetailRecord describes one comic issue. Every field is optional: a nil
// pointer or nil slice means the upstream omitted it, and it is left out of
// the JSON encoding.
type DetailRecord struct {
	ID                *string  `json:"id,omitempty"`
	Name              *string  `json:"name,omitempty"`
	Writers           []string `json:"writers,omitempty"`
	Artists           []string `json:"artists,omitempty"`
	Publisher         *string  `json:"publisher,omitempty"`
	ReleaseDate       *string  `json:"release_date,omitempty"`
	CoverPrice        *string  `json:"cover_price,omitempty"`
	CriticReviewCount *string  `json:"critic_review_count,omitempty"`
	UserReviewCount   *string  `json:"user_review_count,omitempty"`
	CriticReviewScore *string  `json:"critic_review_score,omitempty"`
	UserReviewScore   *string  `json:"user_review_score,omitempty"`
}

// Text returns a pointer to s for populating optional fields.
func Text(s string) *string {
	return &s
}

type field struct {
	name string
	text *string
	list []string
}

func (r DetailRecord) fields() []field {
	return []field{
		{name: "id", text: r.ID},
		{name: "name", text: r.Name},
		{name: "writers", list: r.Writers},
		{name: "artists", list: r.Artists},
		{name: "publisher", text: r.Publisher},
		{name: "release_date", text: r.ReleaseDate},
		{name: "cover_price", text: r.CoverPrice},
		{name: "critic_review_count", text: r.CriticReviewCount},
		{name: "user_review_count", text: r.UserReviewCount},
		{name: "critic_review_score", text: r.CriticReviewScore},
		{name: "user_review_score", text: r.UserReviewScore},
	}
}

func (f field) present() bool {
	return f.text != nil || len(f.list) > 0
}

// Fields returns the JSON names of the present fields in declaration order.
func (r DetailRecord) Fields() []string {
	var names []string
	for _, f := range r.fields() {
		if f.present() {
			names = append(names, f.name)
		}
	}
	return names
}

// IsEmpty reports whether no field is present.
func (r DetailRecord) IsEmpty() bool {
	return len(r.Fields()) == 0
}

// String renders the debug representation used by the text report, listing
// present fields only:
//
//	DetailRecord{name: "Rec1", writers: ["A", "B"]}
func (r DetailRecord) String() string {
	var b strings.Builder
	b.WriteString("DetailRecord{")
	first := true
	for _, f := range r.fields() {
		if !f.present() {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(f.name)
		b.WriteString(": ")
		if f.text != nil {
			fmt.Fprintf(&b, "%q", *f.text)
			continue
		}
		b.WriteByte('[')
		for i, v := range f.list {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%q", v)
		}
		b.WriteByte(']')
	}
	b.WriteByte('}')
	return b.String()
}

// CollectionEntry is one comic series returned by list-collections.
type CollectionEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CollectionList is the list-collections response body.
type CollectionList struct {
	Comics []CollectionEntry `json:"comics"`
}

// ItemList is the list-items response body.
type ItemList struct {
	URLs []string `json:"urls"`
}

// CollectionsRequest is the list-collections request body.
type CollectionsRequest struct {
	Name string `json:"name"`
}

// LocatorRequest is the request body of list-items and get-detail.
type LocatorRequest struct {
	URL string `json:"url"`
}
