package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"conciertapp/internal/richtext"
)

// Concert publication states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Concert represents a scheduled show at a venue.
type Concert struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug,omitempty"`
	Status         string     `json:"status"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Venue          *Venue     `json:"venue,omitempty"`
	Artists        []Artist   `json:"artists"`
	Tags           []Tag      `json:"tags"`
	Poster         string     `json:"poster,omitempty"`
	TicketsLink    string     `json:"ticketsLink,omitempty"`
	SEO            SEO        `json:"seo"`
	AdditionalInfo *Section   `json:"additionalInfo,omitempty"`
	Schedule       *Section   `json:"schedule,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// VenueName returns the venue name or "" when the venue is unknown.
func (c Concert) VenueName() string {
	if c.Venue == nil {
		return ""
	}
	return strings.TrimSpace(c.Venue.Name)
}

// ArtistNames lists performer names in billing order.
func (c Concert) ArtistNames() []string {
	names := make([]string, 0, len(c.Artists))
	for _, a := range c.Artists {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// HasDescription reports whether additionalInfo carries text.
func (c Concert) HasDescription() bool {
	return c.AdditionalInfo != nil && !c.AdditionalInfo.Description.IsEmpty()
}

// SEO holds search-engine metadata for a concert page.
type SEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	OGImage         string   `json:"ogImage,omitempty"`
}

// Complete reports whether title, description and keywords are all present.
func (s SEO) Complete() bool {
	return strings.TrimSpace(s.MetaTitle) != "" &&
		strings.TrimSpace(s.MetaDescription) != "" &&
		len(s.Keywords) > 0
}

// Section is a descriptive block (additional info, schedule) stored as JSONB.
type Section struct {
	Description richtext.Document `json:"description"`
	Images      []string          `json:"images,omitempty"`
}

// Value implements driver.Valuer.
func (s Section) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal section: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (s *Section) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Section{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("section: cannot scan %T", src)
	}
}

// ConcertFilter narrows the public concert listing.
type ConcertFilter struct {
	Tags   []string
	Search string
	From   *time.Time
	To     *time.Time
	Status string
	Sort   string
	Page   int
	Limit  int
}

// ConcertPage is one page of a concert listing.
type ConcertPage struct {
	Docs       []Concert `json:"docs"`
	TotalDocs  int       `json:"totalDocs"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
}
