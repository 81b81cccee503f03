package models

import (
	"time"

	"conciertapp/internal/richtext"
)

// Artist is a performer. Name is the exact-match key used by imports.
type Artist struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Bio                *richtext.Document `json:"bio,omitempty"`
	ExternalProfileURL string             `json:"externalProfileURL,omitempty"`
	Status             string             `json:"status,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Tag is a genre label attached to concerts.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Featured    bool   `json:"featured"`
	Order       int    `json:"order"`
}

// Setlist is an ordered list of songs an artist performed.
type Setlist struct {
	ID            string    `json:"id"`
	ArtistID      string    `json:"artistId"`
	ArtistName    string    `json:"artistName,omitempty"`
	Name          string    `json:"name"`
	Songs         []string  `json:"songs"`
	SetlistFmID   string    `json:"setlistFmId,omitempty"`
	SetlistFmName string    `json:"setlistFmName,omitempty"`
	PlaylistID    string    `json:"playlistId,omitempty"`
	PlaylistURL   string    `json:"playlistLinkToShare,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
