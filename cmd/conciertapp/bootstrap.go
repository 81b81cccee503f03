package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"conciertapp/internal/app/concerts"
	"conciertapp/internal/models"
	"conciertapp/internal/store"
)

const demoVenue = "Movistar Arena"

// bootstrapDemoData seeds a venue, two artists and two draft concerts so
// the enrichment jobs have work in a fresh development database.
func bootstrapDemoData(ctx context.Context, dataStore *store.Store) error {
	if _, err := dataStore.FindVenueByName(ctx, demoVenue); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrVenueNotFound) {
		return fmt.Errorf("lookup demo venue: %w", err)
	}

	concertService := concerts.New(dataStore)

	capacity := 15000
	venue, err := dataStore.CreateVenue(ctx, &models.Venue{
		Name:     demoVenue,
		Address:  "Av. Beaucheff 1204",
		City:     "Santiago",
		Capacity: &capacity,
		Status:   models.StatusPublished,
	})
	if err != nil {
		return fmt.Errorf("bootstrap demo venue: %w", err)
	}

	var performers []models.Artist
	for _, name := range []string{"Los Bunkers", "Mon Laferte"} {
		artist, err := ensureArtist(ctx, dataStore, name)
		if err != nil {
			return err
		}
		performers = append(performers, *artist)
	}

	// Midnight UTC starts are what all-day imports look like.
	start := time.Now().UTC().AddDate(0, 2, 0).Truncate(24 * time.Hour)
	for i, artist := range performers {
		if _, err := concertService.Create(ctx, &models.Concert{
			Title:     artist.Name,
			StartDate: start.AddDate(0, 0, 7*i),
			Venue:     venue,
			Artists:   []models.Artist{artist},
		}); err != nil {
			return fmt.Errorf("bootstrap demo concert %q: %w", artist.Name, err)
		}
	}

	for _, name := range []string{"rock", "pop", "indie"} {
		if _, _, err := dataStore.FindOrCreateTag(ctx, name, "Género musical: "+name); err != nil {
			return fmt.Errorf("bootstrap demo tag %q: %w", name, err)
		}
	}

	log.Info().Str("venue", demoVenue).Int("concerts", len(performers)).Msg("demo data seeded")
	return nil
}

func ensureArtist(ctx context.Context, dataStore *store.Store, name string) (*models.Artist, error) {
	artist, err := dataStore.FindArtistByName(ctx, name)
	if err == nil {
		return artist, nil
	}
	if !errors.Is(err, store.ErrArtistNotFound) {
		return nil, fmt.Errorf("lookup demo artist %q: %w", name, err)
	}
	artist, err = dataStore.CreateArtist(ctx, &models.Artist{Name: name, Status: models.StatusPublished})
	if err != nil {
		return nil, fmt.Errorf("bootstrap demo artist %q: %w", name, err)
	}
	return artist, nil
}
