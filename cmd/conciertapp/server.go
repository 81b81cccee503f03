package main

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"conciertapp/internal/app/artists"
	"conciertapp/internal/app/concerts"
	"conciertapp/internal/app/dates"
	"conciertapp/internal/app/playlists"
	"conciertapp/internal/app/seo"
	"conciertapp/internal/app/setlists"
	"conciertapp/internal/app/slugs"
	"conciertapp/internal/app/tags"
	"conciertapp/internal/cache"
	"conciertapp/internal/config"
	"conciertapp/internal/httpapi"
	"conciertapp/internal/musicapi"
	"conciertapp/internal/search"
	"conciertapp/internal/setlistfm"
	"conciertapp/internal/store"
	"conciertapp/internal/textgen"
)

// providers holds the external clients. A nil field means the credentials
// are missing and the jobs depending on it fail with a configuration error.
type providers struct {
	catalog   musicapi.MusicAPIClient
	playlists playlists.Catalog
	archive   setlists.Archive
	generator seo.Generator
}

func newProviders(cfg config.ProvidersConfig) providers {
	var p providers

	var spotify *musicapi.SpotifyClient
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		spotify = musicapi.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret,
			musicapi.WithRefreshToken(cfg.SpotifyRefreshToken))
		p.playlists = spotify
		log.Info().Msg("Spotify client initialized")
	} else {
		log.Warn().Msg("Spotify credentials not provided, playlist generation disabled")
	}

	catalog, err := musicapi.NewCatalog(musicapi.Config{
		Provider:             musicapi.MusicProvider(cfg.Catalog),
		SpotifyClientID:      cfg.SpotifyClientID,
		SpotifyClientSecret:  cfg.SpotifyClientSecret,
		SpotifyRefreshToken:  cfg.SpotifyRefreshToken,
		AppleMusicKeyID:      cfg.AppleMusicKeyID,
		AppleMusicTeamID:     cfg.AppleMusicTeamID,
		AppleMusicPrivateKey: cfg.AppleMusicPrivateKey,
		AppleMusicStorefront: cfg.AppleMusicStorefront,
	}, spotify)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Catalog).Msg("catalog disabled, tag and image jobs will fail")
	} else {
		p.catalog = catalog
	}

	if cfg.SetlistFMAPIKey != "" {
		p.archive = setlistfm.New(cfg.SetlistFMAPIKey)
	} else {
		log.Warn().Msg("SETLIST_FM_API_KEY not provided, setlist jobs disabled")
	}

	if cfg.OpenAIAPIKey != "" {
		p.generator = textgen.New(textgen.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	} else {
		log.Warn().Msg("OPENAI_API_KEY not provided, seo and info jobs disabled")
	}

	return p
}

func newHTTPHandler(cfg *config.Config, db *sql.DB, dataStore *store.Store) (http.Handler, func(), error) {
	p := newProviders(cfg.Providers)
	n := cfg.Jobs.Concurrency

	responses, err := cache.New(cache.Config{MaxBytes: cfg.Cache.MaxBytes, TTL: cfg.Cache.TTL})
	if err != nil {
		return nil, nil, fmt.Errorf("response cache: %w", err)
	}

	srv := httpapi.New(httpapi.Services{
		Tags:      tags.New(dataStore, p.catalog, n),
		Artists:   artists.New(dataStore, p.catalog, n),
		Setlists:  setlists.New(dataStore, p.archive, n),
		Playlists: playlists.New(dataStore, p.playlists, cfg.Providers.SpotifyUserID),
		SEO:       seo.New(dataStore, p.generator, n),
		Slugs:     slugs.New(dataStore, n),
		Dates:     dates.New(dataStore, n),
		Concerts:  concerts.New(dataStore),
		Search:    search.NewHandler(search.NewPGStore(db)),
	}, responses, httpapi.Options{
		APIKey:         cfg.Security.APIKey,
		APIKeyHash:     cfg.Security.APIKeyHash,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return srv.Routes(), responses.Close, nil
}
