package textgen

import (
	"fmt"
	"strings"
	"time"
)

// LengthGuidance picks the requested text length from how soon the event is.
func LengthGuidance(start, now time.Time) string {
	days := start.Sub(now).Hours() / 24
	switch {
	case days <= 7:
		return "El evento es en los próximos días: escribe un texto breve, entre 2 y 4 párrafos."
	case days <= 42:
		return "El evento es en las próximas semanas: escribe un texto extenso, de unos 6 párrafos."
	default:
		return "Escribe un texto de entre 3 y 5 párrafos."
	}
}

// InfoPrompt builds the user prompt for descriptive copy.
func InfoPrompt(brief ConcertBrief, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Vas a investigar acerca del evento %s de la fecha %s en %s, en Chile, ",
		brief.Title, formatDate(brief.Date), venueOrUnknown(brief.Venue))
	fmt.Fprintf(&sb, "y vas a escribir una reseña con datos del evento e información valiosa de los artistas: %s. ",
		artistList(brief.Artists))
	sb.WriteString(LengthGuidance(brief.Date, now))
	sb.WriteString(" Separa los párrafos con una línea en blanco. No agregues título, comienza directamente con el texto.")
	return sb.String()
}

// SEOPrompt builds the user prompt for SEO metadata.
func SEOPrompt(brief ConcertBrief) string {
	var sb strings.Builder
	sb.WriteString("Escribe las metaetiquetas para la página de un concierto o evento musical. ")
	fmt.Fprintf(&sb, "Artistas: %s. Fecha: %s. Lugar: %s. ",
		artistList(brief.Artists), formatDate(brief.Date), venueOrUnknown(brief.Venue))
	fmt.Fprintf(&sb, "Genera keywords acentuando el nombre del evento %q en el lugar %q y %q con su fecha, ",
		brief.Title, venueOrUnknown(brief.Venue), brief.Title)
	sb.WriteString("y también keywords para hacer crecer la webapp, destacando que reúne toda la información de los eventos, incluido el probable setlist de cada artista.")
	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "fecha por confirmar"
	}
	return t.UTC().Format("02-01-2006")
}

func venueOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "un recinto por confirmar"
	}
	return v
}

func artistList(artists []string) string {
	if len(artists) == 0 {
		return "por confirmar"
	}
	return strings.Join(artists, ", ")
}
