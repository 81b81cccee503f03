package slug

import (
	"errors"
	"testing"
)

func TestConcert(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		venue   string
		want    string
		wantErr error
	}{
		{
			name:  "punctuation and apostrophe",
			title: "Primavera Sound!",
			venue: "Parque O'Higgins",
			want:  "primavera-sound-en-parque-ohiggins",
		},
		{
			name:  "diacritics",
			title: "Mon Laferte: Autopoiética",
			venue: "Estadio Ñuñoa",
			want:  "mon-laferte-autopoietica-en-estadio-nunoa",
		},
		{
			name:  "extra whitespace",
			title: "  Los   Bunkers ",
			venue: "Movistar  Arena",
			want:  "los-bunkers-en-movistar-arena",
		},
		{
			name:  "untitled keeps connector",
			title: " ?! ",
			venue: "Parque O'Higgins",
			want:  "en-parque-ohiggins",
		},
		{
			name:    "missing venue",
			title:   "Concierto",
			venue:   "   ",
			wantErr: ErrMissingVenue,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Concert(tc.title, tc.venue)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Concert() = %q, want %q", got, tc.want)
			}
			if !Valid(got) {
				t.Fatalf("slug %q contains invalid characters", got)
			}
		})
	}
}

func TestMakeIdempotent(t *testing.T) {
	for _, in := range []string{"Primavera Sound!", "AC/DC -- Power Up", "Año Nuevo 2026"} {
		once := Make(in)
		if twice := Make(once); twice != once {
			t.Fatalf("Make not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("a-en-b", 2); got != "a-en-b-2" {
		t.Fatalf("WithSuffix = %q", got)
	}
	if got := WithSuffix("a-en-b", 1); got != "a-en-b" {
		t.Fatalf("WithSuffix(1) = %q", got)
	}
}

func TestValid(t *testing.T) {
	for in, want := range map[string]bool{
		"los-bunkers-en-movistar-arena": true,
		"":                              false,
		"Los-Bunkers":                   false,
		"a_b":                           false,
	} {
		if got := Valid(in); got != want {
			t.Fatalf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}
