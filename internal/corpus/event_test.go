package corpus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocument_FullEvent(t *testing.T) {
	e := Event{
		UID:             "42",
		Title:           "Festival de jazz",
		Description:     "Trois jours de concerts en plein air",
		LongDescription: "Programmation internationale sur deux scènes",
		Conditions:      "Gratuit",
		City:            "Toulouse",
		Region:          "Occitanie",
		DateStart:       time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		DateEnd:         time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC),
		Keywords:        []string{"jazz", "musique"},
	}

	doc := e.Document()
	assert.Contains(t, doc, "Titre: Festival de jazz")
	assert.Contains(t, doc, "Date: 2025-07-04 - 2025-07-06")
	assert.Contains(t, doc, "Conditions: Gratuit")
	assert.Contains(t, doc, "Description: Trois jours de concerts en plein air")
	assert.Contains(t, doc, "Description détaillée: Programmation internationale sur deux scènes")
	assert.Contains(t, doc, "Ville: Toulouse")
	assert.Contains(t, doc, "Région: Occitanie")
	assert.Contains(t, doc, "Mots-clés: jazz, musique")
}

func TestDocument_OmitsEmptySections(t *testing.T) {
	e := Event{Title: "Atelier poterie", Description: "Initiation au tour"}

	doc := e.Document()
	assert.Contains(t, doc, "Titre: Atelier poterie")
	assert.NotContains(t, doc, "Date:")
	assert.NotContains(t, doc, "Conditions:")
	assert.NotContains(t, doc, "Ville:")
	assert.NotContains(t, doc, "Mots-clés:")
}

func TestDocument_SingleDayEvent(t *testing.T) {
	day := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	e := Event{Title: "Marché nocturne", DateStart: day, DateEnd: day}

	assert.Contains(t, e.Document(), "Date: 2025-07-04\n")
	assert.NotContains(t, e.Document(), " - ")
}

func TestHasSufficientContent(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"both descriptions empty", Event{Title: "Concert"}, false},
		{"short description only", Event{Description: "court"}, false},
		{
			"long description carries it",
			Event{Description: "court", LongDescription: string(make([]byte, 120))},
			true,
		},
		{
			"combined length reaches threshold",
			Event{Description: string(make([]byte, 50)), LongDescription: string(make([]byte, 50))},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.HasSufficientContent(100))
		})
	}
}
