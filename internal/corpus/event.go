package corpus

import (
	"fmt"
	"strings"
	"time"
)

// Event is one record of the events catalog as stored in the document
// store. Chunks are derived from it during a rebuild; the event row
// itself is never mutated by the serving path.
type Event struct {
	UID             string
	Title           string
	Description     string
	LongDescription string
	Conditions      string
	City            string
	Region          string
	PostalCode      string
	Latitude        float64
	Longitude       float64
	DateStart       time.Time
	DateEnd         time.Time
	Keywords        []string
	UpdatedAt       time.Time
}

// PipelineRun records one successful index rebuild. The latest run's
// RunAt is the incremental watermark for the next rebuild.
type PipelineRun struct {
	RunAt           time.Time
	EventsProcessed int
	ChunksIndexed   int
	Detail          string
}

const dateLayout = "2006-01-02"

// Document renders the event as the structured text that gets chunked
// and embedded.
func (e Event) Document() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Titre: %s", e.Title))
	if !e.DateStart.IsZero() {
		date := e.DateStart.Format(dateLayout)
		if !e.DateEnd.IsZero() && !e.DateEnd.Equal(e.DateStart) {
			date = fmt.Sprintf("%s - %s", date, e.DateEnd.Format(dateLayout))
		}
		parts = append(parts, fmt.Sprintf("Date: %s", date))
	}
	if e.Conditions != "" {
		parts = append(parts, fmt.Sprintf("Conditions: %s", e.Conditions))
	}
	if e.Description != "" {
		parts = append(parts, fmt.Sprintf("\nDescription: %s", e.Description))
	}
	if e.LongDescription != "" {
		parts = append(parts, fmt.Sprintf("\nDescription détaillée: %s", e.LongDescription))
	}
	if e.City != "" || e.Region != "" {
		loc := fmt.Sprintf("\nVille: %s", e.City)
		if e.Region != "" {
			loc += fmt.Sprintf("\nRégion: %s", e.Region)
		}
		parts = append(parts, loc)
	}
	if len(e.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("\nMots-clés: %s", strings.Join(e.Keywords, ", ")))
	}

	return strings.Join(parts, "\n")
}

// HasSufficientContent reports whether the event carries enough
// description text to be worth embedding. Events below the threshold are
// skipped during a rebuild (the run then ends with a warning note).
func (e Event) HasSufficientContent(minChars int) bool {
	return len(e.Description)+len(e.LongDescription) >= minChars
}
