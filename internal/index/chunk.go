package index

// Chunk is the unit of embedding and retrieval: a bounded slice of a
// formatted event document plus the event metadata needed to render a
// search result or a prompt context block. Fields are fixed rather than
// an open map so a missing field shows up at compile time, not as a
// formatting surprise.
type Chunk struct {
	ChunkID   string   `json:"chunk_id"`
	EventID   string   `json:"event_id"`
	Title     string   `json:"title"`
	City      string   `json:"city"`
	Region    string   `json:"region"`
	DateStart string   `json:"date_start,omitempty"`
	DateEnd   string   `json:"date_end,omitempty"`
	Latitude  float64  `json:"latitude,omitempty"`
	Longitude float64  `json:"longitude,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Content   string   `json:"content"`
}

type ScoredChunk struct {
	Chunk
	Score float32
}

type Stats struct {
	Count     int `json:"count"`
	Dimension int `json:"dimension"`
}
