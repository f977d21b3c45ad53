package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"eventail/internal/corpus"
	"eventail/internal/index"
	"eventail/internal/text"
)

type Status string

const (
	StatusIdle               Status = "idle"
	StatusStarted            Status = "started"
	StatusRunning            Status = "running"
	StatusSuccess            Status = "success"
	StatusSuccessWithWarning Status = "success_with_warning"
	StatusWarning            Status = "warning"
	StatusError              Status = "error"
)

var ErrAlreadyRunning = errors.New("rebuild: a rebuild is already in progress")

type Catalog interface {
	FetchUpdatedSince(ctx context.Context, since time.Time) ([]corpus.Event, error)
}

type EventStore interface {
	Upsert(ctx context.Context, events []corpus.Event) error
	ListUpdatedSince(ctx context.Context, since time.Time) ([]corpus.Event, error)
	Count(ctx context.Context) (int, error)
	LastRun(ctx context.Context) (*corpus.PipelineRun, error)
	RecordRun(ctx context.Context, run corpus.PipelineRun) error
}

type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type Config struct {
	IndexPath           string
	ChunkSize           int
	ChunkOverlap        int
	MinDescriptionChars int
}

// State is the queryable snapshot of the coordinator.
type State struct {
	Status       Status     `json:"status"`
	Detail       string     `json:"detail"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	LastUpdateAt *time.Time `json:"last_update_at"`
}

// Coordinator serializes index rebuilds. At most one rebuild runs at a
// time: a trigger while one is in flight is rejected, never queued. The
// serving index only ever changes at the final swap, so a failed run
// leaves queries exactly as they were.
type Coordinator struct {
	catalog  Catalog
	store    EventStore
	embedder DocumentEmbedder
	handle   *index.Handle
	cfg      Config

	running atomic.Bool
	mu      sync.Mutex
	state   State
}

func NewCoordinator(c Catalog, s EventStore, e DocumentEmbedder, h *index.Handle, cfg Config) *Coordinator {
	return &Coordinator{
		catalog:  c,
		store:    s,
		embedder: e,
		handle:   h,
		cfg:      cfg,
		state:    State{Status: StatusIdle},
	}
}

// RestoreWatermark seeds last_update_at from the most recent recorded
// run, so status reads make sense right after a restart.
func (c *Coordinator) RestoreWatermark(ctx context.Context) error {
	run, err := c.store.LastRun(ctx)
	if err != nil {
		return err
	}
	if run != nil {
		c.mu.Lock()
		t := run.RunAt
		c.state.LastUpdateAt = &t
		c.mu.Unlock()
	}
	return nil
}

// Trigger starts a rebuild in the background. The CAS is the only
// gate: exactly one caller wins, everyone else gets ErrAlreadyRunning.
func (c *Coordinator) Trigger(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	now := time.Now().UTC()
	c.mu.Lock()
	c.state.Status = StatusStarted
	c.state.Detail = ""
	c.state.StartedAt = &now
	c.state.FinishedAt = nil
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx))
	return nil
}

func (c *Coordinator) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) run(ctx context.Context) {
	c.setStatus(StatusRunning, "")
	runStarted := time.Now().UTC()

	var since time.Time
	lastRun, err := c.store.LastRun(ctx)
	if err != nil {
		c.fail(ctx, fmt.Errorf("reading last run: %w", err))
		return
	}
	if lastRun != nil {
		since = lastRun.RunAt
	}
	slog.InfoContext(ctx, "rebuild started", "since", since)

	fetched, err := c.catalog.FetchUpdatedSince(ctx, since)
	if err != nil {
		c.fail(ctx, fmt.Errorf("fetching catalog: %w", err))
		return
	}
	if len(fetched) > 0 {
		if err := c.store.Upsert(ctx, fetched); err != nil {
			c.fail(ctx, fmt.Errorf("upserting events: %w", err))
			return
		}
	}

	events, err := c.store.ListUpdatedSince(ctx, since)
	if err != nil {
		c.fail(ctx, fmt.Errorf("listing updated events: %w", err))
		return
	}
	if len(events) == 0 {
		c.finish(StatusWarning, fmt.Sprintf("no new or updated events since %s", since.Format(time.RFC3339)), nil)
		return
	}

	chunks, texts, skipped := c.chunkEvents(events)
	if len(chunks) == 0 {
		c.finish(StatusWarning, fmt.Sprintf("all %d updated events were below the content threshold", len(events)), nil)
		return
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		c.fail(ctx, fmt.Errorf("embedding %d chunks: %w", len(texts), err))
		return
	}

	next, err := c.extendIndex(chunks, vectors)
	if err != nil {
		c.fail(ctx, fmt.Errorf("building index: %w", err))
		return
	}
	if err := next.Save(c.cfg.IndexPath); err != nil {
		c.fail(ctx, fmt.Errorf("saving index: %w", err))
		return
	}

	run := corpus.PipelineRun{
		RunAt:           runStarted,
		EventsProcessed: len(events),
		ChunksIndexed:   len(chunks),
		Detail:          fmt.Sprintf("%d events, %d chunks, %d skipped", len(events), len(chunks), skipped),
	}
	if err := c.store.RecordRun(ctx, run); err != nil {
		c.fail(ctx, fmt.Errorf("recording run: %w", err))
		return
	}

	// Swap only after the run is durably recorded: an error terminal
	// state must never follow a change to the serving path.
	c.handle.Swap(next)

	corpusTotal, err := c.store.Count(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to count corpus events", "error", err)
	}
	slog.InfoContext(ctx, "rebuild finished",
		"events", len(events), "chunks", len(chunks), "skipped", skipped,
		"index_size", next.Stats().Count, "corpus_events", corpusTotal)

	status := StatusSuccess
	if skipped > 0 {
		status = StatusSuccessWithWarning
	}
	c.finish(status, run.Detail, &runStarted)
}

// chunkEvents renders each event as a document and splits it. Events
// without enough description text are skipped, not failed.
func (c *Coordinator) chunkEvents(events []corpus.Event) ([]index.Chunk, []string, int) {
	var chunks []index.Chunk
	var texts []string
	skipped := 0

	for _, e := range events {
		if !e.HasSufficientContent(c.cfg.MinDescriptionChars) {
			skipped++
			continue
		}
		pieces := text.Split(e.Document(), c.cfg.ChunkSize, c.cfg.ChunkOverlap)
		for i, piece := range pieces {
			chunks = append(chunks, index.Chunk{
				ChunkID:   fmt.Sprintf("%s-%d", e.UID, i),
				EventID:   e.UID,
				Title:     e.Title,
				City:      e.City,
				Region:    e.Region,
				DateStart: formatDate(e.DateStart),
				DateEnd:   formatDate(e.DateEnd),
				Latitude:  e.Latitude,
				Longitude: e.Longitude,
				Keywords:  e.Keywords,
				Content:   piece,
			})
			texts = append(texts, piece)
		}
	}
	return chunks, texts, skipped
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func (c *Coordinator) extendIndex(chunks []index.Chunk, vectors [][]float32) (*index.Index, error) {
	if base := c.handle.Active(); base != nil {
		next := base.Clone()
		if err := next.Add(chunks, vectors); err != nil {
			return nil, err
		}
		return next, nil
	}
	return index.New(chunks, vectors)
}

func (c *Coordinator) setStatus(status Status, detail string) {
	c.mu.Lock()
	c.state.Status = status
	c.state.Detail = detail
	c.mu.Unlock()
}

func (c *Coordinator) fail(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "rebuild failed", "error", err)
	c.finish(StatusError, err.Error(), nil)
}

// finish records the terminal state and releases the trigger gate.
// watermark is non-nil only on success paths.
func (c *Coordinator) finish(status Status, detail string, watermark *time.Time) {
	now := time.Now().UTC()
	c.mu.Lock()
	c.state.Status = status
	c.state.Detail = detail
	c.state.FinishedAt = &now
	if watermark != nil {
		c.state.LastUpdateAt = watermark
	}
	c.mu.Unlock()
	c.running.Store(false)
}
