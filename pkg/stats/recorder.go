package stats

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindJoin  Kind = "join"
	KindLeave Kind = "leave"
	KindShot  Kind = "shot"
	// KindDeath is recorded for the ship that died; Other is the ship that
	// fired the killing laser, or 0.
	KindDeath Kind = "death"
)

const (
	queueSize     = 1024
	batchSize     = 50
	flushInterval = 5 * time.Second
)

type Event struct {
	Kind  Kind
	Ship  uint32
	Other uint32
	At    time.Time
}

// Recorder persists events in batches from a background goroutine so the
// game loop never waits on disk.
type Recorder struct {
	store  *Store
	run    int64
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// NewRecorder starts a new run on store and its background writer.
func NewRecorder(store *Store) (*Recorder, error) {
	run, err := store.StartRun()
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		store:  store,
		run:    run,
		events: make(chan Event, queueSize),
		stop:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r, nil
}

func (r *Recorder) Run() int64 { return r.run }

// Track enqueues an event without blocking. A nil Recorder ignores events.
func (r *Recorder) Track(kind Kind, ship, other uint32) {
	if r == nil {
		return
	}
	select {
	case r.events <- Event{Kind: kind, Ship: ship, Other: other, At: time.Now().UTC()}:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped is the number of events lost to a full queue.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes every queued event and stops the writer. Track must not be
// called after Close.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	close(r.stop)
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]Event, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-r.events:
			batch = append(batch, evt)
			if len(batch) >= batchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			close(r.events)
			for evt := range r.events {
				batch = append(batch, evt)
			}
			if len(batch) > 0 {
				r.flush(batch)
			}
			return
		}
	}
}

func (r *Recorder) flush(events []Event) {
	tx, err := r.store.conn.Begin()
	if err != nil {
		log.Error().Err(err).Msg("stats: begin tx")
		return
	}
	defer tx.Rollback()

	insert, err := tx.Prepare(`INSERT INTO events (run, kind, ship, other, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Error().Err(err).Msg("stats: prepare insert")
		return
	}
	defer insert.Close()

	for _, evt := range events {
		other := sql.NullInt64{Int64: int64(evt.Other), Valid: evt.Other != 0}
		if _, err := insert.Exec(r.run, string(evt.Kind), evt.Ship, other, evt.At.Format(time.RFC3339)); err != nil {
			log.Error().Err(err).Str("kind", string(evt.Kind)).Msg("stats: insert event")
			continue
		}
		if err := r.apply(tx, evt); err != nil {
			log.Error().Err(err).Str("kind", string(evt.Kind)).Msg("stats: update pilot")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Int("events", len(events)).Msg("stats: commit")
	}
}

// apply folds one event into the pilots table.
func (r *Recorder) apply(tx *sql.Tx, evt Event) error {
	at := evt.At.Format(time.RFC3339)
	ensure := func(ship uint32) error {
		_, err := tx.Exec(`INSERT INTO pilots (run, ship, joined_at) VALUES (?, ?, ?) ON CONFLICT(run, ship) DO NOTHING`, r.run, ship, at)
		return err
	}

	switch evt.Kind {
	case KindJoin:
		return ensure(evt.Ship)
	case KindLeave:
		if err := ensure(evt.Ship); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE pilots SET left_at = ? WHERE run = ? AND ship = ?`, at, r.run, evt.Ship)
		return err
	case KindShot:
		if err := ensure(evt.Ship); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE pilots SET shots = shots + 1 WHERE run = ? AND ship = ?`, r.run, evt.Ship)
		return err
	case KindDeath:
		if err := ensure(evt.Ship); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE pilots SET deaths = deaths + 1 WHERE run = ? AND ship = ?`, r.run, evt.Ship); err != nil {
			return err
		}
		if evt.Other == 0 || evt.Other == evt.Ship {
			return nil
		}
		if err := ensure(evt.Other); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE pilots SET kills = kills + 1 WHERE run = ? AND ship = ?`, r.run, evt.Other)
		return err
	}
	return nil
}
