package store

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	sessionKeyPrefix = "board_games/"
	raceRecordsKey   = "race_records"
)

func SessionKey(id string) string { return sessionKeyPrefix + id }

// SessionRecord is a game plus its betting book, at the version it was read.
type SessionRecord struct {
	Version int64
	Game    engine.State
	Book    betting.Book
}

// stored is the persisted layout: the game fields at the top level so older
// writers' records still load, with the book alongside. Missing fields are
// filled by Normalize and zoneless timestamps are read as UTC.
type stored struct {
	engine.State
	Betting *betting.Book `json:"betting,omitempty"`
}

type Sessions struct {
	kv KV
}

func NewSessions(kv KV) *Sessions {
	return &Sessions{kv: kv}
}

func (r *Sessions) Load(ctx context.Context, id string) (SessionRecord, error) {
	e, err := r.kv.Get(ctx, SessionKey(id))
	if err != nil {
		return SessionRecord{}, err
	}
	rec, err := decodeSession(e.Value)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	rec.Version = e.Version
	if rec.Game.ID == "" {
		rec.Game.ID = id
	}
	return rec, nil
}

func decodeSession(data []byte) (SessionRecord, error) {
	var s stored
	if err := json.Unmarshal(data, &s); err != nil {
		return SessionRecord{}, err
	}
	rec := SessionRecord{Game: s.State, Book: betting.NewBook()}
	if s.Betting != nil {
		rec.Book = *s.Betting
	}
	rec.Game.Normalize()
	rec.Book.Normalize()
	return rec, nil
}

func encodeSession(rec SessionRecord) ([]byte, error) {
	book := rec.Book
	return json.Marshal(stored{State: rec.Game, Betting: &book})
}

// Create stores a brand new session at version 1.
func (r *Sessions) Create(ctx context.Context, rec SessionRecord) (int64, error) {
	data, err := encodeSession(rec)
	if err != nil {
		return 0, err
	}
	if err := r.kv.Create(ctx, SessionKey(rec.Game.ID), data); err != nil {
		return 0, err
	}
	return 1, nil
}

// Save writes rec if nobody else has written since rec.Version was read.
func (r *Sessions) Save(ctx context.Context, rec SessionRecord) (int64, error) {
	rec.Game.UpdatedAt = time.Now().UTC()
	data, err := encodeSession(rec)
	if err != nil {
		return 0, err
	}
	return r.kv.CompareAndSwap(ctx, SessionKey(rec.Game.ID), rec.Version, data)
}

// RaceRecord is the history entry written when a race finishes.
type RaceRecord struct {
	ID         string            `json:"race_id"`
	SessionID  string            `json:"game_id"`
	Winner     int               `json:"winner"`
	Positions  map[int]int       `json:"final_positions"`
	Scratched  []engine.Scratch  `json:"scratched_horses"`
	Payouts    []engine.Payout   `json:"payouts"`
	Pot        int64             `json:"pot"`
	BetPayouts []betting.Winning `json:"bet_payouts,omitempty"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (r *Sessions) PushRace(ctx context.Context, rec RaceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.kv.Push(ctx, raceRecordsKey, data)
}

// RecentRaces returns up to n of the latest race records, oldest first.
func (r *Sessions) RecentRaces(ctx context.Context, n int) ([]RaceRecord, error) {
	if n <= 0 {
		return []RaceRecord{}, nil
	}
	items, err := r.kv.Range(ctx, raceRecordsKey, -int64(n), -1)
	if err != nil {
		return nil, err
	}
	out := make([]RaceRecord, 0, len(items))
	for _, it := range items {
		var rec RaceRecord
		if err := json.Unmarshal(it, &rec); err != nil {
			return nil, fmt.Errorf("decode race record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
