// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding counters.
const CollectionName = "rate_limits"

// Counter is one fixed-window counter, keyed by "<scope>:<subject>".
type Counter struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Key         string             `bson:"key"`
	Count       int                `bson:"count"`        // Hits in the current window
	WindowStart time.Time          `bson:"window_start"` // When the current window opened
	LastHit     time.Time          `bson:"last_hit"`     // Most recent hit (for TTL cleanup)
}

// Policy bounds the hits allowed per window.
type Policy struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of checking or recording a hit.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long until the window resets, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.Before(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Store manages fixed-window counters. Every method fails open: on a
// database error the caller is allowed through and the error is returned
// for logging.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a rate limit Store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection(CollectionName),
		now: time.Now,
	}
}

// Key builds a counter key from a scope and a subject (IP, username).
// The subject is lowercased so lookups are case-insensitive.
func Key(scope, subject string) string {
	return scope + ":" + strings.ToLower(strings.TrimSpace(subject))
}

// Hit records one hit on key and reports whether it is within policy.
// The hit that takes the count past Max is the first one refused.
func (s *Store) Hit(ctx context.Context, key string, p Policy) (Decision, error) {
	now := s.now().UTC()

	c, err := s.increment(ctx, key, now, p.Window)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c, err = s.restart(ctx, key, now)
		if wafflemongo.IsDup(err) {
			// Another request opened the window first.
			c, err = s.increment(ctx, key, now, p.Window)
		}
	}
	if err != nil {
		return open(p, now), err
	}
	return decide(c, p), nil
}

// Peek reports whether one more hit on key would be allowed without
// recording it.
func (s *Store) Peek(ctx context.Context, key string, p Policy) (Decision, error) {
	now := s.now().UTC()

	var c Counter
	err := s.c.FindOne(ctx, bson.M{"key": key}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return open(p, now), nil
	}
	if err != nil {
		return open(p, now), err
	}
	if !now.Before(c.WindowStart.Add(p.Window)) {
		return open(p, now), nil
	}

	d := decide(c, p)
	d.Allowed = c.Count < p.Max
	return d, nil
}

// Reset removes the counter for key.
func (s *Store) Reset(ctx context.Context, key string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"key": key})
	return err
}

// PurgeStale deletes counters whose window opened before cutoff and
// returns how many were removed.
func (s *Store) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"window_start": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Get returns the counter for key, or nil if none exists.
func (s *Store) Get(ctx context.Context, key string) (*Counter, error) {
	var c Counter
	err := s.c.FindOne(ctx, bson.M{"key": key}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// increment bumps the counter when its window is still open.
func (s *Store) increment(ctx context.Context, key string, now time.Time, window time.Duration) (Counter, error) {
	var c Counter
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"key": key, "window_start": bson.M{"$gt": now.Add(-window)}},
		bson.M{
			"$inc": bson.M{"count": 1},
			"$set": bson.M{"last_hit": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	return c, err
}

// restart opens a new window with a count of one, creating the counter if needed.
func (s *Store) restart(ctx context.Context, key string, now time.Time) (Counter, error) {
	var c Counter
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{
			"count":        1,
			"window_start": now,
			"last_hit":     now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	return c, err
}

func decide(c Counter, p Policy) Decision {
	remaining := p.Max - c.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   c.Count <= p.Max,
		Limit:     p.Max,
		Remaining: remaining,
		ResetAt:   c.WindowStart.Add(p.Window),
	}
}

func open(p Policy, now time.Time) Decision {
	return Decision{Allowed: true, Limit: p.Max, Remaining: p.Max, ResetAt: now.Add(p.Window)}
}
