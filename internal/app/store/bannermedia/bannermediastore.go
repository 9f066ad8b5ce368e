// Package bannermedia stores the media descriptor assigned to each
// (page, slotIndex) banner slot.
//
// A unique index on {page, slotIndex} guarantees at most one record per
// slot. Upsert updates an existing record in place or inserts a new one;
// when two uploads race to create the same slot the losing insert fails on
// the index and is reported as ErrDuplicateSlot.
package bannermedia

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/vicarhk/vicarapi/internal/app/store/storeutil"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection banner slots are stored in.
const CollectionName = "BannerMediaList"

var (
	// ErrInvalidPage is returned for a page outside the known banner pages.
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidSlotIndex is returned for a slot index outside the page's range.
	ErrInvalidSlotIndex = errors.New("invalid slot index")
	// ErrInvalidDescriptor is returned when a required descriptor field is missing.
	ErrInvalidDescriptor = errors.New("invalid media descriptor")
	// ErrNotFound is returned when no record exists for a slot.
	ErrNotFound = errors.New("media not found")
	// ErrDuplicateSlot is returned when a concurrent upload created the slot first.
	ErrDuplicateSlot = errors.New("duplicate entry")
	// ErrStorageUnavailable is returned when the database cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPage) ||
		errors.Is(err, ErrInvalidSlotIndex) ||
		errors.Is(err, ErrInvalidDescriptor)
}

// ValidateSlot checks page and slotIndex against the page's slot range.
func ValidateSlot(page models.BannerPage, slotIndex int) error {
	if !models.IsValidBannerPage(page) {
		return fmt.Errorf("%w: %q", ErrInvalidPage, page)
	}
	if max := models.MaxSlotsFor(page); slotIndex < 0 || slotIndex >= max {
		return fmt.Errorf("%w: %d (page %s allows 0-%d)", ErrInvalidSlotIndex, slotIndex, page, max-1)
	}
	return nil
}

// Store provides access to the banner media collection.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new banner media store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection(CollectionName),
		now: time.Now,
	}
}

// Descriptor describes the stored asset being assigned to a slot.
type Descriptor struct {
	Filename     string
	OriginalName string
	MimeType     string
	FileSize     int64
	URL          string
	StoragePath  string
	Thumbnail    *string
}

func (d Descriptor) validate() error {
	var missing []string
	if strings.TrimSpace(d.Filename) == "" {
		missing = append(missing, "filename")
	}
	if strings.TrimSpace(d.OriginalName) == "" {
		missing = append(missing, "originalName")
	}
	if strings.TrimSpace(d.MimeType) == "" {
		missing = append(missing, "mimeType")
	}
	if d.FileSize <= 0 {
		missing = append(missing, "fileSize")
	}
	if strings.TrimSpace(d.URL) == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDescriptor, strings.Join(missing, ", "))
	}
	return nil
}

// UpsertResult is the outcome of Upsert.
type UpsertResult struct {
	Media *models.BannerMedia
	// Created is true when the slot had no record before.
	Created bool
	// Replaced is the record as it was before an update, so the caller can
	// remove the old asset. Nil when Created.
	Replaced *models.BannerMedia
}

// Upsert assigns desc to (page, slotIndex).
//
// An existing record keeps its ID and UploadedAt; its descriptor fields are
// overwritten, LastModified is bumped and it is made active again. Otherwise
// a new record is inserted.
func (s *Store) Upsert(ctx context.Context, page models.BannerPage, slotIndex int, desc Descriptor) (*UpsertResult, error) {
	if err := ValidateSlot(page, slotIndex); err != nil {
		return nil, err
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	set := bson.M{
		"filename":     desc.Filename,
		"originalName": desc.OriginalName,
		"fileSize":     desc.FileSize,
		"mimeType":     desc.MimeType,
		"url":          desc.URL,
		"storagePath":  desc.StoragePath,
		"thumbnail":    desc.Thumbnail,
		"lastModified": now,
		"isActive":     true,
	}

	var before models.BannerMedia
	err := s.c.FindOneAndUpdate(ctx,
		slotFilter(page, slotIndex),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)

	switch {
	case err == nil:
		after := before
		applyDescriptor(&after, desc, now)
		return &UpsertResult{Media: &after, Replaced: &before}, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, wrapErr(err)
	}

	media := models.BannerMedia{
		ID:         primitive.NewObjectID(),
		Page:       page,
		SlotIndex:  slotIndex,
		UploadedAt: now,
	}
	applyDescriptor(&media, desc, now)

	if _, err := s.c.InsertOne(ctx, media); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, fmt.Errorf("%w: page %s slot %d", ErrDuplicateSlot, page, slotIndex)
		}
		return nil, wrapErr(err)
	}
	return &UpsertResult{Media: &media, Created: true}, nil
}

// Get returns the record for one slot, active or not.
func (s *Store) Get(ctx context.Context, page models.BannerPage, slotIndex int) (*models.BannerMedia, error) {
	if err := ValidateSlot(page, slotIndex); err != nil {
		return nil, err
	}
	var m models.BannerMedia
	if err := s.c.FindOne(ctx, slotFilter(page, slotIndex)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapErr(err)
	}
	return &m, nil
}

// SlotsForPage returns the page's active records placed by slot index.
// The result always has MaxSlotsFor(page) entries; empty slots are nil.
func (s *Store) SlotsForPage(ctx context.Context, page models.BannerPage) ([]*models.BannerMedia, error) {
	if !models.IsValidBannerPage(page) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPage, page)
	}

	cur, err := s.c.Find(ctx,
		bson.M{"page": page, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "slotIndex", Value: 1}}),
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer cur.Close(ctx)

	var found []models.BannerMedia
	if err := cur.All(ctx, &found); err != nil {
		return nil, wrapErr(err)
	}

	slots := make([]*models.BannerMedia, models.MaxSlotsFor(page))
	for i := range found {
		idx := found[i].SlotIndex
		if idx >= 0 && idx < len(slots) {
			slots[idx] = &found[i]
		}
	}
	return slots, nil
}

// Delete removes the record for a slot and returns it. Removing the stored
// asset is left to the caller.
func (s *Store) Delete(ctx context.Context, page models.BannerPage, slotIndex int) (*models.BannerMedia, error) {
	if err := ValidateSlot(page, slotIndex); err != nil {
		return nil, err
	}
	var m models.BannerMedia
	if err := s.c.FindOneAndDelete(ctx, slotFilter(page, slotIndex)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapErr(err)
	}
	return &m, nil
}

// SetActive shows or hides a slot without removing its record.
func (s *Store) SetActive(ctx context.Context, page models.BannerPage, slotIndex int, active bool) error {
	if err := ValidateSlot(page, slotIndex); err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx, slotFilter(page, slotIndex), bson.M{"$set": bson.M{
		"isActive":     active,
		"lastModified": s.now().UTC(),
	}})
	if err != nil {
		return wrapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func slotFilter(page models.BannerPage, slotIndex int) bson.M {
	return bson.M{"page": page, "slotIndex": slotIndex}
}

func applyDescriptor(m *models.BannerMedia, d Descriptor, now time.Time) {
	m.Filename = d.Filename
	m.OriginalName = d.OriginalName
	m.FileSize = d.FileSize
	m.MimeType = d.MimeType
	m.URL = d.URL
	m.StoragePath = d.StoragePath
	m.Thumbnail = d.Thumbnail
	m.LastModified = now
	m.IsActive = true
}

func wrapErr(err error) error {
	if storeutil.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
