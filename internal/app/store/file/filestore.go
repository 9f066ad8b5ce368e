// Package file stores metadata for assets in the media library.
package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/vicarhk/vicarapi/internal/app/store/storeutil"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding media records.
const CollectionName = "media_files"

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("media file not found")
	// ErrDuplicate is returned when the generated filename already exists.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrStorageUnavailable wraps database connectivity failures.
	ErrStorageUnavailable = errors.New("media storage unavailable")
)

// Store provides access to the media_files collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new file store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection(CollectionName),
	}
}

// CreateInput contains the input for creating a media record.
type CreateInput struct {
	Filename     string
	OriginalName string
	StoragePath  string
	URL          string
	Size         int64
	ContentType  string
	CreatedByID  *primitive.ObjectID
}

// Create creates a new media record.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.MediaFile, error) {
	f := models.MediaFile{
		ID:           primitive.NewObjectID(),
		Filename:     input.Filename,
		OriginalName: input.OriginalName,
		StoragePath:  input.StoragePath,
		URL:          input.URL,
		Size:         input.Size,
		ContentType:  input.ContentType,
		Kind:         models.MediaKindFor(input.ContentType),
		CreatedAt:    time.Now().UTC(),
		CreatedByID:  input.CreatedByID,
	}

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, input.Filename)
		}
		return nil, wrapErr(err)
	}
	return &f, nil
}

// GetByFilename retrieves a media record by its generated filename.
func (s *Store) GetByFilename(ctx context.Context, filename string) (*models.MediaFile, error) {
	return s.findOne(ctx, bson.M{"filename": filename})
}

// GetByURL retrieves a media record by its public URL.
func (s *Store) GetByURL(ctx context.Context, url string) (*models.MediaFile, error) {
	return s.findOne(ctx, bson.M{"url": url})
}

// List returns every media record, newest first.
func (s *Store) List(ctx context.Context) ([]models.MediaFile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer cur.Close(ctx)

	files := []models.MediaFile{}
	if err := cur.All(ctx, &files); err != nil {
		return nil, wrapErr(err)
	}
	return files, nil
}

// DeleteByFilename removes a media record and returns what was removed.
func (s *Store) DeleteByFilename(ctx context.Context, filename string) (*models.MediaFile, error) {
	var f models.MediaFile
	err := s.c.FindOneAndDelete(ctx, bson.M{"filename": filename}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &f, nil
}

// Count returns the total number of media records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.MediaFile, error) {
	var f models.MediaFile
	err := s.c.FindOne(ctx, filter).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &f, nil
}

func wrapErr(err error) error {
	if storeutil.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
