// Package blogstore persists bilingual Discover blog posts.
//
// Bodies are normalized on the way in: whatever the client sends (editor
// HTML, the legacy {text, formats} JSON, or plain text) is converted to
// sanitized HTML and marked with bodyformat "html". Documents written
// before that field existed are normalized the same way when read.
package blogstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/vicarhk/vicarapi/internal/app/store/storeutil"
	"github.com/vicarhk/vicarapi/internal/app/system/htmlsanitize"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding blog posts.
const CollectionName = "DiscoverBlogsList"

var (
	// ErrNotFound is returned when no blog matches the ID.
	ErrNotFound = errors.New("blog not found")
	// ErrInvalidBody is returned when a body cannot be converted to HTML.
	ErrInvalidBody = errors.New("invalid blog body")
	// ErrStorageUnavailable wraps database connectivity failures.
	ErrStorageUnavailable = errors.New("blog storage unavailable")
)

// Input carries the writable fields of a blog post.
type Input struct {
	Title    models.LocalizedText
	Summary  models.LocalizedText
	Body     models.LocalizedText
	LinkTo   string
	MediaURL string
}

// Page is one page of blogs with its pagination metadata.
type Page struct {
	Blogs        []models.DiscoverBlog
	CurrentPage  int64
	TotalPages   int64
	TotalItems   int64
	ItemsPerPage int64
}

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.CurrentPage < p.TotalPages }

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.CurrentPage > 1 }

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName), now: time.Now}
}

var newestFirst = bson.D{{Key: "createdby", Value: -1}, {Key: "_id", Value: -1}}

// List returns every blog, newest first.
func (s *Store) List(ctx context.Context) ([]models.DiscoverBlog, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

// Get loads one blog by ID.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.DiscoverBlog, error) {
	var b models.DiscoverBlog
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	normalizeLegacy(&b)
	return &b, nil
}

// Create inserts a new blog stamped with the current time.
func (s *Store) Create(ctx context.Context, in Input) (*models.DiscoverBlog, error) {
	body, err := prepareBody(in.Body)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	b := models.DiscoverBlog{
		ID:         primitive.NewObjectID(),
		Title:      in.Title,
		Summary:    in.Summary,
		Body:       body,
		BodyFormat: models.BodyFormatHTML,
		LinkTo:     in.LinkTo,
		MediaURL:   in.MediaURL,
		CreatedBy:  now,
		LastModify: now,
	}
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return nil, wrapErr(err)
	}
	return &b, nil
}

// Update overwrites the writable fields and bumps lastmodify.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input) (*models.DiscoverBlog, error) {
	body, err := prepareBody(in.Body)
	if err != nil {
		return nil, err
	}

	var b models.DiscoverBlog
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"title":      in.Title,
			"summary":    in.Summary,
			"body":       body,
			"bodyformat": models.BodyFormatHTML,
			"linkto":     in.LinkTo,
			"mediaurl":   in.MediaURL,
			"lastmodify": s.now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &b, nil
}

// Delete removes a blog and returns what was removed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (*models.DiscoverBlog, error) {
	var b models.DiscoverBlog
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &b, nil
}

// Search matches query literally and case-insensitively against the
// title and summary in both languages, newest first.
func (s *Store) Search(ctx context.Context, query string) ([]models.DiscoverBlog, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"title.en": re},
		bson.M{"title.zh": re},
		bson.M{"summary.en": re},
		bson.M{"summary.zh": re},
	}}
	return s.find(ctx, filter, options.Find().SetSort(newestFirst))
}

// ListPage returns one 1-based page of blogs, newest first.
func (s *Store) ListPage(ctx context.Context, page, limit int64) (Page, error) {
	if limit <= 0 {
		limit = storeutil.DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	total, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Page{}, wrapErr(err)
	}

	blogs, err := s.find(ctx, bson.M{}, storeutil.Paginate(limit, page).SetSort(newestFirst))
	if err != nil {
		return Page{}, err
	}

	return Page{
		Blogs:        blogs,
		CurrentPage:  page,
		TotalPages:   storeutil.TotalPages(total, limit),
		TotalItems:   total,
		ItemsPerPage: limit,
	}, nil
}

// CountByMediaURL counts blogs that reference url.
func (s *Store) CountByMediaURL(ctx context.Context, url string) (int64, error) {
	if url == "" {
		return 0, nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"mediaurl": url})
	if err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.DiscoverBlog, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer cur.Close(ctx)

	blogs := []models.DiscoverBlog{}
	if err := cur.All(ctx, &blogs); err != nil {
		return nil, wrapErr(err)
	}
	for i := range blogs {
		normalizeLegacy(&blogs[i])
	}
	return blogs, nil
}

func prepareBody(in models.LocalizedText) (models.LocalizedText, error) {
	en, _, err := htmlsanitize.PrepareBody(in.En)
	if err != nil {
		return models.LocalizedText{}, fmt.Errorf("%w (en): %v", ErrInvalidBody, err)
	}
	zh, _, err := htmlsanitize.PrepareBody(in.Zh)
	if err != nil {
		return models.LocalizedText{}, fmt.Errorf("%w (zh): %v", ErrInvalidBody, err)
	}
	return models.LocalizedText{En: en, Zh: zh}, nil
}

// normalizeLegacy converts bodies stored before bodyformat existed.
// A body that fails to convert is left as stored.
func normalizeLegacy(b *models.DiscoverBlog) {
	if b.BodyFormat == models.BodyFormatHTML {
		return
	}
	if body, err := prepareBody(b.Body); err == nil {
		b.Body = body
		b.BodyFormat = models.BodyFormatHTML
	}
}

func wrapErr(err error) error {
	if storeutil.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
