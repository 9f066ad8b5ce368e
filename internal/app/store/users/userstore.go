// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/vicarhk/vicarapi/internal/app/store/storeutil"
	"github.com/vicarhk/vicarapi/internal/app/system/normalize"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionName is the MongoDB collection holding admin accounts.
const CollectionName = "admin_users"

var (
	// ErrDuplicateUsername is returned when a folded username already exists.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrStorageUnavailable wraps database connectivity failures.
	ErrStorageUnavailable = errors.New("user storage unavailable")

	errBadRole    = errors.New("invalid role")
	errNoUsername = errors.New("username is required")
	errNoPassword = errors.New("password hash is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Create inserts a new admin user after normalizing & validating fields.
// The caller hashes the password.
func (s *Store) Create(ctx context.Context, u models.AdminUser) (models.AdminUser, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleAdmin
	}

	if u.Username == "" {
		return models.AdminUser{}, errNoUsername
	}
	if u.PasswordHash == "" {
		return models.AdminUser{}, errNoPassword
	}
	if !models.IsValidRole(u.Role) {
		return models.AdminUser{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AdminUser{}, ErrDuplicateUsername
		}
		return models.AdminUser{}, wrapErr(err)
	}
	return u, nil
}

// GetByUsername looks up a user by case/diacritic-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	folded := text.Fold(normalize.Username(username))
	if folded == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"username_ci": folded})
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// Count returns the number of admin accounts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	if hash == "" {
		return errNoPassword
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return wrapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.AdminUser, error) {
	var u models.AdminUser
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, wrapErr(err)
	}
	return &u, nil
}

func wrapErr(err error) error {
	if storeutil.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
