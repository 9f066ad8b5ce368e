// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize is used when a caller asks for a non-positive limit.
const DefaultPageSize = 10

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// TotalPages returns how many pages of size limit hold total items.
func TotalPages(total, limit int64) int64 {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return (total + limit - 1) / limit
}

// IsUnavailable reports whether err means the database could not be reached,
// as opposed to a query or data error.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}
