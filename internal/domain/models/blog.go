// internal/domain/models/blog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocalizedText holds the English and Chinese versions of a string.
type LocalizedText struct {
	En string `bson:"en" json:"en"`
	Zh string `bson:"zh" json:"zh"`
}

// BodyFormatHTML marks a blog body that has been normalized to editor HTML.
const BodyFormatHTML = "html"

// Blog limits
const (
	BlogTitleMaxLen   = 200
	BlogSummaryMaxLen = 500
)

// DiscoverBlog is a bilingual post shown on the Discover page.
//
// Field names match the documents already stored in DiscoverBlogsList.
type DiscoverBlog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title      LocalizedText      `bson:"title" json:"title"`
	Summary    LocalizedText      `bson:"summary" json:"summary"`
	Body       LocalizedText      `bson:"body" json:"body"` // rich text HTML
	BodyFormat string             `bson:"bodyformat,omitempty" json:"bodyformat,omitempty"`
	LinkTo     string             `bson:"linkto" json:"linkto"`
	MediaURL   string             `bson:"mediaurl" json:"mediaurl"`
	CreatedBy  time.Time          `bson:"createdby" json:"createdby"` // creation time
	LastModify time.Time          `bson:"lastmodify" json:"lastmodify"`
}
