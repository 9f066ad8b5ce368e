package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media kinds
const (
	MediaKindImage   = "image"
	MediaKindVideo   = "video"
	MediaKindUnknown = "unknown"
)

// MediaFile is an asset in the shared media library.
type MediaFile struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Filename     string              `bson:"filename" json:"filename"`          // generated, unique
	OriginalName string              `bson:"original_name" json:"originalName"` // as uploaded
	StoragePath  string              `bson:"storage_path" json:"-"`             // path in storage backend
	URL          string              `bson:"url" json:"url"`
	Size         int64               `bson:"size" json:"size"`
	ContentType  string              `bson:"content_type" json:"mimetype"`
	Kind         string              `bson:"kind" json:"type"` // image, video, unknown
	CreatedAt    time.Time           `bson:"created_at" json:"created"`
	CreatedByID  *primitive.ObjectID `bson:"created_by_id,omitempty" json:"-"`
}

// MediaKindFor classifies a MIME type as image, video, or unknown.
func MediaKindFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaKindImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaKindVideo
	default:
		return MediaKindUnknown
	}
}
