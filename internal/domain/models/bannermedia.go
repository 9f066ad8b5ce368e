// internal/domain/models/bannermedia.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BannerPage identifies the site page a banner slot belongs to.
type BannerPage string

// Banner pages
const (
	BannerPageHome       BannerPage = "home"
	BannerPageAboutUs    BannerPage = "aboutUs"
	BannerPageOurService BannerPage = "ourService"
	BannerPageDiscover   BannerPage = "discover"
	BannerPageContactUs  BannerPage = "contactUs"
)

// HomeBannerSlots is the number of banner slots on the home page.
// Every other page has a single slot.
const HomeBannerSlots = 5

// AllBannerPages returns all valid banner pages.
func AllBannerPages() []BannerPage {
	return []BannerPage{
		BannerPageHome,
		BannerPageAboutUs,
		BannerPageOurService,
		BannerPageDiscover,
		BannerPageContactUs,
	}
}

// IsValidBannerPage checks if a page is one of the known banner pages.
func IsValidBannerPage(page BannerPage) bool {
	for _, p := range AllBannerPages() {
		if p == page {
			return true
		}
	}
	return false
}

// MaxSlotsFor returns the number of banner slots a page has.
func MaxSlotsFor(page BannerPage) int {
	if page == BannerPageHome {
		return HomeBannerSlots
	}
	return 1
}

// BannerMedia is the media descriptor stored in one (page, slotIndex) slot.
//
// Field names match the documents already stored in BannerMediaList.
type BannerMedia struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Page         BannerPage         `bson:"page" json:"page"`
	SlotIndex    int                `bson:"slotIndex" json:"slotIndex"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	FileSize     int64              `bson:"fileSize" json:"fileSize"`
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	URL          string             `bson:"url" json:"url"`
	StoragePath  string             `bson:"storagePath,omitempty" json:"-"` // path in storage backend
	Thumbnail    *string            `bson:"thumbnail" json:"thumbnail"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
	LastModified time.Time          `bson:"lastModified" json:"lastModified"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
}
