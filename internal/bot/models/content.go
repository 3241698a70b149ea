package models

import "time"

// MediaType distinguishes how an item is rendered on delivery.
type MediaType string

const (
	MediaTypePhoto    MediaType = "photo"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
)

// Content is a published unit. Immutable once created, except for
// AnnouncementMessageID (set after a successful channel post) and Description
// (appended once with the url/text payload for text-only content).
type Content struct {
	ID                    int64
	UploaderID            int64
	ThumbFileID           string
	Description           string
	IsTextOnly            bool
	RequiresToken         bool
	CreatedAt             time.Time
	AnnouncementMessageID *int64
}

// MediaItem belongs to exactly one Content. Insertion order is significant:
// the first item carries the caption on delivery.
type MediaItem struct {
	ID           int64
	ContentID    int64
	FileID       string
	FileUniqueID string
	Type         MediaType
	IsForwarded  bool
}

// MediaCounts summarizes a media list for captions and progress replies.
type MediaCounts struct {
	Photos int
	Videos int
	Other  int
}

// CountMedia tallies items by type. Anything that is not a photo or a video
// counts as "other".
func CountMedia(items []MediaItem) MediaCounts {
	var c MediaCounts
	for _, m := range items {
		switch m.Type {
		case MediaTypePhoto:
			c.Photos++
		case MediaTypeVideo:
			c.Videos++
		default:
			c.Other++
		}
	}
	return c
}
