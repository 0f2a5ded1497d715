package sermon

import (
	"time"
)

const (
	SourceYouTube  = "youtube"
	SourceFacebook = "facebook"
)

// Sermon mirrors one video from YouTube or Facebook. VideoID is the external
// platform id and the upsert key; records are insert-only (edits on the
// platform do not propagate, matching how the mirror has always behaved).
type Sermon struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"column:title"`
	VideoID     string    `json:"videoId" gorm:"column:video_id;not null;uniqueIndex"`
	Thumbnail   string    `json:"thumbnail" gorm:"column:thumbnail"`
	Description string    `json:"description" gorm:"column:description"`
	PublishedAt time.Time `json:"publishedAt" gorm:"column:published_at;index"`
	Permalink   string    `json:"permalink,omitempty" gorm:"column:permalink"`
	Source      string    `json:"source" gorm:"column:source;not null;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

func (Sermon) TableName() string {
	return "sermons"
}
