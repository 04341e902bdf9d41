package models

import "time"

type User struct {
	ID           int       `gorm:"primary_key;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"` // immutable once set
	Email        *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	FullName     string    `json:"full_name"`
	Bio          string    `gorm:"type:text" json:"bio"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Artwork struct {
	ID            int       `gorm:"primary_key;autoIncrement" json:"id"`
	Title         string    `gorm:"not null" json:"title"` // mandatory
	Slug          string    `gorm:"not null;uniqueIndex:idx_artist_slug" json:"slug"`
	Description   string    `gorm:"type:text" json:"description"`
	ArtistID      int       `gorm:"not null;index;uniqueIndex:idx_artist_slug" json:"artist_id"`
	IsPublic      bool      `gorm:"default:true" json:"is_public"`
	AllowComments bool      `gorm:"default:true" json:"allow_comments"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ArtworkImage struct {
	ID               int       `gorm:"primary_key;autoIncrement" json:"id"`
	ArtworkID        int       `gorm:"not null;index" json:"artwork_id"`
	Filename         string    `gorm:"not null" json:"filename"` // stored filename, never the original name
	OriginalFilename string    `json:"original_filename"`
	Caption          string    `gorm:"type:text" json:"caption"`
	Order            int       `gorm:"not null;default:0" json:"order"` // display sequence, 0 first
	IsPrimary        bool      `gorm:"default:false" json:"is_primary"`
	Width            *int      `json:"width,omitempty"` // nil when the file is not a decodable image
	Height           *int      `json:"height,omitempty"`
	FileSize         int64     `json:"file_size"`
	CreatedAt        time.Time `json:"created_at"`
}

type Tag struct {
	ID   int    `gorm:"primary_key;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
}

type ArtworkTag struct {
	ID        int `gorm:"primary_key;autoIncrement" json:"id"`
	ArtworkID int `gorm:"not null;index;uniqueIndex:idx_artwork_tag" json:"artwork_id"`
	TagID     int `gorm:"not null;index;uniqueIndex:idx_artwork_tag" json:"tag_id"`
}

type Series struct {
	ID          int    `gorm:"primary_key;autoIncrement" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

type ArtworkSeries struct {
	ID        int `gorm:"primary_key;autoIncrement" json:"id"`
	ArtworkID int `gorm:"not null;index" json:"artwork_id"`
	SeriesID  int `gorm:"not null;index" json:"series_id"`
	Position  int `gorm:"not null" json:"position"` // order of the artwork within the series
}

type Comment struct {
	ID         int       `gorm:"primary_key;autoIncrement" json:"id"`
	ArtworkID  int       `gorm:"not null;index" json:"artwork_id"`
	AuthorID   *int      `gorm:"index" json:"author_id,omitempty"` // nil for anonymous
	AuthorName string    `json:"author_name"`                      // required when AuthorID is nil
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Spark is a like on an artwork, held by a registered user or an anonymous
// session. Exactly one of UserID and SessionID is set; the two composite
// unique indexes are the actual guarantee against duplicate sparks under
// concurrent toggles.
type Spark struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	ArtworkID int       `gorm:"not null;index;uniqueIndex:idx_user_artwork_spark;uniqueIndex:idx_session_artwork_spark" json:"artwork_id"`
	ImageID   *int      `gorm:"index" json:"image_id,omitempty"` // optional: spark on a specific image
	UserID    *int      `gorm:"uniqueIndex:idx_user_artwork_spark" json:"user_id,omitempty"`
	SessionID *string   `gorm:"uniqueIndex:idx_session_artwork_spark" json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
