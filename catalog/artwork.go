package catalog

import (
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"artforge/common"
	"artforge/database"
	"artforge/media"
	"artforge/models"
)

// ImageUpload pairs a file already written by the media store with its
// submission metadata. Files are on disk before any database row exists.
type ImageUpload struct {
	Stored           media.StoredImage
	OriginalFilename string
	Caption          string
}

const slugRetryLimit = 25

// CreateArtwork persists the artwork row and one image row per upload, in
// submission order, all in a single transaction. The first image is primary.
// On an (artist_id, slug) conflict the whole transaction is retried with the
// next free suffix.
func (m *CatalogModule) CreateArtwork(artistID int, title, description string, isPublic bool, uploads []ImageUpload) (*models.Artwork, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, common.Invalid("title is required")
	}
	if len(uploads) == 0 {
		return nil, common.Invalid("at least one image is required")
	}

	base := Slugify(title)
	if base == "" {
		base = "untitled"
	}

	for attempt := 0; attempt < slugRetryLimit; attempt++ {
		artwork := &models.Artwork{
			Title:         title,
			Slug:          nextFreeSlug(m.db, artistID, base),
			Description:   description,
			ArtistID:      artistID,
			IsPublic:      isPublic,
			AllowComments: true,
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(artwork).Error; err != nil {
				return err
			}
			for idx, up := range uploads {
				img := models.ArtworkImage{
					ArtworkID:        artwork.ID,
					Filename:         up.Stored.Filename,
					OriginalFilename: up.OriginalFilename,
					Caption:          up.Caption,
					Order:            idx,
					IsPrimary:        idx == 0,
					Width:            up.Stored.Width,
					Height:           up.Stored.Height,
					FileSize:         up.Stored.Size,
				}
				if err := tx.Create(&img).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return artwork, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue // another submission grabbed the slug, pick the next one
		}
		return nil, err
	}
	return nil, errors.New("could not assign a unique slug")
}

// DeleteArtwork cascades the artwork and its dependents in one transaction,
// then unlinks the image files.
func (m *CatalogModule) DeleteArtwork(artworkID int) error {
	var filenames []string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var err error
		filenames, err = database.DeleteArtwork(tx, artworkID)
		return err
	})
	if err != nil {
		return err
	}

	for _, filename := range filenames {
		if err := m.media.Remove(filename); err != nil {
			log.Printf("Error removing file %s: %v", filename, err)
		}
	}
	return nil
}

// DeleteImage removes one image. The last image of an artwork cannot be
// deleted. When the primary image goes, the surviving image with the lowest
// order is promoted in the same transaction so readers never observe zero or
// two primaries.
func (m *CatalogModule) DeleteImage(artworkID, imageID int) error {
	var filename string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ArtworkImage{}).Where("artwork_id = ?", artworkID).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return common.ErrLastImage
		}

		var img models.ArtworkImage
		if err := tx.Where("id = ? AND artwork_id = ?", imageID, artworkID).First(&img).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound
			}
			return err
		}

		if err := tx.Delete(&img).Error; err != nil {
			return err
		}

		if img.IsPrimary {
			var next models.ArtworkImage
			if err := tx.Where("artwork_id = ?", artworkID).Order(`"order" ASC`).First(&next).Error; err != nil {
				return err
			}
			if err := tx.Model(&next).Update("is_primary", true).Error; err != nil {
				return err
			}
		}

		filename = img.Filename
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.media.Remove(filename); err != nil {
		log.Printf("Error removing file %s: %v", filename, err)
	}
	return nil
}

// ListImages returns an artwork's images in display order.
func ListImages(db *gorm.DB, artworkID int) ([]models.ArtworkImage, error) {
	var images []models.ArtworkImage
	err := db.Where("artwork_id = ?", artworkID).Order(`"order" ASC`).Find(&images).Error
	return images, err
}

// PrimaryImage returns the artwork's current primary image.
func PrimaryImage(db *gorm.DB, artworkID int) (*models.ArtworkImage, error) {
	var img models.ArtworkImage
	if err := db.Where("artwork_id = ? AND is_primary = ?", artworkID, true).First(&img).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

// ProcessTags replaces the artwork's tag links with the comma-separated tag
// names, creating tags that do not exist yet.
func (m *CatalogModule) ProcessTags(artworkID int, tagsString string) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artwork_id = ?", artworkID).Delete(&models.ArtworkTag{}).Error; err != nil {
			return err
		}

		for _, tagName := range strings.Split(tagsString, ",") {
			tagName = strings.TrimSpace(tagName)
			if tagName == "" {
				continue
			}

			var tag models.Tag
			err := tx.Where("name = ?", tagName).First(&tag).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				tag = models.Tag{Name: tagName, Slug: Slugify(tagName)}
				if err := tx.Create(&tag).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			link := models.ArtworkTag{ArtworkID: artworkID, TagID: tag.ID}
			if err := tx.Create(&link).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
		}
		return nil
	})
}

// ArtworkTags returns the tags linked to an artwork.
func ArtworkTags(db *gorm.DB, artworkID int) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.Table("tags").
		Joins("INNER JOIN artwork_tags ON tags.id = artwork_tags.tag_id").
		Where("artwork_tags.artwork_id = ?", artworkID).
		Find(&tags).Error
	return tags, err
}

// CreateSeries makes a new globally named series.
func (m *CatalogModule) CreateSeries(name, description string) (*models.Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Invalid("series name is required")
	}

	series := &models.Series{
		Name:        name,
		Slug:        Slugify(name),
		Description: description,
	}
	if err := m.db.Create(series).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.Invalid("a series with that name already exists")
		}
		return nil, err
	}
	return series, nil
}

// PlaceInSeries attaches the artwork to a series at the given position,
// moving it when it is already a member.
func (m *CatalogModule) PlaceInSeries(artworkID, seriesID, position int) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		var link models.ArtworkSeries
		err := tx.Where("artwork_id = ? AND series_id = ?", artworkID, seriesID).First(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			link = models.ArtworkSeries{ArtworkID: artworkID, SeriesID: seriesID, Position: position}
			return tx.Create(&link).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&link).Update("position", position).Error
	})
}

// SeriesArtworks returns a series' public artworks ordered by position.
func SeriesArtworks(db *gorm.DB, seriesID int) ([]models.Artwork, error) {
	var artworks []models.Artwork
	err := db.Table("artworks").
		Joins("INNER JOIN artwork_series ON artworks.id = artwork_series.artwork_id").
		Where("artwork_series.series_id = ? AND artworks.is_public = ?", seriesID, true).
		Order("artwork_series.position ASC").
		Find(&artworks).Error
	return artworks, err
}
