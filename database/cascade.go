package database

import (
	"artforge/models"

	"gorm.io/gorm"
)

// Explicit, ordered cascade deletes. Callers run these inside a transaction;
// the returned filenames are unlinked from disk only after the transaction
// commits.

// DeleteArtwork removes an artwork and every dependent row (sparks, comments,
// series links, tag links, images). Returns the stored filenames of the
// deleted images.
func DeleteArtwork(tx *gorm.DB, artworkID int) ([]string, error) {
	var images []models.ArtworkImage
	if err := tx.Where("artwork_id = ?", artworkID).Find(&images).Error; err != nil {
		return nil, err
	}

	filenames := make([]string, 0, len(images))
	for _, img := range images {
		filenames = append(filenames, img.Filename)
	}

	if err := tx.Where("artwork_id = ?", artworkID).Delete(&models.Spark{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("artwork_id = ?", artworkID).Delete(&models.Comment{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("artwork_id = ?", artworkID).Delete(&models.ArtworkSeries{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("artwork_id = ?", artworkID).Delete(&models.ArtworkTag{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("artwork_id = ?", artworkID).Delete(&models.ArtworkImage{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.Artwork{}, artworkID).Error; err != nil {
		return nil, err
	}
	return filenames, nil
}

// DeleteUser removes a user, their authored comments and sparks, and every
// artwork they own with its dependents. Returns all stored filenames that
// belonged to the deleted artworks.
func DeleteUser(tx *gorm.DB, userID int) ([]string, error) {
	var artworks []models.Artwork
	if err := tx.Where("artist_id = ?", userID).Find(&artworks).Error; err != nil {
		return nil, err
	}

	var filenames []string
	for _, artwork := range artworks {
		files, err := DeleteArtwork(tx, artwork.ID)
		if err != nil {
			return nil, err
		}
		filenames = append(filenames, files...)
	}

	if err := tx.Where("user_id = ?", userID).Delete(&models.Spark{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("author_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.User{}, userID).Error; err != nil {
		return nil, err
	}
	return filenames, nil
}
