package database

import (
	"log"

	"artforge/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Artwork{},
		&models.ArtworkImage{},
		&models.Tag{},
		&models.ArtworkTag{},
		&models.Series{},
		&models.ArtworkSeries{},
		&models.Comment{},
		&models.Spark{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
