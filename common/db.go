package common

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"artforge/config"
)

// ConnectDb opens the sqlite database named by the config. TranslateError is
// on so unique-constraint violations surface as gorm.ErrDuplicatedKey, which
// the slug and spark paths rely on.
func ConnectDb(cfg *config.Config) *gorm.DB {
	dbFile := cfg.DatabaseFile
	if dbFile == "" {
		log.Println("database file not configured")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Println("Error opening sqlite db: " + err.Error())
		return nil
	}
	log.Println("opened sqlite db at:", dbFile)
	return db
}
