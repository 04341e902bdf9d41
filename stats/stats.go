package stats

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ArtworkEvent is one recorded view of an artwork.
type ArtworkEvent struct {
	ID        uint      `gorm:"primary_key;autoIncrement"`
	ArtworkID int       `gorm:"not null;index"`
	VisitorID string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"index"`
}

type StatsModule struct {
	db *gorm.DB
}

func NewStatsModule(db *gorm.DB) *StatsModule {
	if db == nil {
		log.Println("Stats DB is nil, view tracking will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&ArtworkEvent{}); err != nil {
		log.Printf("Error migrating artwork_events table: %v", err)
		return nil
	}

	return &StatsModule{db: db}
}

// TrackView records a view of an artwork, at most once per visitor per
// artwork per 30 minutes so refreshes do not inflate counts. Visitors without
// a session id are keyed by a hash of IP and user agent. The write happens
// asynchronously.
func (s *StatsModule) TrackView(c *gin.Context, artworkID int, visitorID string) {
	if s == nil || s.db == nil {
		return
	}

	if visitorID == "" {
		visitorID = fallbackVisitorID(c)
	}

	thirtyMinutesAgo := time.Now().Add(-30 * time.Minute)

	var recent ArtworkEvent
	err := s.db.Where("visitor_id = ? AND artwork_id = ? AND created_at > ?",
		visitorID, artworkID, thirtyMinutesAgo).First(&recent).Error
	if err == nil {
		return
	}

	event := ArtworkEvent{
		ArtworkID: artworkID,
		VisitorID: visitorID,
		CreatedAt: time.Now(),
	}

	go func() {
		if err := s.db.Create(&event).Error; err != nil {
			log.Printf("Error saving artwork view event: %v", err)
		}
	}()
}

// ArtworkViewCount returns the total recorded views of an artwork.
func (s *StatsModule) ArtworkViewCount(artworkID int) int64 {
	if s == nil || s.db == nil {
		return 0
	}

	var count int64
	s.db.Model(&ArtworkEvent{}).Where("artwork_id = ?", artworkID).Count(&count)
	return count
}

// DayViews is the number of views on one day.
type DayViews struct {
	Date  string
	Count int64
}

// ViewsByDay returns per-day view counts for the last N days, zero-filled.
func (s *StatsModule) ViewsByDay(artworkID int, days int) []DayViews {
	if s == nil || s.db == nil {
		return []DayViews{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []struct {
		Date  string
		Count int64
	}

	s.db.Model(&ArtworkEvent{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("artwork_id = ? AND created_at >= ?", artworkID, startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	dayViews := make([]DayViews, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayViews[i] = DayViews{Date: date.Format("2006-01-02")}
	}

	for _, result := range results {
		for i := range dayViews {
			if dayViews[i].Date == result.Date {
				dayViews[i].Count = result.Count
				break
			}
		}
	}

	return dayViews
}

func fallbackVisitorID(c *gin.Context) string {
	data := c.ClientIP() + c.Request.UserAgent()
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
