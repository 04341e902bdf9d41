package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"artforge/models"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify lowercases the title, drops everything outside word characters,
// whitespace and hyphens, and collapses runs of whitespace/hyphens to a
// single hyphen.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// nextFreeSlug finds the first slug in base, base-1, base-2, ... not yet
// taken within the artist's namespace. This is only the fast path: the
// (artist_id, slug) unique index plus the caller's retry is what makes
// concurrent submissions of the same title safe.
func nextFreeSlug(db *gorm.DB, artistID int, base string) string {
	slug := base
	for counter := 1; ; counter++ {
		var count int64
		db.Model(&models.Artwork{}).Where("artist_id = ? AND slug = ?", artistID, slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
