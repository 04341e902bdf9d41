package interactions

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"artforge/auth"
	"artforge/common"
	"artforge/models"
	"artforge/policy"
)

type InteractionsModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

// strict strips all markup from user-supplied comment fields
var strict = bluemonday.StrictPolicy()

func NewInteractionsModule(db *gorm.DB, authModule *auth.AuthModule) *InteractionsModule {
	return &InteractionsModule{db: db, auth: authModule}
}

func (m *InteractionsModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/art/:username/:slug/spark", m.sparkToggle)
	router.POST("/art/:username/:slug/comment", m.addComment)
	router.POST("/art/:username/:slug/comment/:commentID/delete", m.deleteComment)
}

// ToggleSpark flips the spark state for one identity on one artwork and
// returns the new state plus the refreshed count. The existence check runs in
// the same transaction as the mutation; the unique indexes catch whatever
// races past it, and the whole transaction is retried once on that conflict,
// which then takes the delete path.
func (m *InteractionsModule) ToggleSpark(artworkID int, ident auth.Identity) (bool, int64, error) {
	if !ident.Known() {
		return false, 0, common.Invalid("no identity to spark with")
	}

	var sparked bool
	toggle := func(tx *gorm.DB) error {
		q := tx.Where("artwork_id = ?", artworkID)
		if ident.Registered() {
			q = q.Where("user_id = ?", ident.User.ID)
		} else {
			q = q.Where("session_id = ?", ident.SessionID)
		}

		var existing models.Spark
		err := q.First(&existing).Error
		if err == nil {
			sparked = false
			return tx.Delete(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		spark := models.Spark{ArtworkID: artworkID}
		if ident.Registered() {
			userID := ident.User.ID
			spark.UserID = &userID
		} else {
			sessionID := ident.SessionID
			spark.SessionID = &sessionID
		}
		sparked = true
		return tx.Create(&spark).Error
	}

	err := m.db.Transaction(toggle)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = m.db.Transaction(toggle)
	}
	if err != nil {
		return false, 0, err
	}

	return sparked, CountSparks(m.db, artworkID), nil
}

// AddComment validates and persists a comment. Anonymous authors must supply
// a display name; markup is stripped from both fields.
func (m *InteractionsModule) AddComment(artwork *models.Artwork, requester *models.User, authorName, content string) (*models.Comment, error) {
	if !artwork.AllowComments {
		return nil, common.ErrForbidden
	}

	content = strings.TrimSpace(strict.Sanitize(content))
	if content == "" {
		return nil, common.Invalid("comment content is required")
	}

	comment := models.Comment{
		ArtworkID: artwork.ID,
		Content:   content,
	}
	if requester != nil {
		authorID := requester.ID
		comment.AuthorID = &authorID
		comment.AuthorName = requester.Username
	} else {
		authorName = strings.TrimSpace(strict.Sanitize(authorName))
		if authorName == "" {
			return nil, common.Invalid("name is required for anonymous comments")
		}
		comment.AuthorName = authorName
	}

	if err := m.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment when the requester is its author or the
// artwork's owning artist.
func (m *InteractionsModule) DeleteComment(artwork *models.Artwork, commentID int, requester *models.User) error {
	if requester == nil {
		return common.ErrForbidden
	}

	var comment models.Comment
	if err := m.db.Where("id = ? AND artwork_id = ?", commentID, artwork.ID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound
		}
		return err
	}

	if !policy.CanDeleteComment(&comment, artwork, requester) {
		return common.ErrForbidden
	}

	return m.db.Delete(&comment).Error
}

// CountSparks returns the current spark count for an artwork.
func CountSparks(db *gorm.DB, artworkID int) int64 {
	var count int64
	db.Model(&models.Spark{}).Where("artwork_id = ?", artworkID).Count(&count)
	return count
}

// HasSparked reports whether the identity currently holds a spark on the artwork.
func HasSparked(db *gorm.DB, artworkID int, ident auth.Identity) bool {
	if !ident.Known() {
		return false
	}

	q := db.Model(&models.Spark{}).Where("artwork_id = ?", artworkID)
	if ident.Registered() {
		q = q.Where("user_id = ?", ident.User.ID)
	} else {
		q = q.Where("session_id = ?", ident.SessionID)
	}

	var count int64
	q.Count(&count)
	return count > 0
}

// ListComments returns an artwork's comments, newest first.
func ListComments(db *gorm.DB, artworkID int) ([]models.Comment, error) {
	var comments []models.Comment
	err := db.Where("artwork_id = ?", artworkID).Order("created_at DESC").Find(&comments).Error
	return comments, err
}

func (m *InteractionsModule) sparkToggle(c *gin.Context) {
	artwork, _, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	requester := m.auth.CurrentUser(c)
	if !policy.CanView(artwork, requester) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ident := m.auth.EnsureIdentity(c)
	sparked, count, err := m.ToggleSpark(artwork.ID, ident)
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	if c.GetHeader("Accept") == "application/json" {
		c.JSON(http.StatusOK, gin.H{
			"sparked":     sparked,
			"spark_count": count,
		})
		return
	}
	c.Redirect(http.StatusFound, "/art/"+c.Param("username")+"/"+c.Param("slug"))
}

func (m *InteractionsModule) addComment(c *gin.Context) {
	artwork, _, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	requester := m.auth.CurrentUser(c)
	if !policy.CanView(artwork, requester) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	if _, err := m.AddComment(artwork, requester, c.PostForm("author_name"), c.PostForm("content")); err != nil {
		c.String(common.HTTPStatus(err), err.Error())
		return
	}

	c.Redirect(http.StatusFound, "/art/"+c.Param("username")+"/"+c.Param("slug")+"#comments")
}

func (m *InteractionsModule) deleteComment(c *gin.Context) {
	artwork, _, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	commentID, err := strconv.Atoi(c.Param("commentID"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	requester := m.auth.CurrentUser(c)
	if err := m.DeleteComment(artwork, commentID, requester); err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	c.Redirect(http.StatusFound, "/art/"+c.Param("username")+"/"+c.Param("slug")+"#comments")
}

func (m *InteractionsModule) findArtwork(username, slug string) (*models.Artwork, *models.User, error) {
	var artist models.User
	if err := m.db.Where("username = ?", username).First(&artist).Error; err != nil {
		return nil, nil, common.ErrNotFound
	}

	var artwork models.Artwork
	if err := m.db.Where("slug = ? AND artist_id = ?", slug, artist.ID).First(&artwork).Error; err != nil {
		return nil, nil, common.ErrNotFound
	}
	return &artwork, &artist, nil
}
