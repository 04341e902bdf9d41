package catalog

import (
	"bytes"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gorm.io/gorm"

	"artforge/auth"
	"artforge/common"
	"artforge/config"
	"artforge/interactions"
	"artforge/media"
	"artforge/models"
	"artforge/policy"
	"artforge/stats"
)

// MediaStore is the intake collaborator: it persists an upload and reports
// the stored filename plus best-effort dimensions.
type MediaStore interface {
	Save(src io.Reader, originalName string) (*media.StoredImage, error)
	Remove(filename string) error
}

type CatalogModule struct {
	db    *gorm.DB
	cfg   *config.Config
	media MediaStore
	auth  *auth.AuthModule
	stats *stats.StatsModule
}

// markdown renderer for artwork descriptions; output is sanitised before use
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

var ugc = bluemonday.UGCPolicy()

func NewCatalogModule(db *gorm.DB, cfg *config.Config, mediaStore MediaStore, authModule *auth.AuthModule, statsModule *stats.StatsModule) *CatalogModule {
	return &CatalogModule{
		db:    db,
		cfg:   cfg,
		media: mediaStore,
		auth:  authModule,
		stats: statsModule,
	}
}

func (m *CatalogModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/art/browse", m.browse)
	router.GET("/art/tags/:slug", m.browseByTag)
	router.GET("/art/series", m.seriesList)
	router.POST("/art/series", m.seriesCreate)
	router.GET("/art/series/:slug", m.seriesDetail)

	router.GET("/art/:username", m.gallery)
	router.GET("/art/:username/upload", m.uploadPage)
	router.POST("/art/:username/upload", m.uploadPost)
	router.GET("/art/:username/:slug", m.viewArtwork)
	router.POST("/art/:username/:slug/delete", m.deleteArtwork)
	router.POST("/art/:username/:slug/delete-image/:imageID", m.deleteImage)
	router.POST("/art/:username/:slug/series", m.placeInSeries)
}

// artworkListing pairs an artwork with its artist's username for link
// building in templates.
type artworkListing struct {
	models.Artwork
	ArtistUsername string
}

func (m *CatalogModule) withArtistUsernames(artworks []models.Artwork) []artworkListing {
	listings := make([]artworkListing, 0, len(artworks))
	for _, artwork := range artworks {
		var artist models.User
		m.db.Where("id = ?", artwork.ArtistID).First(&artist)
		listings = append(listings, artworkListing{
			Artwork:        artwork,
			ArtistUsername: artist.Username,
		})
	}
	return listings
}

func (m *CatalogModule) browse(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	var artworks []models.Artwork
	if err := m.db.Where("is_public = ?", true).Order("created_at DESC").Find(&artworks).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load artworks"})
		return
	}

	c.HTML(http.StatusOK, "browse.html", gin.H{
		"title":        "Browse Art - " + m.cfg.AppName,
		"current_user": currentUser,
		"artworks":     m.withArtistUsernames(artworks),
	})
}

func (m *CatalogModule) browseByTag(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	var tag models.Tag
	if err := m.db.Where("slug = ?", c.Param("slug")).First(&tag).Error; err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "Tag not found"})
		return
	}

	var artworks []models.Artwork
	err := m.db.Table("artworks").
		Joins("INNER JOIN artwork_tags ON artworks.id = artwork_tags.artwork_id").
		Where("artwork_tags.tag_id = ? AND artworks.is_public = ?", tag.ID, true).
		Order("artworks.created_at DESC").
		Find(&artworks).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load artworks"})
		return
	}

	c.HTML(http.StatusOK, "browse.html", gin.H{
		"title":        tag.Name + " - " + m.cfg.AppName,
		"current_user": currentUser,
		"artworks":     m.withArtistUsernames(artworks),
		"tag":          tag,
	})
}

func (m *CatalogModule) gallery(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	var artist models.User
	if err := m.db.Where("username = ?", c.Param("username")).First(&artist).Error; err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "User not found"})
		return
	}

	isOwner := currentUser != nil && currentUser.ID == artist.ID

	query := m.db.Where("artist_id = ?", artist.ID)
	if !isOwner {
		query = query.Where("is_public = ?", true)
	}

	var artworks []models.Artwork
	if err := query.Order("created_at DESC").Find(&artworks).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load artworks"})
		return
	}

	c.HTML(http.StatusOK, "gallery.html", gin.H{
		"title":        artist.Username + "'s Gallery - " + m.cfg.AppName,
		"current_user": currentUser,
		"gallery_user": artist,
		"artworks":     artworks,
		"is_owner":     isOwner,
	})
}

func (m *CatalogModule) uploadPage(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)
	if currentUser == nil || currentUser.Username != c.Param("username") {
		c.Redirect(http.StatusFound, "/art/login")
		return
	}

	c.HTML(http.StatusOK, "upload.html", gin.H{
		"title":        "Upload Artwork - " + m.cfg.AppName,
		"current_user": currentUser,
	})
}

func (m *CatalogModule) uploadPost(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)
	if currentUser == nil || currentUser.Username != c.Param("username") {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")
	isPublic := c.PostForm("is_public") != "0"
	tags := c.PostForm("tags")

	form, err := c.MultipartForm()
	if err != nil {
		c.String(http.StatusBadRequest, "invalid upload")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.String(http.StatusBadRequest, "at least one image is required")
		return
	}
	if strings.TrimSpace(title) == "" {
		c.String(http.StatusBadRequest, "title is required")
		return
	}

	// Files go to disk first; rows are committed afterwards in one
	// transaction. Files without rows are acceptable garbage.
	uploads := make([]ImageUpload, 0, len(files))
	for _, fileHeader := range files {
		src, err := fileHeader.Open()
		if err != nil {
			c.String(http.StatusBadRequest, "could not read upload")
			return
		}
		stored, err := m.media.Save(src, fileHeader.Filename)
		src.Close()
		if err != nil {
			c.String(common.HTTPStatus(err), err.Error())
			return
		}
		uploads = append(uploads, ImageUpload{
			Stored:           *stored,
			OriginalFilename: fileHeader.Filename,
		})
	}

	artwork, err := m.CreateArtwork(currentUser.ID, title, description, isPublic, uploads)
	if err != nil {
		for _, up := range uploads {
			m.media.Remove(up.Stored.Filename)
		}
		c.String(common.HTTPStatus(err), err.Error())
		return
	}

	if tags != "" {
		if err := m.ProcessTags(artwork.ID, tags); err != nil {
			c.String(http.StatusInternalServerError, "could not save tags")
			return
		}
	}

	c.Redirect(http.StatusFound, "/art/"+currentUser.Username+"/"+artwork.Slug)
}

func (m *CatalogModule) viewArtwork(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	artwork, artist, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "Artwork not found"})
		return
	}

	if !policy.CanView(artwork, currentUser) {
		c.HTML(http.StatusForbidden, "error.html", gin.H{"error": "This artwork is private"})
		return
	}

	isOwner := policy.CanModify(artwork, currentUser)

	images, err := ListImages(m.db, artwork.ID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load images"})
		return
	}

	comments, err := interactions.ListComments(m.db, artwork.ID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load comments"})
		return
	}

	tags, _ := ArtworkTags(m.db, artwork.ID)

	ident := m.auth.RequestIdentity(c)
	sparkCount := interactions.CountSparks(m.db, artwork.ID)
	hasSparked := interactions.HasSparked(m.db, artwork.ID, ident)

	m.stats.TrackView(c, artwork.ID, m.auth.VisitorID(c))

	viewCount := int64(0)
	var viewsByDay []stats.DayViews
	if isOwner {
		viewCount = m.stats.ArtworkViewCount(artwork.ID)
		viewsByDay = m.stats.ViewsByDay(artwork.ID, 7)
	}

	c.HTML(http.StatusOK, "artwork.html", gin.H{
		"title":           artwork.Title + " - " + m.cfg.AppName,
		"current_user":    currentUser,
		"artist":          artist,
		"artwork":         artwork,
		"descriptionHTML": renderDescription(artwork.Description),
		"images":          images,
		"comments":        comments,
		"tags":            tags,
		"is_owner":        isOwner,
		"spark_count":     sparkCount,
		"has_sparked":     hasSparked,
		"view_count":      viewCount,
		"views_by_day":    viewsByDay,
	})
}

func (m *CatalogModule) deleteArtwork(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	artwork, artist, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	if !policy.CanModify(artwork, currentUser) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	if err := m.DeleteArtwork(artwork.ID); err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	c.Redirect(http.StatusFound, "/art/"+artist.Username)
}

func (m *CatalogModule) deleteImage(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	artwork, artist, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	if !policy.CanModify(artwork, currentUser) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	imageID, err := strconv.Atoi(c.Param("imageID"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if err := m.DeleteImage(artwork.ID, imageID); err != nil {
		c.String(common.HTTPStatus(err), err.Error())
		return
	}

	c.Redirect(http.StatusFound, "/art/"+artist.Username+"/"+artwork.Slug)
}

func (m *CatalogModule) seriesList(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	var series []models.Series
	if err := m.db.Order("name ASC").Find(&series).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load series"})
		return
	}

	c.HTML(http.StatusOK, "series_list.html", gin.H{
		"title":        "Series - " + m.cfg.AppName,
		"current_user": currentUser,
		"series":       series,
	})
}

func (m *CatalogModule) seriesCreate(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)
	if currentUser == nil {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	series, err := m.CreateSeries(c.PostForm("name"), c.PostForm("description"))
	if err != nil {
		c.String(common.HTTPStatus(err), err.Error())
		return
	}

	c.Redirect(http.StatusFound, "/art/series/"+series.Slug)
}

func (m *CatalogModule) seriesDetail(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	var series models.Series
	if err := m.db.Where("slug = ?", c.Param("slug")).First(&series).Error; err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"error": "Series not found"})
		return
	}

	artworks, err := SeriesArtworks(m.db, series.ID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Could not load artworks"})
		return
	}

	c.HTML(http.StatusOK, "series_detail.html", gin.H{
		"title":        series.Name + " - " + m.cfg.AppName,
		"current_user": currentUser,
		"series":       series,
		"artworks":     m.withArtistUsernames(artworks),
	})
}

func (m *CatalogModule) placeInSeries(c *gin.Context) {
	currentUser := m.auth.CurrentUser(c)

	artwork, artist, err := m.findArtwork(c.Param("username"), c.Param("slug"))
	if err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	if !policy.CanModify(artwork, currentUser) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	seriesID, err := strconv.Atoi(c.PostForm("series_id"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	position, err := strconv.Atoi(c.DefaultPostForm("position", "0"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	var series models.Series
	if err := m.db.First(&series, seriesID).Error; err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	if err := m.PlaceInSeries(artwork.ID, series.ID, position); err != nil {
		c.AbortWithStatus(common.HTTPStatus(err))
		return
	}

	c.Redirect(http.StatusFound, "/art/"+artist.Username+"/"+artwork.Slug)
}

func (m *CatalogModule) findArtwork(username, slug string) (*models.Artwork, *models.User, error) {
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

func renderDescription(content string) template.HTML {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(ugc.Sanitize(buf.String()))
}
