package catalog

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"artforge/config"
	"artforge/media"
	"artforge/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(
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
	return db
}

// fakeMedia satisfies MediaStore without touching the filesystem and records
// which files were removed.
type fakeMedia struct {
	removed []string
}

func (f *fakeMedia) Save(src io.Reader, originalName string) (*media.StoredImage, error) {
	return &media.StoredImage{Filename: "fake-" + originalName, Size: 1}, nil
}

func (f *fakeMedia) Remove(filename string) error {
	f.removed = append(f.removed, filename)
	return nil
}

func setupTestModule(db *gorm.DB) (*CatalogModule, *fakeMedia) {
	fake := &fakeMedia{}
	cfg := &config.Config{AppName: "ArtForge"}
	return NewCatalogModule(db, cfg, fake, nil, nil), fake
}

func createTestArtist(db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		IsActive:     true,
	}
	db.Create(user)
	return user
}

func testUploads(filenames ...string) []ImageUpload {
	uploads := make([]ImageUpload, 0, len(filenames))
	for _, name := range filenames {
		uploads = append(uploads, ImageUpload{
			Stored:           media.StoredImage{Filename: name, Size: 1},
			OriginalFilename: name,
		})
	}
	return uploads
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sunset Study", "sunset-study"},
		{"Hello, World!", "hello-world"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"already-a-slug", "already-a-slug"},
		{"MiXeD CaSe", "mixed-case"},
		{"dots.and.commas,", "dotsandcommas"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestCreateArtwork_FirstImagePrimary(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, err := m.CreateArtwork(alice.ID, "Sunset Study", "desc", true, testUploads("a.jpg", "b.jpg", "c.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "sunset-study", artwork.Slug)
	assert.True(t, artwork.AllowComments)

	images, err := ListImages(db, artwork.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(images))

	for idx, img := range images {
		assert.Equal(t, idx, img.Order)
		assert.Equal(t, idx == 0, img.IsPrimary)
	}
	assert.Equal(t, "a.jpg", images[0].Filename)
}

func TestCreateArtwork_SlugSuffixes(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	first, err := m.CreateArtwork(alice.ID, "Sunset Study", "", true, testUploads("a.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "sunset-study", first.Slug)

	second, err := m.CreateArtwork(alice.ID, "Sunset Study", "", true, testUploads("b.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "sunset-study-1", second.Slug)

	third, err := m.CreateArtwork(alice.ID, "Sunset Study", "", true, testUploads("c.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "sunset-study-2", third.Slug)
}

func TestCreateArtwork_SlugPerArtist(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")
	bob := createTestArtist(db, "bob")

	fromAlice, err := m.CreateArtwork(alice.ID, "Sunset Study", "", true, testUploads("a.jpg"))
	assert.NoError(t, err)

	fromBob, err := m.CreateArtwork(bob.ID, "Sunset Study", "", true, testUploads("b.jpg"))
	assert.NoError(t, err)

	assert.Equal(t, "sunset-study", fromAlice.Slug)
	assert.Equal(t, "sunset-study", fromBob.Slug)
}

func TestCreateArtwork_UntitledFallback(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, err := m.CreateArtwork(alice.ID, "!!!", "", true, testUploads("a.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "untitled", artwork.Slug)
}

func TestCreateArtwork_Validation(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	_, err := m.CreateArtwork(alice.ID, "   ", "", true, testUploads("a.jpg"))
	assert.Error(t, err)

	_, err = m.CreateArtwork(alice.ID, "No Images", "", true, nil)
	assert.Error(t, err)

	var count int64
	db.Model(&models.Artwork{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteImage_LastImageRejected(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, _ := m.CreateArtwork(alice.ID, "Solo", "", true, testUploads("only.jpg"))
	images, _ := ListImages(db, artwork.ID)

	err := m.DeleteImage(artwork.ID, images[0].ID)
	assert.Error(t, err)

	remaining, _ := ListImages(db, artwork.ID)
	assert.Equal(t, 1, len(remaining))
}

func TestDeleteImage_PromotesLowestOrder(t *testing.T) {
	db := setupTestDB()
	m, fake := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, _ := m.CreateArtwork(alice.ID, "Triptych", "", true, testUploads("a.jpg", "b.jpg", "c.jpg"))
	images, _ := ListImages(db, artwork.ID)

	err := m.DeleteImage(artwork.ID, images[0].ID)
	assert.NoError(t, err)
	assert.Contains(t, fake.removed, "a.jpg")

	remaining, _ := ListImages(db, artwork.ID)
	assert.Equal(t, 2, len(remaining))
	assert.Equal(t, "b.jpg", remaining[0].Filename)
	assert.True(t, remaining[0].IsPrimary)
	assert.False(t, remaining[1].IsPrimary)

	primary, err := PrimaryImage(db, artwork.ID)
	assert.NoError(t, err)
	assert.Equal(t, "b.jpg", primary.Filename)
}

func TestDeleteImage_NonPrimaryKeepsPrimary(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, _ := m.CreateArtwork(alice.ID, "Diptych", "", true, testUploads("a.jpg", "b.jpg"))
	images, _ := ListImages(db, artwork.ID)

	err := m.DeleteImage(artwork.ID, images[1].ID)
	assert.NoError(t, err)

	primary, err := PrimaryImage(db, artwork.ID)
	assert.NoError(t, err)
	assert.Equal(t, "a.jpg", primary.Filename)
}

func TestDeleteImage_NotFound(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, _ := m.CreateArtwork(alice.ID, "Pair", "", true, testUploads("a.jpg", "b.jpg"))

	err := m.DeleteImage(artwork.ID, 99999)
	assert.Error(t, err)
}

func TestDeleteArtwork_Cascade(t *testing.T) {
	db := setupTestDB()
	m, fake := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, _ := m.CreateArtwork(alice.ID, "Doomed", "", true, testUploads("a.jpg", "b.jpg"))
	m.ProcessTags(artwork.ID, "oil, landscape")

	sessionID := "visitor-session"
	db.Create(&models.Spark{ArtworkID: artwork.ID, SessionID: &sessionID})
	db.Create(&models.Comment{ArtworkID: artwork.ID, AuthorName: "passerby", Content: "nice"})

	err := m.DeleteArtwork(artwork.ID)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, fake.removed)

	var counts [4]int64
	db.Model(&models.ArtworkImage{}).Where("artwork_id = ?", artwork.ID).Count(&counts[0])
	db.Model(&models.Spark{}).Where("artwork_id = ?", artwork.ID).Count(&counts[1])
	db.Model(&models.Comment{}).Where("artwork_id = ?", artwork.ID).Count(&counts[2])
	db.Model(&models.ArtworkTag{}).Where("artwork_id = ?", artwork.ID).Count(&counts[3])
	for _, count := range counts {
		assert.Equal(t, int64(0), count)
	}

	var gone models.Artwork
	err = db.First(&gone, artwork.ID).Error
	assert.Error(t, err)
}

func TestProcessTags(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	artwork, _ := m.CreateArtwork(alice.ID, "Tagged", "", true, testUploads("a.jpg"))

	err := m.ProcessTags(artwork.ID, "Oil Paint, landscape,, ")
	assert.NoError(t, err)

	tags, err := ArtworkTags(db, artwork.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(tags))

	var oil models.Tag
	db.Where("name = ?", "Oil Paint").First(&oil)
	assert.Equal(t, "oil-paint", oil.Slug)

	// replacing the tag list reuses existing tags and drops stale links
	err = m.ProcessTags(artwork.ID, "landscape")
	assert.NoError(t, err)

	tags, _ = ArtworkTags(db, artwork.ID)
	assert.Equal(t, 1, len(tags))
	assert.Equal(t, "landscape", tags[0].Name)

	var tagCount int64
	db.Model(&models.Tag{}).Count(&tagCount)
	assert.Equal(t, int64(2), tagCount)
}

func TestCreateSeries(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)

	series, err := m.CreateSeries("Morning Light", "studies at dawn")
	assert.NoError(t, err)
	assert.Equal(t, "morning-light", series.Slug)

	_, err = m.CreateSeries("Morning Light", "")
	assert.Error(t, err)

	_, err = m.CreateSeries("  ", "")
	assert.Error(t, err)
}

func TestPlaceInSeries(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	series, _ := m.CreateSeries("Morning Light", "")
	artwork, _ := m.CreateArtwork(alice.ID, "First", "", true, testUploads("a.jpg"))

	err := m.PlaceInSeries(artwork.ID, series.ID, 3)
	assert.NoError(t, err)

	// placing again moves the artwork instead of duplicating the link
	err = m.PlaceInSeries(artwork.ID, series.ID, 1)
	assert.NoError(t, err)

	var links []models.ArtworkSeries
	db.Where("series_id = ?", series.ID).Find(&links)
	assert.Equal(t, 1, len(links))
	assert.Equal(t, 1, links[0].Position)
}

func TestSeriesArtworks_PublicOnlyOrdered(t *testing.T) {
	db := setupTestDB()
	m, _ := setupTestModule(db)
	alice := createTestArtist(db, "alice")

	series, _ := m.CreateSeries("Morning Light", "")
	second, _ := m.CreateArtwork(alice.ID, "Second", "", true, testUploads("b.jpg"))
	first, _ := m.CreateArtwork(alice.ID, "First", "", true, testUploads("a.jpg"))
	hidden, _ := m.CreateArtwork(alice.ID, "Hidden", "", false, testUploads("c.jpg"))

	m.PlaceInSeries(second.ID, series.ID, 2)
	m.PlaceInSeries(first.ID, series.ID, 1)
	m.PlaceInSeries(hidden.ID, series.ID, 0)

	artworks, err := SeriesArtworks(db, series.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(artworks))
	assert.Equal(t, "First", artworks[0].Title)
	assert.Equal(t, "Second", artworks[1].Title)
}

func TestRenderDescription(t *testing.T) {
	result := string(renderDescription("A **bold** study"))
	assert.Contains(t, result, "<strong>bold</strong>")

	result = string(renderDescription("hello <script>alert(1)</script>"))
	assert.NotContains(t, result, "<script>")
	assert.Contains(t, result, "hello")

	assert.Equal(t, "", string(renderDescription("")))
}
