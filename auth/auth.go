package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"artforge/common"
	"artforge/config"
	"artforge/database"
	"artforge/models"
)

const (
	authCookie = "access_token"
	visitorKey = "visitor_id"
)

// FileRemover unlinks stored image files after a cascade delete commits.
// Satisfied by the media store.
type FileRemover interface {
	Remove(filename string) error
}

type AuthModule struct {
	db    *gorm.DB
	cfg   *config.Config
	files FileRemover
}

func NewAuthModule(db *gorm.DB, cfg *config.Config, files FileRemover) *AuthModule {
	return &AuthModule{db: db, cfg: cfg, files: files}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/art/login", a.loginPage)
	router.POST("/art/login", a.loginPost)
	router.GET("/art/register", a.registerPage)
	router.POST("/art/register", a.registerPost)
	router.GET("/art/logout", a.logout)
	router.POST("/art/account/delete", a.deleteAccount)
}

// Identity is the requester as the interaction ledger sees it: a registered
// user or an anonymous visitor tracked by a session id. At most one side is
// set; both empty means the visitor has no identity yet.
type Identity struct {
	User      *models.User
	SessionID string
}

func (i Identity) Registered() bool { return i.User != nil }

func (i Identity) Known() bool { return i.User != nil || i.SessionID != "" }

// CurrentUser resolves the auth cookie to a user. Missing, malformed or
// expired tokens, and tokens for users that no longer exist, all resolve to
// nil without a user-visible error.
func (a *AuthModule) CurrentUser(c *gin.Context) *models.User {
	token, err := c.Cookie(authCookie)
	if err != nil || token == "" {
		return nil
	}

	username, err := a.parseAccessToken(token)
	if err != nil {
		return nil
	}

	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil
	}
	return &user
}

// RequestIdentity returns the requester's identity without minting anything:
// anonymous visitors who have never interacted come back unknown.
func (a *AuthModule) RequestIdentity(c *gin.Context) Identity {
	if user := a.CurrentUser(c); user != nil {
		return Identity{User: user}
	}
	return Identity{SessionID: a.VisitorID(c)}
}

// EnsureIdentity is RequestIdentity plus lazy minting: a first-time anonymous
// visitor gets a fresh session id persisted in the year-long session cookie.
func (a *AuthModule) EnsureIdentity(c *gin.Context) Identity {
	if user := a.CurrentUser(c); user != nil {
		return Identity{User: user}
	}

	session := sessions.Default(c)
	if v, ok := session.Get(visitorKey).(string); ok && v != "" {
		return Identity{SessionID: v}
	}

	id := uuid.New().String()
	session.Set(visitorKey, id)
	if err := session.Save(); err != nil {
		log.Printf("Error saving visitor session: %v", err)
	}
	return Identity{SessionID: id}
}

// VisitorID returns the anonymous session id if one was minted earlier.
func (a *AuthModule) VisitorID(c *gin.Context) string {
	session := sessions.Default(c)
	if v, ok := session.Get(visitorKey).(string); ok {
		return v
	}
	return ""
}

func (a *AuthModule) loginPage(c *gin.Context) {
	if user := a.CurrentUser(c); user != nil {
		c.Redirect(http.StatusFound, "/art/"+user.Username)
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"title": "Login - " + a.cfg.AppName,
		"error": c.Query("error"),
	})
}

func (a *AuthModule) loginPost(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		c.Redirect(http.StatusFound, "/art/login?error=invalid")
		return
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		c.Redirect(http.StatusFound, "/art/login?error=invalid")
		return
	}

	if err := a.issueAuthCookie(c, user.Username); err != nil {
		c.Redirect(http.StatusFound, "/art/login?error=server")
		return
	}

	c.Redirect(http.StatusFound, "/art/"+user.Username)
}

func (a *AuthModule) registerPage(c *gin.Context) {
	if user := a.CurrentUser(c); user != nil {
		c.Redirect(http.StatusFound, "/art/"+user.Username)
		return
	}

	c.HTML(http.StatusOK, "register.html", gin.H{
		"title": "Register - " + a.cfg.AppName,
		"error": c.Query("error"),
	})
}

func (a *AuthModule) registerPost(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	fullName := strings.TrimSpace(c.PostForm("full_name"))

	if username == "" || password == "" {
		c.Redirect(http.StatusFound, "/art/register?error=missing_fields")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", username).First(&existing).Error; err == nil {
		c.Redirect(http.StatusFound, "/art/register?error=username_exists")
		return
	}

	if email != "" {
		if err := a.db.Where("email = ?", email).First(&existing).Error; err == nil {
			c.Redirect(http.StatusFound, "/art/register?error=email_exists")
			return
		}
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		c.Redirect(http.StatusFound, "/art/register?error=server")
		return
	}

	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		FullName:     fullName,
		IsActive:     true,
	}
	if email != "" {
		user.Email = &email
	}

	if err := a.db.Create(&user).Error; err != nil {
		// The unique indexes on username/email are the real guard; the
		// pre-checks above only produce friendlier redirects.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.Redirect(http.StatusFound, "/art/register?error=username_exists")
			return
		}
		c.Redirect(http.StatusFound, "/art/register?error=server")
		return
	}

	if err := a.issueAuthCookie(c, user.Username); err != nil {
		c.Redirect(http.StatusFound, "/art/login")
		return
	}

	c.Redirect(http.StatusFound, "/art/"+user.Username)
}

func (a *AuthModule) logout(c *gin.Context) {
	c.SetCookie(authCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/art/")
}

func (a *AuthModule) deleteAccount(c *gin.Context) {
	user := a.CurrentUser(c)
	if user == nil {
		c.AbortWithStatus(common.HTTPStatus(common.ErrForbidden))
		return
	}

	if err := a.DeleteAccount(user.ID); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.SetCookie(authCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/art/")
}

// DeleteAccount removes the user and everything they own in one transaction,
// then unlinks the orphaned image files.
func (a *AuthModule) DeleteAccount(userID int) error {
	var filenames []string
	err := a.db.Transaction(func(tx *gorm.DB) error {
		var err error
		filenames, err = database.DeleteUser(tx, userID)
		return err
	})
	if err != nil {
		return err
	}

	for _, filename := range filenames {
		if err := a.files.Remove(filename); err != nil {
			log.Printf("Error removing file %s: %v", filename, err)
		}
	}
	return nil
}

func (a *AuthModule) issueAuthCookie(c *gin.Context, username string) error {
	token, err := a.createAccessToken(username)
	if err != nil {
		return err
	}
	maxAge := a.cfg.AccessTokenMinutes * 60
	c.SetCookie(authCookie, token, maxAge, "/", "", false, true)
	return nil
}

func (a *AuthModule) createAccessToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(a.cfg.AccessTokenMinutes) * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.SecretKey))
}

func (a *AuthModule) parseAccessToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
