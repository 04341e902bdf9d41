package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"artforge/auth"
	"artforge/catalog"
	"artforge/common"
	"artforge/config"
	"artforge/database"
	"artforge/interactions"
	"artforge/media"
	"artforge/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY environment variable not set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	db := common.ConnectDb(cfg)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	mediaStore, err := media.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to prepare upload directory:", err)
	}

	router := gin.Default()

	// Visitor session: holds only the anonymous interaction id, minted
	// lazily on first anonymous spark or comment. Auth uses its own
	// short-lived token cookie.
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 365,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("artforge_session", store))

	router.LoadHTMLGlob("*/views/*.html")
	router.Static("/art/uploads", cfg.UploadDir)
	router.Static("/public", "./public")

	statsModule := stats.NewStatsModule(db)

	authModule := auth.NewAuthModule(db, cfg, mediaStore)
	authModule.RegisterRoutes(router)

	catalogModule := catalog.NewCatalogModule(db, cfg, mediaStore, authModule, statsModule)
	catalogModule.RegisterRoutes(router)

	interactionsModule := interactions.NewInteractionsModule(db, authModule)
	interactionsModule.RegisterRoutes(router)

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/art/")
	})

	router.GET("/art/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "home.html", gin.H{
			"title":        cfg.AppName,
			"current_user": authModule.CurrentUser(c),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
