package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything loaded at process start. It is constructed once in
// main and passed by reference; packages never read the environment themselves.
type Config struct {
	DatabaseFile  string
	SecretKey     string // signs auth tokens
	SessionSecret string // signs the visitor session cookie

	AppName string
	Domain  string
	Port    string

	UploadDir         string
	MaxFileSize       int64
	AllowedExtensions []string

	AccessTokenMinutes int
}

// Load reads .env (when present) and the environment, filling defaults for
// anything unset. Only the signing secrets are required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env file: %v", err)
	}

	cfg := &Config{
		DatabaseFile:       getenv("ARTFORGE_DB", "art_forge.db"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		AppName:            getenv("APP_NAME", "ArtForge"),
		Domain:             getenv("DOMAIN", "http://localhost:8003"),
		Port:               getenv("PORT", "8003"),
		UploadDir:          getenv("UPLOAD_DIR", "data/uploads"),
		MaxFileSize:        getenvInt64("MAX_FILE_SIZE", 10485760), // 10MB
		AccessTokenMinutes: 30,
	}

	exts := getenv("ALLOWED_EXTENSIONS", "jpg,jpeg,png,gif,webp")
	for _, ext := range strings.Split(exts, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			cfg.AllowedExtensions = append(cfg.AllowedExtensions, ext)
		}
	}

	return cfg, nil
}

func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
