package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	JWTSecret    string
	CookieName   string
	CookieSecure bool
	CORSOrigin   string
	Port         string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
}

func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Overload(p)
			log.Println("[env] loaded", p)
			return
		}
	}
}

func loadConfig() Config {
	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CookieName:    getenv("COOKIE_NAME", "tci_session"),
		CookieSecure:  os.Getenv("COOKIE_SECURE") == "true",
		CORSOrigin:    getenv("CORS_ORIGIN", "http://localhost:5173"),
		Port:          getenv("PORT", "8080"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com"),
	}
	// the database and the session secret are load-bearing; the OpenAI key
	// only disables the AI routes when missing
	if cfg.DatabaseURL == "" {
		log.Fatal("[env] DATABASE_URL is not set. Refusing to start.")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("[env] JWT_SECRET is not set. Refusing to start.")
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
