package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colorguess/assets"
	"github.com/robalobadob/colorguess/internal/db"
	"github.com/robalobadob/colorguess/internal/httpserver"
	"github.com/robalobadob/colorguess/internal/store"
)

func main() {
	_ = godotenv.Load()
	production := os.Getenv("NODE_ENV") == "production"
	if !production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := run(production); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// run opens the database, builds the server and blocks serving HTTP.
func run(production bool) error {
	conn, err := db.Open(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	if err := db.Migrate(conn, assets.Migrations()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Warn().Msg("JWT_SECRET not set, using development secret")
	}
	mem := store.NewMemoryStore()
	srv := httpserver.New(mem, conn, httpserver.Options{
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTExpiresDays:   getEnvInt("JWT_EXPIRES_DAYS", 14),
		CookieName:       getEnv("COOKIE_NAME", "colorguess_token"),
		ClientOrigin:     getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Secure:           production,
		DailySalt:        getEnv("DAILY_SALT", "local_dev_salt"),
		AllowFixedTarget: getEnv("ALLOW_FIXED_TARGET", "") == "true",
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 360)) * time.Minute,
	})

	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting colorguess server")
	return srv.Start(":" + port)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}
