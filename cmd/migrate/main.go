package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/ground-booking/internal/config"
	"github.com/iliyamo/ground-booking/internal/database"
	"github.com/iliyamo/ground-booking/internal/logger"
)

// usage: migrate [up|down|version|force N]
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, cfg.IsDev())

	dir, err := findMigrations()
	if err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}
	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName) + "&multiStatements=true"

	m, err := migrate.New("file://"+filepath.ToSlash(dir), "mysql://"+dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("migrate init")
	}
	defer m.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		if len(os.Args) < 3 {
			log.Fatal().Msg("force needs a version")
		}
		v, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			log.Fatal().Err(convErr).Msg("invalid version")
		}
		err = m.Force(v)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal().Err(verr).Msg("version")
		}
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
		return
	default:
		log.Fatal().Str("cmd", cmd).Msg("unknown command")
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("cmd", cmd).Msg("migration failed")
	}
	log.Info().Str("cmd", cmd).Msg("migration done")
}

// findMigrations looks for a migrations directory next to the working
// directory or the executable, walking up a few levels.
func findMigrations() (string, error) {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		for cur, i := cwd, 0; i < 6; i++ {
			candidates = append(candidates, filepath.Join(cur, "migrations"))
			parent := filepath.Dir(cur)
			if parent == cur {
				break
			}
			cur = parent
		}
	}
	if exe, err := os.Executable(); err == nil {
		d := filepath.Dir(exe)
		candidates = append(candidates, filepath.Join(d, "migrations"), filepath.Join(d, "..", "migrations"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return filepath.Abs(c)
		}
	}
	return "", fmt.Errorf("no migrations directory among %d candidates", len(candidates))
}
