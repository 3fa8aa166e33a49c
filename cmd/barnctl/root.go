package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cjmurphy27/barn-management-sub000/internal/config"
	"github.com/cjmurphy27/barn-management-sub000/internal/infra"
	"github.com/cjmurphy27/barn-management-sub000/internal/router"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	barnFlag string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:          "barnctl",
	Short:        "Operate the barn supply catalog",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log service activity")
}

// addBarnFlag registers the required --barn flag on commands scoped to one barn.
func addBarnFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&barnFlag, "barn", "b", "", "Barn ID")
	_ = cmd.MarkFlagRequired("barn")
}

func barnID() (uuid.UUID, error) {
	id, err := uuid.Parse(barnFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --barn %q: %w", barnFlag, err)
	}
	return id, nil
}

// app is the wiring shared by every command that touches the store.
type app struct {
	cfg *config.Config
	db  *gorm.DB
	rdb *redis.Client
	svc *router.Services
}

func openApp(withRedis bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a := &app{cfg: cfg, db: db}
	if withRedis {
		rdb, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, stock alerts disabled")
		} else {
			a.rdb = rdb
		}
	}
	a.svc = router.NewServices(cfg, db, a.rdb)
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
