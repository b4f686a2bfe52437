package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/fedinode/fedinode/activitypub"
	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/models"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Context struct {
	Debug  bool
	Logger *slog.Logger

	gorm.Config
}

// openDB opens the configured database.
func (c *Context) openDB() (*gorm.DB, error) {
	db, err := gorm.Open(c.Dialector, &c.Config)
	if err != nil {
		return nil, err
	}
	if err := configureDB(db); err != nil {
		return nil, err
	}
	return db, nil
}

// newEnv returns the ActivityPub environment over db. A nil policy selects
// the default allow-list.
func (c *Context) newEnv(db *gorm.DB, policy *ap.Policy, opts ...ap.Option) *activitypub.Env {
	return &activitypub.Env{
		Env: &models.Env{
			DB:     db,
			Logger: c.Logger,
		},
		Store:         models.NewStore(db),
		Policy:        policy,
		ClientOptions: opts,
	}
}

var cli struct {
	Config  kong.ConfigFlag `help:"Path to a YAML config file."`
	Debug   bool            `help:"Enable debug logging." env:"FEDINODE_DEBUG"`
	LogJSON bool            `name:"log-json" help:"Log as JSON." env:"FEDINODE_LOG_JSON"`
	DSN     string          `help:"Data source name." default:"${dsn}" env:"FEDINODE_DSN"`

	AutoMigrate      AutoMigrateCmd      `cmd:"" help:"Automigrate the database."`
	Serve            ServeCmd            `cmd:"" help:"Serve the node."`
	CreateActor      CreateActorCmd      `cmd:"" help:"Create a local actor."`
	DeliveryFailures DeliveryFailuresCmd `cmd:"" help:"List logged delivery failures."`
	FollowerScope    FollowerScopeCmd    `cmd:"" help:"Set the visibility scope of a follower."`
	FetchActor       FetchActorCmd       `cmd:"" help:"Fetch and cache a remote actor."`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "fedinode: .env:", err)
		os.Exit(1)
	}
	ctx := kong.Parse(&cli,
		kong.Name("fedinode"),
		kong.Description("A minimal ActivityPub node."),
		kong.Configuration(yamlConfig, filepath.Join(xdg.ConfigHome, "fedinode", "config.yaml")),
		kong.Vars{"dsn": defaultDSN},
	)
	log := newLogger(os.Stderr, cli.Debug, cli.LogJSON)
	err := ctx.Run(&Context{
		Debug:  cli.Debug,
		Logger: log,
		Config: gorm.Config{
			Dialector:      newDialector(cli.DSN),
			TranslateError: true,
			Logger:         gormLogger(cli.Debug),
		},
	})
	ctx.FatalIfErrorf(err)
}

func newLogger(w io.Writer, debug, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func gormLogger(debug bool) logger.Interface {
	if debug {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Warn)
}
