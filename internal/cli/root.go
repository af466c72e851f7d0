// Package cli implements regctl, the operator command line for the
// registration service. Settings come from an optional config file and
// the same environment variables the server reads.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/repository"
)

type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the regctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "regctl",
		Short:         "Operate the league registration service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("db-driver", "", "mysql or sqlite")
	root.PersistentFlags().String("sqlite-path", "", "SQLite database file")
	_ = a.v.BindPFlag("db_driver", root.PersistentFlags().Lookup("db-driver"))
	_ = a.v.BindPFlag("sqlite_path", root.PersistentFlags().Lookup("sqlite-path"))

	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		a.adminCmd(),
		a.windowCmd(),
		a.exportCmd(),
		a.registrationsCmd(),
	)
	return root
}

// Execute runs regctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) initConfig() error {
	a.v.SetDefault("db_driver", config.DriverMySQL)
	a.v.SetDefault("sqlite_path", "data/registration.db")
	a.v.SetDefault("db_auto_migrate", true)
	a.v.SetDefault("bcrypt_cost", 12)
	a.v.SetDefault("registration_cache_ttl", "10s")
	a.v.AutomaticEnv()

	if a.cfgFile == "" {
		return nil
	}
	a.v.SetConfigFile(a.cfgFile)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", a.cfgFile, err)
	}
	return nil
}

// config maps viper keys onto the server's Config. Keys match the
// server's environment variable names in lower case.
func (a *app) config() config.Config {
	return config.Config{
		DBDriver:    strings.ToLower(a.v.GetString("db_driver")),
		DBUser:      a.v.GetString("db_user"),
		DBPass:      a.v.GetString("db_pass"),
		DBHost:      a.v.GetString("db_host"),
		DBPort:      a.v.GetString("db_port"),
		DBName:      a.v.GetString("db_name"),
		SQLitePath:  a.v.GetString("sqlite_path"),
		AutoMigrate: a.v.GetBool("db_auto_migrate"),
		BcryptCost:  a.v.GetInt("bcrypt_cost"),
	}
}

type repos struct {
	db       *sql.DB
	venues   *repository.VenueRepo
	slots    *repository.TimeSlotRepo
	regs     *repository.RegistrationRepo
	settings *repository.SettingRepo
	admins   *repository.AdminRepo
}

// open connects and runs fn with the repositories, closing the pool after.
func (a *app) open(ctx context.Context, fn func(ctx context.Context, r repos) error) error {
	cfg := a.config()
	if cfg.DBDriver != config.DriverMySQL && cfg.DBDriver != config.DriverSQLite {
		return fmt.Errorf("unsupported db_driver %q", cfg.DBDriver)
	}
	db, dialect, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(ctx, repos{
		db:       db,
		venues:   repository.NewVenueRepo(db),
		slots:    repository.NewTimeSlotRepo(db, dialect),
		regs:     repository.NewRegistrationRepo(db, dialect),
		settings: repository.NewSettingRepo(db),
		admins:   repository.NewAdminRepo(db),
	})
}
