package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/log"
)

// Dialect tells repositories which SQL flavour the pool speaks.
type Dialect int

const (
	MySQL Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "mysql"
}

// ForUpdate returns the row-locking suffix for SELECTs that must block
// concurrent writers. SQLite transactions are opened IMMEDIATE instead.
func (d Dialect) ForUpdate() string {
	if d == SQLite {
		return ""
	}
	return " FOR UPDATE"
}

// Connect opens the pool selected by cfg.DBDriver and brings the schema up
// to date when AutoMigrate is set.
func Connect(cfg config.Config) (*sql.DB, Dialect, error) {
	if cfg.DBDriver == config.DriverSQLite {
		db, err := OpenSQLite(cfg.SQLitePath)
		return db, SQLite, err
	}
	db, err := Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, MySQL, err
	}
	if cfg.AutoMigrate {
		if err := MigrateUp(MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)); err != nil {
			_ = db.Close()
			return nil, MySQL, err
		}
	}
	return db, MySQL, nil
}

// MySQLDSN builds a DSN with utf8mb4 and UTC time handling.
func MySQLDSN(user, pass, host, port, name string) string {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, port)
	c.DBName = name
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", MySQLDSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql %s:%s: %w", host, port, err)
	}
	log.Info(log.CatDB, "connected to database", "driver", "mysql", "host", host, "db", name)
	return db, nil
}
