package config // package config loads application configuration from environment variables

import (
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"

	"github.com/iliyamo/league-registration/internal/log"
)

// Database drivers understood by database.Open.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" (default) or "sqlite"
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	SQLitePath     string // database file when DBDriver is sqlite
	AutoMigrate    bool   // apply pending migrations on startup
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	AdminEmail     string // bootstrap admin account created when missing
	AdminPassword  string // password for the bootstrap admin
	ExportKey      string // HMAC key for signed CSV download links
	PublicBaseURL  string // base URL used when building signed links
	LogLevel       string // debug | info | warn | error
	LogFile        string // optional log file path; stderr when empty
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Database credentials
// are only required for the MySQL driver.
func Load() Config {
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           must("APP_PORT"),
		DBDriver:       strings.ToLower(envStr("DB_DRIVER", DriverMySQL)),
		DBPass:         os.Getenv("DB_PASS"),
		SQLitePath:     envStr("SQLITE_PATH", "data/registration.db"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		AdminEmail:     strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		PublicBaseURL:  strings.TrimRight(envStr("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
	}
	cfg.ExportKey = envStr("EXPORT_SIGNING_KEY", cfg.JWTSecret)
	switch cfg.DBDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverSQLite:
	default:
		log.Fatal(log.CatConfig, "unsupported DB_DRIVER", nil, "driver", cfg.DBDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal(log.CatConfig, "missing required env var", nil, "key", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal(log.CatConfig, "invalid int env var", err, "key", key, "value", s)
	}
	return n
}
