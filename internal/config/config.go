package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The signing secret and token TTLs are loaded
// once at startup and passed by injection to the token issuer and the auth
// middleware; nothing reads them as ambient globals, so tests can construct
// a Config with their own secret.
type Config struct {
    Env           string // application environment (e.g. "dev", "prod")
    Port          string // HTTP port to listen on
    DBUser        string // database username
    DBPass        string // database password (optional)
    DBHost        string // database host address
    DBPort        string // database port number
    DBName        string // database name
    JWTSecret     string // secret used to sign JWTs (HS256)
    AccessTTLMin  int    // access token time-to-live in minutes
    RefreshTTLMin int    // refresh token time-to-live in minutes
    BcryptCost    int    // bcrypt cost for password hashing

    CookieSecure   bool   // Secure attribute on the refresh_token cookie
    CookieSameSite string // SameSite attribute: "strict", "lax" or "none"

    // Railway tracking provider (dislocation import).
    RWProviderURL  string // export endpoint URL
    RWProviderName string // provider account name
    RWProviderPass string // provider account password
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:           must("APP_ENV"),
        Port:          must("APP_PORT"),
        DBUser:        must("DB_USER"),
        DBPass:        os.Getenv("DB_PASS"), // empty allowed
        DBHost:        must("DB_HOST"),
        DBPort:        must("DB_PORT"),
        DBName:        must("DB_NAME"),
        JWTSecret:     must("JWT_SECRET"),
        AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLMin: mustInt("REFRESH_TOKEN_TTL_MIN"),
        BcryptCost:    mustInt("BCRYPT_COST"),

        CookieSecure:   envBool("COOKIE_SECURE", true),
        CookieSameSite: getenv("COOKIE_SAMESITE", "strict"),

        RWProviderURL:  os.Getenv("RW_PROVIDER_URL"),
        RWProviderName: os.Getenv("RW_PROVIDER_NAME"),
        RWProviderPass: os.Getenv("RW_PROVIDER_PASSWORD"),
    }
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
