package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// insecureDefaultSecret keeps local development working out of the box.
// Load refuses to start production with it.
const insecureDefaultSecret = "ugbff00TxyqwAmcOFzIyMfoZ-dev-only-secret"

type Config struct {
	Server      ServerConfig   `env:",prefix=SERVER_"`
	Postgres    PostgresConfig `env:",prefix=POSTGRES_"`
	Redis       RedisConfig    `env:",prefix=REDIS_"`
	JWT         JWTConfig      `env:",prefix=JWT_"`
	SMTP        SMTPConfig     `env:",prefix=SMTP_"`
	OAuth       OAuthConfig    `env:",prefix=OAUTH_"`
	Security    SecurityConfig `env:",prefix="`
	CORS        CORSConfig     `env:",prefix=CORS_"`
	APIBaseURL  string         `env:"API_BASE_URL,default=http://localhost:8080"`
	FrontendURL string         `env:"FRONTEND_URL,default=http://localhost:3000"`
	Env         string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=identity_service"`
	Password       string `env:"PASSWORD,default=identity_service_password"`
	DBName         string `env:"DB,default=identity_service_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=file://migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret     string   `env:"SECRET,default=ugbff00TxyqwAmcOFzIyMfoZ-dev-only-secret"`
	SessionTTL Duration `env:"SESSION_TTL,default=1h"`
}

type SMTPConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=no-reply@fxrumble.com"`
}

// ProviderCredentials holds one OAuth client registration
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// SteamCredentials holds the Steam OpenID configuration
type SteamCredentials struct {
	APIKey    string `env:"API_KEY"`
	ReturnURL string `env:"RETURN_URL"`
	Realm     string `env:"REALM"`
}

type OAuthConfig struct {
	Facebook ProviderCredentials `env:",prefix=FACEBOOK_"`
	GitHub   ProviderCredentials `env:",prefix=GITHUB_"`
	Google   ProviderCredentials `env:",prefix=GOOGLE_"`
	Steam    SteamCredentials    `env:",prefix=STEAM_"`
	StateTTL Duration            `env:"STATE_TTL,default=10m"`
}

type SecurityConfig struct {
	BCryptCost int `env:"BCRYPT_COST,default=10"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if config.IsProduction() {
		if config.JWT.Secret == insecureDefaultSecret {
			return nil, fmt.Errorf("JWT_SECRET must be overridden in production")
		}
		if len(config.JWT.Secret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
		}
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
