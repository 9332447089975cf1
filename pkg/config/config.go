package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Catalog       CatalogConfig
	View          ViewConfig
	Cart          CartConfig
	Local         LocalConfig
	Registry      RegistryConfig
	DocStore      DocStoreConfig
	DB            DBConfig
	Redis         RedisConfig
	GCP           GCPConfig
	Firebase      FirebaseConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	Media         MediaConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DocStore.Driver == DocStoreSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadDB reads only the app and database settings, for tools that never
// touch the document store, identity or uploads.
func LoadDB() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg.App); err != nil {
		return nil, fmt.Errorf("parsing app config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.DB); err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

type CatalogConfig struct {
	PageSize int `envconfig:"STOREFRONT_CATALOG_PAGE_SIZE" default:"12"`
}

type ViewConfig struct {
	SearchDebounce time.Duration `envconfig:"STOREFRONT_VIEW_SEARCH_DEBOUNCE" default:"300ms"`
	Locale         string        `envconfig:"STOREFRONT_VIEW_LOCALE" default:"en"`
}

type CartConfig struct {
	// increment (default) or reject; reject restores the legacy local "already in cart" behavior
	LocalDuplicatePolicy string `envconfig:"STOREFRONT_CART_LOCAL_DUPLICATE_POLICY" default:"increment"`
}

const (
	LocalDriverRedis  = "redis"
	LocalDriverMemory = "memory"
)

type LocalConfig struct {
	Driver        string        `envconfig:"STOREFRONT_LOCAL_DRIVER" default:"redis"`
	TTL           time.Duration `envconfig:"STOREFRONT_LOCAL_TTL" default:"720h"`
	MaxValueBytes int           `envconfig:"STOREFRONT_LOCAL_MAX_VALUE_BYTES" default:"5242880"`
}

type RegistryConfig struct {
	IdleTTL       time.Duration `envconfig:"STOREFRONT_REGISTRY_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"STOREFRONT_REGISTRY_SWEEP_INTERVAL" default:"1m"`
}

const (
	DocStoreFirestore = "firestore"
	DocStoreSQL       = "sql"
	DocStoreMemory    = "memory"
)

type DocStoreConfig struct {
	Driver string `envconfig:"STOREFRONT_DOCSTORE_DRIVER" default:"firestore"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"STOREFRONT_REDIS_KEY_PREFIX" default:"sf"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirebaseConfig struct {
	APIKey string `envconfig:"STOREFRONT_FIREBASE_API_KEY"`
	// overridable for the auth emulator
	IdentityEndpoint string `envconfig:"STOREFRONT_FIREBASE_IDENTITY_ENDPOINT" default:"https://identitytoolkit.googleapis.com/v1"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"ecofinds-storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	SignInWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_SIGNIN_WINDOW" default:"1m"`
	SignInEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_SIGNIN_EMAIL_LIMIT" default:"5"`
	SignInIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_SIGNIN_IP_LIMIT" default:"20"`
	SignUpWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignUpEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignUpIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

const (
	MediaDriverCloudinary = "cloudinary"
	MediaDriverGCS        = "gcs"
)

type MediaConfig struct {
	Driver             string `envconfig:"STOREFRONT_MEDIA_DRIVER" default:"cloudinary"`
	MaxUploadBytes     int64  `envconfig:"STOREFRONT_MEDIA_MAX_UPLOAD_BYTES" default:"10485760"`
	CloudinaryCloud    string `envconfig:"STOREFRONT_CLOUDINARY_CLOUD_NAME"`
	CloudinaryPreset   string `envconfig:"STOREFRONT_CLOUDINARY_UPLOAD_PRESET"`
	Folder             string `envconfig:"STOREFRONT_MEDIA_FOLDER" default:"ecofinds/products"`
	CloudinaryEndpoint string `envconfig:"STOREFRONT_CLOUDINARY_ENDPOINT" default:"https://api.cloudinary.com/v1_1"`
	GCSBucket          string `envconfig:"STOREFRONT_GCS_BUCKET_NAME"`
	GCSPublicBaseURL   string `envconfig:"STOREFRONT_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	Tracing     bool `envconfig:"STOREFRONT_TRACING" default:"true"`
}

func (c *Config) validate() error {
	switch c.DocStore.Driver {
	case DocStoreFirestore:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required for the firestore docstore", EnvGCPProjectID)
		}
	case DocStoreSQL, DocStoreMemory:
	default:
		return fmt.Errorf("unknown %s %q", EnvDocStoreDriver, c.DocStore.Driver)
	}

	switch c.Local.Driver {
	case LocalDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s is required for the redis local store", EnvRedisURL)
		}
	case LocalDriverMemory:
	default:
		return fmt.Errorf("unknown %s %q", EnvLocalDriver, c.Local.Driver)
	}

	switch strings.ToLower(c.Cart.LocalDuplicatePolicy) {
	case "increment", "reject":
	default:
		return fmt.Errorf("unknown %s %q", EnvCartDuplicatePolicy, c.Cart.LocalDuplicatePolicy)
	}

	switch c.Media.Driver {
	case MediaDriverCloudinary:
		if c.Media.CloudinaryCloud == "" || c.Media.CloudinaryPreset == "" {
			return fmt.Errorf("%s and %s are required for cloudinary uploads", EnvCloudinaryCloudName, EnvCloudinaryPreset)
		}
	case MediaDriverGCS:
		if c.Media.GCSBucket == "" {
			return fmt.Errorf("%s is required for gcs uploads", EnvGCSBucket)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvMediaDriver, c.Media.Driver)
	}

	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvCatalogPageSize)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
