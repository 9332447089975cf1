package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvCatalogPageSize     = "STOREFRONT_CATALOG_PAGE_SIZE"
	EnvViewSearchDebounce  = "STOREFRONT_VIEW_SEARCH_DEBOUNCE"
	EnvCartDuplicatePolicy = "STOREFRONT_CART_LOCAL_DUPLICATE_POLICY"
	EnvLocalMaxValueBytes  = "STOREFRONT_LOCAL_MAX_VALUE_BYTES"
	EnvLocalDriver         = "STOREFRONT_LOCAL_DRIVER"
	EnvRegistryIdleTTL     = "STOREFRONT_REGISTRY_IDLE_TTL"
	EnvDocStoreDriver      = "STOREFRONT_DOCSTORE_DRIVER"
	EnvDBDSN               = "STOREFRONT_DB_DSN"
	EnvDBDriver            = "STOREFRONT_DB_DRIVER"
	EnvDBHost              = "STOREFRONT_DB_HOST"
	EnvDBUser              = "STOREFRONT_DB_USER"
	EnvDBName              = "STOREFRONT_DB_NAME"
	EnvRedisURL            = "STOREFRONT_REDIS_URL"
	EnvGCPProjectID        = "STOREFRONT_GCP_PROJECT_ID"
	EnvFirebaseAPIKey      = "STOREFRONT_FIREBASE_API_KEY"
	EnvJWTSecret           = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer           = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins          = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvMediaDriver         = "STOREFRONT_MEDIA_DRIVER"
	EnvCloudinaryCloudName = "STOREFRONT_CLOUDINARY_CLOUD_NAME"
	EnvCloudinaryPreset    = "STOREFRONT_CLOUDINARY_UPLOAD_PRESET"
	EnvGCSBucket           = "STOREFRONT_GCS_BUCKET_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
