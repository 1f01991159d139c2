package config

// EnvPrefix is passed to envconfig; variable names below carry the full
// prefix so either STOREFRONT_X or the processed form resolves.
const EnvPrefix = "storefront"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogWarnStack = "STOREFRONT_LOG_WARN_STACK"

	EnvAPIBaseURL  = "STOREFRONT_API_BASE_URL"
	EnvHTTPTimeout = "STOREFRONT_HTTP_TIMEOUT"

	EnvStateDir = "STOREFRONT_STATE_DIR"

	EnvRefreshMaxAttempts = "STOREFRONT_REFRESH_MAX_ATTEMPTS"
	EnvRefreshBaseDelay   = "STOREFRONT_REFRESH_BASE_DELAY"
	EnvRefreshMaxDelay    = "STOREFRONT_REFRESH_MAX_DELAY"

	// EnvPassword is read by the login command, never by envconfig, so that
	// credentials stay out of the parsed config struct.
	EnvPassword = "STOREFRONT_PASSWORD"
)

// StateFileName is the bbolt database created under the state directory.
const StateFileName = "storefront.db"
