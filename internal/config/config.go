package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lastpick/survival-pool/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	HTTPAddr                string
	DBURL                   string
	DBDisablePreparedBinary bool
	CacheEnabled            bool
	CacheTTL                time.Duration
	CORSAllowedOrigins      []string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	LogLevel                logging.Level

	// Engine knobs.
	LockLeadTime    time.Duration
	SweepInterval   time.Duration
	DealProposalTTL time.Duration

	SweepWorkers int

	// Identity introspection (gatekeeper).
	GateBaseURL               string
	GateIntrospectPath        string
	GateServiceKey            string
	GateTimeout               time.Duration
	GateCircuitEnabled        bool
	GateCircuitFailureCount   int
	GateCircuitOpenTimeout    time.Duration
	GateCircuitHalfOpenMaxReq int

	// Payment ledger collaborator.
	LedgerEnabled               bool
	LedgerBaseURL               string
	LedgerToken                 string
	LedgerTimeout               time.Duration
	LedgerMaxRetries            int
	LedgerCircuitEnabled        bool
	LedgerCircuitFailureCount   int
	LedgerCircuitOpenTimeout    time.Duration
	LedgerCircuitHalfOpenMaxReq int

	// Upstream results feed poller.
	FeedEnabled      bool
	FeedBaseURL      string
	FeedToken        string
	FeedTimeout      time.Duration
	FeedPollInterval time.Duration

	InternalJobToken string

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := getEnvAsDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsDuration("APP_WRITE_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}

	lockLeadTime, err := getEnvAsDuration("LOCK_LEAD_TIME", "90m")
	if err != nil {
		return Config{}, err
	}
	if lockLeadTime <= 0 {
		return Config{}, fmt.Errorf("LOCK_LEAD_TIME must be > 0")
	}

	sweepInterval, err := getEnvAsDuration("SWEEP_INTERVAL", "1m")
	if err != nil {
		return Config{}, err
	}
	if sweepInterval <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}

	dealProposalTTL, err := getEnvAsDuration("DEAL_PROPOSAL_TTL", "48h")
	if err != nil {
		return Config{}, err
	}
	if dealProposalTTL <= 0 {
		return Config{}, fmt.Errorf("DEAL_PROPOSAL_TTL must be > 0")
	}

	cacheEnabled, err := getEnvAsBool("CACHE_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := getEnvAsDuration("CACHE_TTL", "60s")
	if err != nil {
		return Config{}, err
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	dbDisablePreparedBinary, err := getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", "true")
	if err != nil {
		return Config{}, err
	}

	sweepWorkers, err := getEnvAsInt("SWEEP_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	if sweepWorkers < 1 {
		return Config{}, fmt.Errorf("SWEEP_WORKERS must be >= 1")
	}

	gateTimeout, err := getEnvAsDuration("GATE_TIMEOUT", "3s")
	if err != nil {
		return Config{}, err
	}
	gateCircuitEnabled, err := getEnvAsBool("GATE_CIRCUIT_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	gateCircuitFailureCount, err := getEnvAsInt("GATE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, err
	}
	if gateCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("GATE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	gateCircuitOpenTimeout, err := getEnvAsDuration("GATE_CIRCUIT_OPEN_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}
	gateCircuitHalfOpenMaxReq, err := getEnvAsInt("GATE_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, err
	}
	if gateCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("GATE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	ledgerEnabled, err := getEnvAsBool("LEDGER_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	ledgerBaseURL := strings.TrimSpace(getEnv("LEDGER_BASE_URL", ""))
	ledgerToken := strings.TrimSpace(getEnv("LEDGER_TOKEN", ""))
	if ledgerEnabled {
		if ledgerBaseURL == "" {
			return Config{}, fmt.Errorf("LEDGER_BASE_URL is required when LEDGER_ENABLED=true")
		}
		if ledgerToken == "" {
			return Config{}, fmt.Errorf("LEDGER_TOKEN is required when LEDGER_ENABLED=true")
		}
	}
	ledgerTimeout, err := getEnvAsDuration("LEDGER_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	ledgerMaxRetries, err := getEnvAsInt("LEDGER_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, err
	}
	if ledgerMaxRetries < 0 {
		return Config{}, fmt.Errorf("LEDGER_MAX_RETRIES must be >= 0")
	}
	ledgerCircuitEnabled, err := getEnvAsBool("LEDGER_CIRCUIT_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	ledgerCircuitFailureCount, err := getEnvAsInt("LEDGER_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, err
	}
	if ledgerCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("LEDGER_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	ledgerCircuitOpenTimeout, err := getEnvAsDuration("LEDGER_CIRCUIT_OPEN_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}
	ledgerCircuitHalfOpenMaxReq, err := getEnvAsInt("LEDGER_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, err
	}
	if ledgerCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("LEDGER_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	feedEnabled, err := getEnvAsBool("FEED_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	feedBaseURL := strings.TrimSpace(getEnv("FEED_BASE_URL", ""))
	if feedEnabled && feedBaseURL == "" {
		return Config{}, fmt.Errorf("FEED_BASE_URL is required when FEED_ENABLED=true")
	}
	feedTimeout, err := getEnvAsDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	feedPollInterval, err := getEnvAsDuration("FEED_POLL_INTERVAL", "2m")
	if err != nil {
		return Config{}, err
	}
	if feedPollInterval <= 0 {
		return Config{}, fmt.Errorf("FEED_POLL_INTERVAL must be > 0")
	}

	pprofEnabled, err := getEnvAsBool("PPROF_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 getEnv("APP_SERVICE_NAME", "survival-pool-api"),
		ServiceVersion:              getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		DBURL:                       getEnv("DB_URL", ""),
		DBDisablePreparedBinary:     dbDisablePreparedBinary,
		CacheEnabled:                cacheEnabled,
		CacheTTL:                    cacheTTL,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:                 readTimeout,
		WriteTimeout:                writeTimeout,
		LogLevel:                    parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		LockLeadTime:                lockLeadTime,
		SweepInterval:               sweepInterval,
		DealProposalTTL:             dealProposalTTL,
		SweepWorkers:                sweepWorkers,
		GateBaseURL:                 getEnv("GATE_BASE_URL", "http://localhost:8081"),
		GateIntrospectPath:          getEnv("GATE_INTROSPECT_PATH", "/v1/auth/introspect"),
		GateServiceKey:              strings.TrimSpace(getEnv("GATE_SERVICE_KEY", "")),
		GateTimeout:                 gateTimeout,
		GateCircuitEnabled:          gateCircuitEnabled,
		GateCircuitFailureCount:     gateCircuitFailureCount,
		GateCircuitOpenTimeout:      gateCircuitOpenTimeout,
		GateCircuitHalfOpenMaxReq:   gateCircuitHalfOpenMaxReq,
		LedgerEnabled:               ledgerEnabled,
		LedgerBaseURL:               ledgerBaseURL,
		LedgerToken:                 ledgerToken,
		LedgerTimeout:               ledgerTimeout,
		LedgerMaxRetries:            ledgerMaxRetries,
		LedgerCircuitEnabled:        ledgerCircuitEnabled,
		LedgerCircuitFailureCount:   ledgerCircuitFailureCount,
		LedgerCircuitOpenTimeout:    ledgerCircuitOpenTimeout,
		LedgerCircuitHalfOpenMaxReq: ledgerCircuitHalfOpenMaxReq,
		FeedEnabled:                 feedEnabled,
		FeedBaseURL:                 feedBaseURL,
		FeedToken:                   strings.TrimSpace(getEnv("FEED_TOKEN", "")),
		FeedTimeout:                 feedTimeout,
		FeedPollInterval:            feedPollInterval,
		InternalJobToken:            strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

func getEnvAsBool(key, fallback string) (bool, error) {
	out, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
