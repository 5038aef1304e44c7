package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Notify     NotifyConfig
	Sync       SyncConfig
	Ingest     IngestConfig
	Ozon       OzonConfig
	MegaMarket MegaMarketConfig
	Multibonus MultibonusConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
	// ChannelLogDir gives each marketplace channel its own log file
	ChannelLogDir string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
	// WebhookToken authenticates inbound webhook and callback requests
	WebhookToken string
	// ClientCAPath, when set, enables mutual TLS on the push listener
	ClientCAPath string
	CertPath     string
	KeyPath      string
}

// NotifyConfig holds operator notification settings
type NotifyConfig struct {
	SMTPAddr        string
	From            string
	InfoRecipients  []string
	ErrorRecipients []string
	MailedInfoCodes []string
	Subject         string
}

// SyncConfig holds the background loop scheduling
type SyncConfig struct {
	Enabled            bool
	OrderPollInterval  time.Duration
	StockSyncInterval  time.Duration
	PriceSyncInterval  time.Duration
	StockSyncBatchSize int
}

// ChannelIngestConfig is the per-channel ingestion tuning
type ChannelIngestConfig struct {
	// BlockEmptyExternalID treats drafts without an external id as
	// duplicates instead of letting them through
	BlockEmptyExternalID bool
	// CheckPriceDeviation enables the declared-price deviation check
	CheckPriceDeviation bool
	// PriceDeviationThreshold is the rejection threshold in percent
	PriceDeviationThreshold float64
	// DefaultBuyerID is the fallback buyer when resolution fails
	DefaultBuyerID int64
}

// IngestConfig holds order ingestion settings
type IngestConfig struct {
	Currency   string
	Site       string
	Ozon       ChannelIngestConfig
	MegaMarket ChannelIngestConfig
	Multibonus ChannelIngestConfig
}

// OzonConfig holds the Ozon seller API settings
type OzonConfig struct {
	Enabled         bool
	ClientID        string
	APIKey          string
	APIBaseURL      string
	WarehouseID     int64
	TimeoutSeconds  int
	PollWindowHours int
}

// MegaMarketConfig holds the MegaMarket merchant API settings
type MegaMarketConfig struct {
	Enabled        bool
	Token          string
	MerchantCode   string
	APIBaseURL     string
	WarehouseEmail string
	TimeoutSeconds int
}

// MultibonusConfig holds the Multibonus partner API settings
type MultibonusConfig struct {
	Enabled           bool
	NotifyURL         string
	ReturnURL         string
	ClientCertPath    string
	ClientKeyPath     string
	TimeoutSeconds    int
	DeliveryCost      int64
	DefaultPostalCode string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MARKETHUB_ prefix (e.g., MARKETHUB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("MARKETHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:         v.GetString("log.level"),
			Format:        v.GetString("log.format"),
			Output:        v.GetString("log.output"),
			ChannelLogDir: v.GetString("log.channel_log_dir"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			WebhookToken:   v.GetString("http.webhook_token"),
			ClientCAPath:   v.GetString("http.client_ca_path"),
			CertPath:       v.GetString("http.cert_path"),
			KeyPath:        v.GetString("http.key_path"),
		},
		Notify: NotifyConfig{
			SMTPAddr:        v.GetString("notify.smtp_addr"),
			From:            v.GetString("notify.from"),
			InfoRecipients:  v.GetStringSlice("notify.info_recipients"),
			ErrorRecipients: v.GetStringSlice("notify.error_recipients"),
			MailedInfoCodes: v.GetStringSlice("notify.mailed_info_codes"),
			Subject:         v.GetString("notify.subject"),
		},
		Sync: SyncConfig{
			Enabled:            v.GetBool("sync.enabled"),
			OrderPollInterval:  v.GetDuration("sync.order_poll_interval"),
			StockSyncInterval:  v.GetDuration("sync.stock_sync_interval"),
			PriceSyncInterval:  v.GetDuration("sync.price_sync_interval"),
			StockSyncBatchSize: v.GetInt("sync.stock_sync_batch_size"),
		},
		Ingest: IngestConfig{
			Currency:   v.GetString("ingest.currency"),
			Site:       v.GetString("ingest.site"),
			Ozon:       channelIngest(v, "ingest.ozon"),
			MegaMarket: channelIngest(v, "ingest.megamarket"),
			Multibonus: channelIngest(v, "ingest.multibonus"),
		},
		Ozon: OzonConfig{
			Enabled:         v.GetBool("ozon.enabled"),
			ClientID:        v.GetString("ozon.client_id"),
			APIKey:          v.GetString("ozon.api_key"),
			APIBaseURL:      v.GetString("ozon.api_base_url"),
			WarehouseID:     v.GetInt64("ozon.warehouse_id"),
			TimeoutSeconds:  v.GetInt("ozon.timeout_seconds"),
			PollWindowHours: v.GetInt("ozon.poll_window_hours"),
		},
		MegaMarket: MegaMarketConfig{
			Enabled:        v.GetBool("megamarket.enabled"),
			Token:          v.GetString("megamarket.token"),
			MerchantCode:   v.GetString("megamarket.merchant_code"),
			APIBaseURL:     v.GetString("megamarket.api_base_url"),
			WarehouseEmail: v.GetString("megamarket.warehouse_email"),
			TimeoutSeconds: v.GetInt("megamarket.timeout_seconds"),
		},
		Multibonus: MultibonusConfig{
			Enabled:           v.GetBool("multibonus.enabled"),
			NotifyURL:         v.GetString("multibonus.notify_url"),
			ReturnURL:         v.GetString("multibonus.return_url"),
			ClientCertPath:    v.GetString("multibonus.client_cert_path"),
			ClientKeyPath:     v.GetString("multibonus.client_key_path"),
			TimeoutSeconds:    v.GetInt("multibonus.timeout_seconds"),
			DeliveryCost:      v.GetInt64("multibonus.delivery_cost"),
			DefaultPostalCode: v.GetString("multibonus.default_postal_code"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func channelIngest(v *viper.Viper, prefix string) ChannelIngestConfig {
	return ChannelIngestConfig{
		BlockEmptyExternalID:    v.GetBool(prefix + ".block_empty_external_id"),
		CheckPriceDeviation:     v.GetBool(prefix + ".check_price_deviation"),
		PriceDeviationThreshold: v.GetFloat64(prefix + ".price_deviation_threshold"),
		DefaultBuyerID:          v.GetInt64(prefix + ".default_buyer_id"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "markethub-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "markethub"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "Marketplace integration event"
	}
	if cfg.Sync.OrderPollInterval == 0 {
		cfg.Sync.OrderPollInterval = 5 * time.Minute
	}
	if cfg.Sync.StockSyncInterval == 0 {
		cfg.Sync.StockSyncInterval = 30 * time.Minute
	}
	if cfg.Sync.PriceSyncInterval == 0 {
		cfg.Sync.PriceSyncInterval = time.Hour
	}
	if cfg.Sync.StockSyncBatchSize == 0 {
		cfg.Sync.StockSyncBatchSize = 100
	}
	if cfg.Ingest.Currency == "" {
		cfg.Ingest.Currency = "RUB"
	}
	if cfg.Ingest.Site == "" {
		cfg.Ingest.Site = "s1"
	}
	if cfg.Ingest.Ozon.PriceDeviationThreshold == 0 {
		cfg.Ingest.Ozon.PriceDeviationThreshold = 30.0
	}
	if cfg.Ingest.MegaMarket.PriceDeviationThreshold == 0 {
		cfg.Ingest.MegaMarket.PriceDeviationThreshold = 30.0
	}
	if cfg.Ingest.Multibonus.PriceDeviationThreshold == 0 {
		cfg.Ingest.Multibonus.PriceDeviationThreshold = 30.0
	}
	if cfg.Ozon.TimeoutSeconds == 0 {
		cfg.Ozon.TimeoutSeconds = 15
	}
	if cfg.Ozon.PollWindowHours == 0 {
		cfg.Ozon.PollWindowHours = 24
	}
	if cfg.MegaMarket.TimeoutSeconds == 0 {
		cfg.MegaMarket.TimeoutSeconds = 15
	}
	if cfg.Multibonus.TimeoutSeconds == 0 {
		cfg.Multibonus.TimeoutSeconds = 10
	}
	if cfg.Multibonus.DeliveryCost == 0 {
		cfg.Multibonus.DeliveryCost = 500
	}
	if cfg.Multibonus.DefaultPostalCode == "" {
		cfg.Multibonus.DefaultPostalCode = "190000"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "markethub-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Enabled channels must carry their credentials
	if c.Ozon.Enabled {
		if c.Ozon.ClientID == "" {
			return fmt.Errorf("ozon.client_id is required when ozon is enabled")
		}
		if c.Ozon.APIKey == "" {
			return fmt.Errorf("ozon.api_key is required when ozon is enabled")
		}
	}
	if c.MegaMarket.Enabled {
		if c.MegaMarket.Token == "" {
			return fmt.Errorf("megamarket.token is required when megamarket is enabled")
		}
		if c.MegaMarket.MerchantCode == "" {
			return fmt.Errorf("megamarket.merchant_code is required when megamarket is enabled")
		}
	}
	if c.Multibonus.Enabled {
		if c.Multibonus.ClientCertPath == "" || c.Multibonus.ClientKeyPath == "" {
			return fmt.Errorf("multibonus.client_cert_path and client_key_path are required when multibonus is enabled")
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.MegaMarket.Enabled && c.HTTP.WebhookToken == "" {
			return fmt.Errorf("http.webhook_token is required in production when megamarket is enabled")
		}
		if c.Multibonus.Enabled && c.HTTP.ClientCAPath == "" {
			return fmt.Errorf("http.client_ca_path is required in production when multibonus is enabled")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
