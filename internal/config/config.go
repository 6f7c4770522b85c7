package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"car-landed-cost/internal/logging"
	"car-landed-cost/internal/numfmt"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Rates     RatesConfig     `mapstructure:"rates"`
	Listing   ListingConfig   `mapstructure:"listing"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Bot       BotConfig       `mapstructure:"bot"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the rate refresh cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// RatesConfig covers the three upstream rate sources.
type RatesConfig struct {
	USDKRWBaseURL  string        `mapstructure:"usd_krw_base_url"`
	USDKRWMarkup   float64       `mapstructure:"usd_krw_markup"`
	USDRUBBaseURL  string        `mapstructure:"usd_rub_base_url"`
	USDRUBToken    string        `mapstructure:"usd_rub_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxAge         time.Duration `mapstructure:"max_age"`

	// StablecoinSource selects where the USDT quote comes from:
	// "coinbase" (exchange API) or "chainlink" (on-chain price feed).
	StablecoinSource string        `mapstructure:"stablecoin_source"`
	StablecoinMarkup float64       `mapstructure:"stablecoin_markup"`
	CoinbaseBaseURL  string        `mapstructure:"coinbase_base_url"`
	EthereumRPCURL   string        `mapstructure:"ethereum_rpc_url"`
	USDTFeedAddress  string        `mapstructure:"usdt_feed_address"`
}

// ListingConfig captures marketplace readside connectivity.
type ListingConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	PhotoBaseURL   string        `mapstructure:"photo_base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxPhotos      int           `mapstructure:"max_photos"`
}

// FeesConfig holds the flat charge schedule as thousands-grouped strings, the
// way operators quote them. KRW entries cover the origin side, RUB entries the
// destination side.
type FeesConfig struct {
	CompanyServiceKRW   string `mapstructure:"company_service_krw"`
	FreightKRW          string `mapstructure:"freight_krw"`
	DealerFeeKRW        string `mapstructure:"dealer_fee_krw"`
	DomesticDeliveryKRW string `mapstructure:"domestic_delivery_krw"`
	DomesticTransferKRW string `mapstructure:"domestic_transfer_krw"`

	BrokerFeeRUB         string `mapstructure:"broker_fee_rub"`
	PortTransferRUB      string `mapstructure:"port_transfer_rub"`
	WarehouseRUB         string `mapstructure:"warehouse_rub"`
	LabCertificationRUB  string `mapstructure:"lab_certification_rub"`
	TempRegistrationRUB  string `mapstructure:"temp_registration_rub"`
	LongHaulTransportRUB string `mapstructure:"long_haul_transport_rub"`
}

func (f FeesConfig) entries() map[string]string {
	return map[string]string{
		"fees.company_service_krw":     f.CompanyServiceKRW,
		"fees.freight_krw":             f.FreightKRW,
		"fees.dealer_fee_krw":          f.DealerFeeKRW,
		"fees.domestic_delivery_krw":   f.DomesticDeliveryKRW,
		"fees.domestic_transfer_krw":   f.DomesticTransferKRW,
		"fees.broker_fee_rub":          f.BrokerFeeRUB,
		"fees.port_transfer_rub":       f.PortTransferRUB,
		"fees.warehouse_rub":           f.WarehouseRUB,
		"fees.lab_certification_rub":   f.LabCertificationRUB,
		"fees.temp_registration_rub":   f.TempRegistrationRUB,
		"fees.long_haul_transport_rub": f.LongHaulTransportRUB,
	}
}

// BotConfig covers the Telegram chat surface.
type BotConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Token       string        `mapstructure:"token"`
	APIBase     string        `mapstructure:"api_base"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	ManagerURL  string        `mapstructure:"manager_url"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CARCOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "carcost")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "10m")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x63617263))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("rates.usd_krw_base_url", "https://api.manana.kr")
	v.SetDefault("rates.usd_krw_markup", 25.0)
	v.SetDefault("rates.request_timeout", "10s")
	v.SetDefault("rates.max_age", "10m")
	v.SetDefault("rates.stablecoin_source", "coinbase")
	v.SetDefault("rates.stablecoin_markup", 4.0)
	v.SetDefault("rates.coinbase_base_url", "https://api.coinbase.com")

	v.SetDefault("listing.base_url", "https://api.encar.com/v1/readside")
	v.SetDefault("listing.photo_base_url", "https://ci.encar.com")
	v.SetDefault("listing.request_timeout", "15s")
	v.SetDefault("listing.max_photos", 10)

	v.SetDefault("fees.company_service_krw", "1,400,000")
	v.SetDefault("fees.freight_krw", "1,400,000")
	v.SetDefault("fees.dealer_fee_krw", "440,000")
	v.SetDefault("fees.domestic_delivery_krw", "100,000")
	v.SetDefault("fees.domestic_transfer_krw", "350,000")
	v.SetDefault("fees.broker_fee_rub", "120,000")
	v.SetDefault("fees.port_transfer_rub", "13,000")
	v.SetDefault("fees.warehouse_rub", "50,000")
	v.SetDefault("fees.lab_certification_rub", "30,000")
	v.SetDefault("fees.temp_registration_rub", "8,000")
	v.SetDefault("fees.long_haul_transport_rub", "230,000")

	v.SetDefault("bot.enabled", false)
	v.SetDefault("bot.api_base", "https://api.telegram.org")
	v.SetDefault("bot.poll_timeout", "30s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Rates.USDKRWMarkup < 0 {
		return fmt.Errorf("rates.usd_krw_markup cannot be negative")
	}
	if c.Rates.StablecoinMarkup < 0 {
		return fmt.Errorf("rates.stablecoin_markup cannot be negative")
	}

	switch c.Rates.StablecoinSource {
	case "coinbase":
	case "chainlink":
		if c.Rates.EthereumRPCURL == "" {
			return fmt.Errorf("rates.ethereum_rpc_url is required for the chainlink source")
		}
		if c.Rates.USDTFeedAddress == "" {
			return fmt.Errorf("rates.usdt_feed_address is required for the chainlink source")
		}
	default:
		return fmt.Errorf("rates.stablecoin_source must be coinbase or chainlink, got %q", c.Rates.StablecoinSource)
	}

	for key, raw := range c.Fees.entries() {
		if _, err := numfmt.ParsePositiveAmount(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if c.Bot.Enabled && c.Bot.Token == "" {
		return fmt.Errorf("bot.token is required when the bot is enabled")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
