package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Exchange      ExchangeConfig      `yaml:"exchange"`
	Scanner       ScannerConfig       `yaml:"scanner"`
	Risk          RiskConfig          `yaml:"risk"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Storage       StorageConfig       `yaml:"storage"`
	Log           LogConfig           `yaml:"log"`
}

// ExchangeConfig contiene las credenciales y endpoints del exchange.
type ExchangeConfig struct {
	RESTBase     string  `yaml:"rest_base"`
	WSBase       string  `yaml:"ws_base"`
	APIKey       string  `yaml:"api_key"`    // normalmente via BINANCE_API_KEY
	APISecret    string  `yaml:"api_secret"` // normalmente via BINANCE_API_SECRET
	TakerFeeRate float64 `yaml:"taker_fee_rate"`
	UseStream    bool    `yaml:"use_stream"` // cache de quotes via WebSocket
}

// ScannerConfig controla el ciclo de detección.
type ScannerConfig struct {
	BaseCurrency         string  `yaml:"base_currency"`
	IntervalSeconds      int     `yaml:"interval_seconds"`
	InputAmount          float64 `yaml:"input_amount"`
	MinProfitPct         float64 `yaml:"min_profit_pct"`           // umbral del detector, en %
	MinProfitForAlertPct float64 `yaml:"min_profit_for_alert_pct"` // umbral de notificación, en %
	Workers              int     `yaml:"workers"`                  // 0 = NumCPU
	EnableTrading        bool    `yaml:"enable_trading"`
}

// RiskConfig controla los límites del risk manager.
type RiskConfig struct {
	MaxDailyTrades       int     `yaml:"max_daily_trades"`
	CooldownSeconds      int     `yaml:"cooldown_seconds"`
	MaxTradeAmount       float64 `yaml:"max_trade_amount"`
	MaxPositionSize      float64 `yaml:"max_position_size"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	LegTimeoutSeconds    int     `yaml:"leg_timeout_seconds"`
}

// NotificationsConfig controla los sinks de notificación.
type NotificationsConfig struct {
	Table      bool   `yaml:"table"`       // tabla completa vs línea compacta
	Quiet      bool   `yaml:"quiet"`       // silencia ciclos sin oportunidades
	WebhookURL string `yaml:"webhook_url"` // vacío = deshabilitado
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Si el archivo YAML no existe se arranca con los defaults, igual
// que con un archivo vacío. Las variables de entorno sobreescriben al YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// CooldownPeriod devuelve el cooldown por path como time.Duration.
func (c *Config) CooldownPeriod() time.Duration {
	return time.Duration(c.Risk.CooldownSeconds) * time.Second
}

// LegTimeout devuelve el timeout por orden como time.Duration.
func (c *Config) LegTimeout() time.Duration {
	return time.Duration(c.Risk.LegTimeoutSeconds) * time.Second
}

// Validate rechaza configuraciones con las que el bot no puede operar.
// Falla al arrancar, nunca a mitad de un trade.
func (c *Config) Validate() error {
	if c.Scanner.BaseCurrency == "" {
		return fmt.Errorf("scanner.base_currency must not be empty")
	}
	if c.Scanner.InputAmount <= 0 {
		return fmt.Errorf("scanner.input_amount must be positive, got %v", c.Scanner.InputAmount)
	}
	if c.Scanner.MinProfitPct < 0 {
		return fmt.Errorf("scanner.min_profit_pct must not be negative, got %v", c.Scanner.MinProfitPct)
	}
	if c.Exchange.TakerFeeRate < 0 || c.Exchange.TakerFeeRate >= 1 {
		return fmt.Errorf("exchange.taker_fee_rate must be in [0, 1), got %v", c.Exchange.TakerFeeRate)
	}
	if c.Scanner.EnableTrading {
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("exchange credentials required when trading is enabled")
		}
		if c.Risk.MaxTradeAmount <= 0 {
			return fmt.Errorf("risk.max_trade_amount must be positive, got %v", c.Risk.MaxTradeAmount)
		}
		if c.Risk.MaxPositionSize <= 0 {
			return fmt.Errorf("risk.max_position_size must be positive, got %v", c.Risk.MaxPositionSize)
		}
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes. Las credenciales nunca deberían vivir en el YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notifications.WebhookURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.BaseCurrency == "" {
		cfg.Scanner.BaseCurrency = "USDT"
	}
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 5
	}
	if cfg.Scanner.InputAmount <= 0 {
		cfg.Scanner.InputAmount = 100
	}
	if cfg.Scanner.MinProfitPct == 0 {
		cfg.Scanner.MinProfitPct = 0.5
	}
	if cfg.Scanner.MinProfitForAlertPct == 0 {
		cfg.Scanner.MinProfitForAlertPct = cfg.Scanner.MinProfitPct
	}
	if cfg.Exchange.TakerFeeRate == 0 {
		cfg.Exchange.TakerFeeRate = 0.001
	}
	if cfg.Risk.MaxDailyTrades <= 0 {
		cfg.Risk.MaxDailyTrades = 10
	}
	if cfg.Risk.CooldownSeconds <= 0 {
		cfg.Risk.CooldownSeconds = 300
	}
	if cfg.Risk.MaxTradeAmount <= 0 {
		cfg.Risk.MaxTradeAmount = 100
	}
	if cfg.Risk.MaxPositionSize <= 0 {
		cfg.Risk.MaxPositionSize = 500
	}
	if cfg.Risk.MaxConsecutiveLosses <= 0 {
		cfg.Risk.MaxConsecutiveLosses = 3
	}
	if cfg.Risk.LegTimeoutSeconds <= 0 {
		cfg.Risk.LegTimeoutSeconds = 15
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "triarb.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
