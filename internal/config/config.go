package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Attendance/internal/domain"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type BrokerConfig struct {
	URL             string        `mapstructure:"url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	ClientIDPrefix  string        `mapstructure:"client_id_prefix"`
	Topic           string        `mapstructure:"topic"`
	AckTopic        string        `mapstructure:"ack_topic"`
	CardField       string        `mapstructure:"card_field"`
	QoS             int           `mapstructure:"qos"`
	ReconnectPeriod time.Duration `mapstructure:"reconnect_period"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	EventBuffer     int           `mapstructure:"event_buffer"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	QuorumThreshold float64         `mapstructure:"quorum_threshold"`
	RecentLimit     int             `mapstructure:"recent_limit"`
	RosterFile      string          `mapstructure:"roster_file"`
	Roster          []domain.Member `mapstructure:"roster"`

	CheckInLimit  int           `mapstructure:"checkin_limit"`
	CheckInWindow time.Duration `mapstructure:"checkin_window"`

	Broker BrokerConfig `mapstructure:"broker"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("quorum_threshold", 0.5)
	v.SetDefault("recent_limit", 3)
	v.SetDefault("roster_file", "")

	v.SetDefault("checkin_limit", 5)
	v.SetDefault("checkin_window", "10s")

	v.SetDefault("broker.url", "tcp://localhost:1883")
	v.SetDefault("broker.username", "")
	v.SetDefault("broker.password", "")
	v.SetDefault("broker.client_id_prefix", "assembly-attendance-web-")
	v.SetDefault("broker.topic", "rfid/card")
	v.SetDefault("broker.ack_topic", "")
	v.SetDefault("broker.card_field", "cardUID")
	v.SetDefault("broker.qos", 0)
	v.SetDefault("broker.reconnect_period", "5s")
	v.SetDefault("broker.connect_timeout", "10s")
	v.SetDefault("broker.event_buffer", 64)
}

// Load reads config/config.<CONFIG_ENV>.yaml and applies ATTENDANCE_*
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Info().Str("module", "config").Msg("loaded .env")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("broker", cfg.Broker.URL).
		Str("topic", cfg.Broker.Topic).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.QuorumThreshold <= 0 || c.QuorumThreshold > 1 {
		errs = append(errs, fmt.Errorf("quorum_threshold %v must be in (0, 1]", c.QuorumThreshold))
	}
	if c.RecentLimit <= 0 {
		errs = append(errs, errors.New("recent_limit must be positive"))
	}
	if c.Broker.URL == "" {
		errs = append(errs, errors.New("broker.url is required"))
	}
	if c.Broker.Topic == "" {
		errs = append(errs, errors.New("broker.topic is required"))
	}
	if c.Broker.CardField == "" {
		errs = append(errs, errors.New("broker.card_field is required"))
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		errs = append(errs, fmt.Errorf("broker.qos %d must be 0, 1 or 2", c.Broker.QoS))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
