package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string `mapstructure:"mode" validate:"oneof=debug release test"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	Secret   string `mapstructure:"secret" validate:"required"`
	LogLevel string `mapstructure:"log_level"`

	Server    ServerConfig    `mapstructure:"server"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Store     StoreConfig     `mapstructure:"store"`
	Directory DirectoryConfig `mapstructure:"directory"`
}

type ServerConfig struct {
	TCPAddr         string        `mapstructure:"tcp_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type RelayConfig struct {
	MaxFrameSize     int           `mapstructure:"max_frame_size" validate:"min=1024"`
	MaxChatLength    int           `mapstructure:"max_chat_length" validate:"min=1"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" validate:"gt=0"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	AuthTimeout      time.Duration `mapstructure:"auth_timeout" validate:"gt=0"`
	LeaveTimeout     time.Duration `mapstructure:"leave_timeout" validate:"gt=0"`
	SendQueueSize    int           `mapstructure:"send_queue_size" validate:"min=1"`
	SlowPeerGrace    time.Duration `mapstructure:"slow_peer_grace" validate:"gte=0"`
	HistoryOnJoin    int           `mapstructure:"history_on_join" validate:"gte=0"`
	ChatRateLimit    int           `mapstructure:"chat_rate_limit" validate:"gte=0"`
	ChatRateInterval time.Duration `mapstructure:"chat_rate_interval" validate:"gte=0"`
}

type StoreConfig struct {
	// Path of the Badger directory; empty keeps data in memory.
	Path             string        `mapstructure:"path"`
	PersistQueueSize int           `mapstructure:"persist_queue_size" validate:"min=1"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout" validate:"gt=0"`
}

// DirectoryConfig seeds meetings and class rosters at startup.
type DirectoryConfig struct {
	Meetings []MeetingSeed `mapstructure:"meetings" validate:"dive"`
	Classes  []ClassSeed   `mapstructure:"classes" validate:"dive"`
}

// ClassSeed is a list entry rather than a map key because viper folds map
// keys to lower case.
type ClassSeed struct {
	ID      string   `mapstructure:"id" validate:"required"`
	Members []string `mapstructure:"members"`
}

type MeetingSeed struct {
	ID      string `mapstructure:"id" validate:"required"`
	ClassID string `mapstructure:"class_id" validate:"required"`
	Title   string `mapstructure:"title"`
	Status  string `mapstructure:"status" validate:"omitempty,oneof=active ended"`
}

func (d DirectoryConfig) DomainMeetings() []domain.Meeting {
	out := make([]domain.Meeting, 0, len(d.Meetings))
	for _, m := range d.Meetings {
		out = append(out, domain.Meeting{
			ID:      domain.MeetingID(m.ID),
			ClassID: domain.ClassID(m.ClassID),
			Title:   m.Title,
			Status:  domain.MeetingStatus(m.Status),
		})
	}
	return out
}

func (d DirectoryConfig) Rosters() map[domain.ClassID][]domain.UserID {
	out := make(map[domain.ClassID][]domain.UserID, len(d.Classes))
	for _, c := range d.Classes {
		cid := domain.ClassID(c.ID)
		for _, u := range c.Members {
			out[cid] = append(out[cid], domain.UserID(u))
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.tcp_addr", ":5001")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("relay.max_frame_size", 16<<20)
	v.SetDefault("relay.max_chat_length", 1000)
	v.SetDefault("relay.handshake_timeout", "10s")
	v.SetDefault("relay.read_timeout", "90s")
	v.SetDefault("relay.write_timeout", "5s")
	v.SetDefault("relay.auth_timeout", "5s")
	v.SetDefault("relay.leave_timeout", "2s")
	v.SetDefault("relay.send_queue_size", 256)
	v.SetDefault("relay.slow_peer_grace", "0s")
	v.SetDefault("relay.history_on_join", 50)
	v.SetDefault("relay.chat_rate_limit", 20)
	v.SetDefault("relay.chat_rate_interval", "10s")

	v.SetDefault("store.path", "")
	v.SetDefault("store.persist_queue_size", 1024)
	v.SetDefault("store.persist_timeout", "5s")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) and applies
// MEETRELAY_* environment overrides.
func Load() (*Config, error) {
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
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MEETRELAY")
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
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("tcp", cfg.Server.TCPAddr).Msg("config ready")
	return &cfg, nil
}
