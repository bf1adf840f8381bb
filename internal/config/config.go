// Package config 读取 config.yml，应用环境变量覆盖，并检查启动必需的配置项。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ngrokdns/internal/dynu"
)

// DefaultFile 是未指定时读取的配置文件。
const DefaultFile = "config.yml"

type Config struct {
	Ngrok     NgrokSettings  `mapstructure:"ngrok_settings" yaml:"NGROK_SETTINGS"`
	Dynu      DynuAPI        `mapstructure:"dynu_api" yaml:"DYNU_API"`
	Discord   DiscordUpdates `mapstructure:"discord_updates" yaml:"DISCORD_UPDATES"`
	Server    ServerConf     `mapstructure:"server" yaml:"SERVER"`
	Readiness ReadinessConf  `mapstructure:"readiness" yaml:"READINESS"`
	Store     StoreConf      `mapstructure:"store" yaml:"STORE"`
	Log       LogConf        `mapstructure:"log" yaml:"LOG"`
	Metrics   MetricsConf    `mapstructure:"metrics" yaml:"METRICS"`
}

type NgrokSettings struct {
	AuthToken        string `mapstructure:"auth_token" yaml:"AUTH_TOKEN"`
	Region           string `mapstructure:"region" yaml:"REGION" validate:"omitempty,oneof=us eu ap au sa jp in"`
	Bin              string `mapstructure:"bin" yaml:"BIN"`
	LogFile          string `mapstructure:"log_file" yaml:"LOG_FILE"`
	APIAddr          string `mapstructure:"api_addr" yaml:"API_ADDR" validate:"omitempty,url"`
	DescriptorSource string `mapstructure:"descriptor_source" yaml:"DESCRIPTOR_SOURCE" validate:"omitempty,oneof=log api"`
}

type DynuAPI struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"ENABLED"`
	ClientID      string `mapstructure:"client_id" yaml:"CLIENT_ID"`
	Secret        string `mapstructure:"secret" yaml:"SECRET"`
	Zone          string `mapstructure:"zone" yaml:"ZONE"`
	NodeName      string `mapstructure:"node_name" yaml:"NODE_NAME"`
	ServiceName   string `mapstructure:"service_name" yaml:"SERVICE_NAME"`
	ServiceTarget string `mapstructure:"service_target" yaml:"SERVICE_TARGET"`
	TTL           int    `mapstructure:"ttl" yaml:"TTL" validate:"omitempty,min=30,max=86400"`
	Priority      int    `mapstructure:"priority" yaml:"PRIORITY" validate:"min=0,max=65535"`
	Weight        int    `mapstructure:"weight" yaml:"WEIGHT" validate:"min=0,max=65535"`
	BaseURL       string `mapstructure:"base_url" yaml:"BASE_URL" validate:"omitempty,url"`
}

type DiscordUpdates struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"ENABLED"`
	BotToken        string `mapstructure:"bot_token" yaml:"BOT_TOKEN"`
	UpdateChannelID string `mapstructure:"update_channel_id" yaml:"UPDATE_CHANNEL_ID" validate:"omitempty,numeric"`
	UpdateMessage   string `mapstructure:"update_message" yaml:"UPDATE_MESSAGE"`
	WebhookURL      string `mapstructure:"webhook_url" yaml:"WEBHOOK_URL" validate:"omitempty,url"`
}

type ServerConf struct {
	Port int `mapstructure:"port" yaml:"PORT" validate:"min=1,max=65535"`
}

type ReadinessConf struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"POLL_INTERVAL"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"TIMEOUT"`
}

// MarshalYAML 把时长写成 "500ms" 形式而不是纳秒数。
func (r ReadinessConf) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"POLL_INTERVAL": r.PollInterval.String(),
		"TIMEOUT":       r.Timeout.String(),
	}, nil
}

type StoreConf struct {
	Driver string `mapstructure:"driver" yaml:"DRIVER" validate:"omitempty,oneof=sqlite mysql none"`
	DSN    string `mapstructure:"dsn" yaml:"DSN"`
}

type LogConf struct {
	File string `mapstructure:"file" yaml:"FILE"`
}

type MetricsConf struct {
	Listen string `mapstructure:"listen" yaml:"LISTEN" validate:"omitempty,hostname_port"`
}

// Default 返回 WriteDefault 写出的默认配置。
func Default() Config {
	return Config{
		Ngrok: NgrokSettings{
			Region:           "us",
			Bin:              "ngrok",
			LogFile:          "ngrok.log",
			APIAddr:          "http://127.0.0.1:4040",
			DescriptorSource: "log",
		},
		Dynu: DynuAPI{
			NodeName:    "mcngrok",
			ServiceName: "_minecraft._tcp",
			TTL:         dynu.DefaultTTL,
			Priority:    10,
			Weight:      5,
			BaseURL:     dynu.DefaultBaseURL,
		},
		Discord: DiscordUpdates{
			UpdateMessage: "New server address: %server_ip%",
		},
		Server:    ServerConf{Port: 25565},
		Readiness: ReadinessConf{PollInterval: 500 * time.Millisecond, Timeout: 30 * time.Second},
		Store:     StoreConf{Driver: "sqlite", DSN: "data/ngrokdns.db"},
	}
}

// envBindings 配置项与覆盖它的环境变量。
var envBindings = map[string]string{
	"ngrok_settings.auth_token": "NGROK_AUTHTOKEN",
	"dynu_api.client_id":        "DYNU_CLIENT_ID",
	"dynu_api.secret":           "DYNU_SECRET",
	"discord_updates.bot_token": "DISCORD_BOT_TOKEN",
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("ngrok_settings.region", d.Ngrok.Region)
	v.SetDefault("ngrok_settings.bin", d.Ngrok.Bin)
	v.SetDefault("ngrok_settings.log_file", d.Ngrok.LogFile)
	v.SetDefault("ngrok_settings.api_addr", d.Ngrok.APIAddr)
	v.SetDefault("ngrok_settings.descriptor_source", d.Ngrok.DescriptorSource)
	v.SetDefault("dynu_api.enabled", false)
	v.SetDefault("dynu_api.node_name", d.Dynu.NodeName)
	v.SetDefault("dynu_api.service_name", d.Dynu.ServiceName)
	v.SetDefault("dynu_api.ttl", d.Dynu.TTL)
	v.SetDefault("dynu_api.priority", d.Dynu.Priority)
	v.SetDefault("dynu_api.weight", d.Dynu.Weight)
	v.SetDefault("dynu_api.base_url", d.Dynu.BaseURL)
	v.SetDefault("discord_updates.enabled", false)
	v.SetDefault("discord_updates.update_message", d.Discord.UpdateMessage)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("readiness.poll_interval", d.Readiness.PollInterval)
	v.SetDefault("readiness.timeout", d.Readiness.Timeout)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.listen", "")
}

// Load 读取 path（文件不存在时只用默认值），应用环境变量覆盖后校验。
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate 校验取值范围和枚举值。
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Check 返回第一个缺失的必需项（*MissingError）。缺少 DNS 凭据不算致命错误。
func (c *Config) Check() error {
	if err := c.CheckTunnel(); err != nil {
		return err
	}
	return c.CheckNotify()
}

// CheckTunnel 要求配置 ngrok authtoken。
func (c *Config) CheckTunnel() error {
	if strings.TrimSpace(c.Ngrok.AuthToken) == "" {
		return &MissingError{Key: "NGROK_SETTINGS.AUTH_TOKEN"}
	}
	return nil
}

// CheckNotify 在启用通知且未配置 webhook 时要求 bot 凭据。
func (c *Config) CheckNotify() error {
	if !c.Discord.Enabled || c.Discord.WebhookURL != "" {
		return nil
	}
	if strings.TrimSpace(c.Discord.BotToken) == "" {
		return &MissingError{Key: "DISCORD_UPDATES.BOT_TOKEN"}
	}
	if strings.TrimSpace(c.Discord.UpdateChannelID) == "" {
		return &MissingError{Key: "DISCORD_UPDATES.UPDATE_CHANNEL_ID"}
	}
	return nil
}

// MissingError 表示缺少必需的配置项。
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s is missing in the config", e.Key)
}

// WriteDefault 在 path 不存在时写入默认配置，返回是否写入了文件。
func WriteDefault(path string) (bool, error) {
	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, err
	}
	return true, nil
}
