package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config mirrors config.yaml; every key can be overridden from the
// environment, e.g. DATABASE_URL or SMTP_HOST.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Smtp     SmtpConfig     `mapstructure:"smtp"`
	Title    TitleConfig    `mapstructure:"title"`
	Site     SiteConfig     `mapstructure:"site"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	SessionSecret string `mapstructure:"sessionsecret"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres or sqlite
	URL      string `mapstructure:"url"`
	LogLevel string `mapstructure:"loglevel"`
}

type SmtpConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	From string `mapstructure:"from"`
}

// Enabled reports whether enough is configured to actually send mail.
func (s SmtpConfig) Enabled() bool {
	return s.Host != "" && s.Port != "" && s.User != "" && s.Pass != "" && s.From != ""
}

type TitleConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"useragent"`
	CacheSize int           `mapstructure:"cachesize"`
	CacheTTL  time.Duration `mapstructure:"cachettl"`
}

type SiteConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.sessionsecret", "secret_key_change_me")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "host=localhost user=postgres password=postgres dbname=hackergrows port=5432 sslmode=disable")
	v.SetDefault("database.loglevel", "warn")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.from", "noreply@hackergrows.com")

	v.SetDefault("title.timeout", 2*time.Second)
	v.SetDefault("title.useragent", "Hackergrows")
	v.SetDefault("title.cachesize", 500)
	v.SetDefault("title.cachettl", time.Hour)

	v.SetDefault("site.name", "Hackergrows")
	v.SetDefault("site.url", "http://localhost:8080")
}

// Load reads .env (if any), then config.yaml (if any), then the environment.
// path may be empty to search ./config and the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// DATABASE_URL, SMTP_HOST, TITLE_TIMEOUT ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Short names most deployments already set.
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.sessionsecret", "SESSION_SECRET")
	_ = v.BindEnv("site.url", "SITE_URL")
	_ = v.BindEnv("database.loglevel", "GORM_LOG_LEVEL")
	_ = v.BindEnv("title.timeout", "TITLE_TIMEOUT", "TITLE_FETCH_TIMEOUT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
