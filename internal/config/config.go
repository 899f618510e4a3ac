package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Telegram   `yaml:"telegram"`
	Monitor    `yaml:"monitor"`
	Fetcher    `yaml:"fetcher"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	HTTPServer `yaml:"http_server"`
}

type Telegram struct {
	Token    string  `yaml:"token" env:"BOT_TOKEN" env-required:"true"`
	AdminIDs []int64 `yaml:"admin_ids" env:"ADMIN_IDS" env-required:"true"`
}

type Monitor struct {
	// * Интервал по умолчанию; реальное значение хранится в таблице settings.
	CheckInterval    time.Duration `yaml:"check_interval" env-default:"30m"`
	DefaultThreshold int           `yaml:"default_threshold" env-default:"500"`
}

type Fetcher struct {
	Cookie    string        `yaml:"cookie" env:"YA_COOKIE" env-required:"true"`
	Timeout   time.Duration `yaml:"timeout" env-default:"30s"`
	UserAgent string        `yaml:"user_agent" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr       string        `yaml:"addr" env-default:"redis:6379"`
	Db         int           `yaml:"db" env-default:"1"`
	DefaultTTL time.Duration `yaml:"default_ttl" env-default:"1m"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

func MustLoad(configPath string) *Config {
	// проверка существования файла
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", configPath)
	}

	return &cfg
}

// IsAdmin проверяет, входит ли пользователь в список доверенных.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
