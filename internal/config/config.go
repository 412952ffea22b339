package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Chain      ChainConfig      `yaml:"chain"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig настройки http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig настройки подключения к БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// RedisConfig holds the cart/receipt store connection settings.
type RedisConfig struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

// ChainConfig configures the purchase recorder. ArtifactPath points at the
// compiled contract artifact (opaque ABI+bytecode JSON). PrivateKey is the
// hex-encoded signer key, taken from the environment only.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url" env-default:"http://localhost:8545"`
	ChainID         int64         `yaml:"chain_id" env-default:"1337"`
	ArtifactPath    string        `yaml:"artifact_path" env-default:"./artifacts/marketplace.json"`
	ContractAddress string        `yaml:"contract_address"`
	PrivateKey      string        `yaml:"-" env:"CHAIN_PRIVATE_KEY"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout" env-default:"90s"`
}

// CheckoutConfig configures the order submitter: where the order service
// lives and how long a single order-creation call may take.
type CheckoutConfig struct {
	OrderServiceURL string        `yaml:"order_service_url" env-default:"http://localhost:8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env-default:"10s"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
