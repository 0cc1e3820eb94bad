package cfg

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"

	DefaultEnv = EnvDev
)

type Environment string

func (e Environment) Validate() error {
	if e != EnvDev && e != EnvProd {
		return errors.New("environment must be either dev or prod")
	}

	return nil
}

type Config struct {
	Environment Environment `mapstructure:"ENVIRONMENT"`

	DataDir    string `mapstructure:"DATA_DIR"`
	SchemaPath string `mapstructure:"SCHEMA_PATH"`

	PoolSize      int `mapstructure:"POOL_SIZE"`
	LockTimeoutMS int `mapstructure:"LOCK_TIMEOUT_MS"`
}

func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.SetEnvPrefix("HEAPDB")
	viper.AutomaticEnv()

	viper.SetOptions(viper.ExperimentalBindStruct())

	viper.SetDefault("ENVIRONMENT", DefaultEnv)
	viper.SetDefault("DATA_DIR", ".")
	viper.SetDefault("SCHEMA_PATH", "")
	viper.SetDefault("POOL_SIZE", 50)
	viper.SetDefault("LOCK_TIMEOUT_MS", 300)

	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("config file not found, using env vars")
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("viper unmarshaling config: %w", err)
	}

	err = cfg.Environment.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("environment validation: %w", err)
	}

	return cfg, nil
}
