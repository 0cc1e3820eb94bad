package app

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Blackdeer1524/HeapDB/src/cfg"
)

type envVars struct {
	Environment string `split_words:"true"`

	DataDir    string `split_words:"true"`
	SchemaPath string `split_words:"true"`

	PoolSize      int `split_words:"true"`
	LockTimeoutMS int `split_words:"true"`
}

// loadEnv pulls configuration straight from the environment (plus an
// optional .env file in the working directory) when no config path was
// given on the command line.
func loadEnv() (cfg.Config, error) {
	_ = godotenv.Load()

	var env envVars
	if err := envconfig.Process("HEAPDB", &env); err != nil {
		return cfg.Config{}, err
	}

	config := cfg.Config{
		Environment:   cfg.Environment(env.Environment),
		DataDir:       env.DataDir,
		SchemaPath:    env.SchemaPath,
		PoolSize:      env.PoolSize,
		LockTimeoutMS: env.LockTimeoutMS,
	}

	if config.Environment == "" {
		config.Environment = cfg.DefaultEnv
	}
	if config.DataDir == "" {
		config.DataDir = "."
	}
	if config.PoolSize == 0 {
		config.PoolSize = 50
	}
	if config.LockTimeoutMS == 0 {
		config.LockTimeoutMS = 300
	}

	if err := config.Environment.Validate(); err != nil {
		return cfg.Config{}, err
	}

	return config, nil
}
