package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/amorozov/userhub/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 10 * 24 * time.Hour
	defaultS3Region     = "us-east-1"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Address on which the userhub service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// JWT signing secrets. The access and refresh keys must differ,
	// otherwise a refresh token would pass as an access token
	AccessSecret  string
	RefreshSecret string

	// Token lifetimes
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Directory uploaded files are staged in before the remote upload.
	// Empty means the system temp dir
	StagingDir string

	// S3 compatible object storage for user assets
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
		ListenAddr:  defaultListenAddr,
		AccessTTL:   defaultAccessTTL,
		RefreshTTL:  defaultRefreshTTL,
		S3Region:    defaultS3Region,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if d, err := time.ParseDuration(value); err == nil {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
		"ACCESS_SECRET_KEY":  setString(&c.AccessSecret),
		"REFRESH_SECRET_KEY": setString(&c.RefreshSecret),
		"ACCESS_TOKEN_TTL":   setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_TTL":  setDuration(&c.RefreshTTL),
		"STAGING_DIR":        setString(&c.StagingDir),
		"S3_ENDPOINT":        setString(&c.S3Endpoint),
		"S3_REGION":          setString(&c.S3Region),
		"S3_BUCKET":          setString(&c.S3Bucket),
		"S3_ACCESS_KEY":      setString(&c.S3AccessKey),
		"S3_SECRET_KEY":      setString(&c.S3SecretKey),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("userhub", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "Access token signing secret")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "Refresh token signing secret")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "Refresh token lifetime")
	fs.StringVar(&c.StagingDir, "staging-dir", c.StagingDir, "Directory for staged uploads")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "S3 compatible storage endpoint")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "S3 region")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket for user assets")
	fs.StringVar(&c.S3AccessKey, "s3-access-key", c.S3AccessKey, "S3 access key")
	fs.StringVar(&c.S3SecretKey, "s3-secret-key", c.S3SecretKey, "S3 secret key")

	return fs.Parse(args)
}
