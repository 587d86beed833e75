// Package configs contains the system configurations.
package configs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const defaultSweepInterval = time.Hour

type configData struct {
	ServerPort     int32  `json:"port"`
	DatabaseDSN    string `json:"database_dsn"`
	DatabaseDriver string `json:"database_driver"`
	PrivateKeyFile string `json:"private_key_file"`
	SweepInterval  string `json:"sweep_interval"`
}

// Config holds the system configuration.
type Config interface {
	ServerPort() int32
	DatabaseDSN() string
	DatabaseDriver() string
	PrivateKeyFile() string
	PrivateKey() rsa.PrivateKey
	SweepInterval() time.Duration
}

type defaultConfig struct {
	data          *configData
	privateKey    *rsa.PrivateKey
	sweepInterval time.Duration
}

func (c *defaultConfig) ServerPort() int32 {
	return c.data.ServerPort
}

func (c *defaultConfig) DatabaseDSN() string {
	return c.data.DatabaseDSN
}

func (c *defaultConfig) DatabaseDriver() string {
	return c.data.DatabaseDriver
}

func (c *defaultConfig) PrivateKeyFile() string {
	return c.data.PrivateKeyFile
}

func (c *defaultConfig) PrivateKey() rsa.PrivateKey {
	return *c.privateKey
}

func (c *defaultConfig) SweepInterval() time.Duration {
	return c.sweepInterval
}

func (c *defaultConfig) loadPrivateKey(configPath string) error {
	path := c.PrivateKeyFile()
	if _, err := os.Stat(c.PrivateKeyFile()); os.IsNotExist(err) {
		path = fmt.Sprintf("%s/%s", configPath, path)
	}
	pemFile, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	privatePem, _ := pem.Decode(pemFile)
	if privatePem == nil {
		return errors.New("the given private key is not a valid PEM file")
	}
	parsedKey, err := x509.ParsePKCS1PrivateKey(privatePem.Bytes)
	if err != nil {
		return err
	}
	c.privateKey = parsedKey
	return nil
}

// applyEnvOverrides overrides file values with environment variables, loading a
// .env file beforehand if one is present.
func (c *defaultConfig) applyEnvOverrides() {
	_ = godotenv.Load()
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		c.data.DatabaseDSN = dsn
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		c.data.SweepInterval = interval
	}
}

// Load loads the given configuration file.
func Load(configPath string) (Config, error) {
	data := &configData{}
	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("an error occurred while loading config file: %w", err)
	}
	err = json.NewDecoder(configFile).Decode(data)
	if err != nil {
		return nil, fmt.Errorf("an error occurred while parsing config file: %w", err)
	}
	configuration := &defaultConfig{data: data}
	configuration.applyEnvOverrides()
	if configuration.ServerPort() <= 0 {
		return nil, errors.New("the given server port is not valid")
	}
	configuration.sweepInterval = defaultSweepInterval
	if data.SweepInterval != "" {
		interval, err := time.ParseDuration(data.SweepInterval)
		if err != nil {
			return nil, fmt.Errorf("the given sweep interval is not valid: %w", err)
		}
		configuration.sweepInterval = interval
	}
	if configuration.PrivateKeyFile() != "" {
		if err = configuration.loadPrivateKey(configPath); err != nil {
			return nil, err
		}
	}
	return configuration, nil
}

// MustLoad loads the given configuration file and if any error occurs, will panic.
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return config
}
