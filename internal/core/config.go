package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of the
// gridline server components.
type Config struct {
	// Hostname or IP address on which the server will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`

	Logging struct {
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"logging"`

	Hall struct {
		// Port on which the HALL server will listen.
		Port int `mapstructure:"port"`
		// Maximum number of payload bytes one transport message may carry.
		MaxPayloadBytes int `mapstructure:"max_payload_bytes"`
		// Byte budget for one serialized record, used to size recording chunks.
		RecordSizeBytes int `mapstructure:"record_size_bytes"`
	} `mapstructure:"hall"`

	Database struct {
		// Engine to use for persistence. Options: sqlite, postgres.
		Engine string `mapstructure:"engine"`
		// Database filename, used by the sqlite engine.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres for gridline.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Cache struct {
		// Backend for the server's frame cache. Options: memory, redis.
		Backend string `mapstructure:"backend"`
		// Address of the redis instance, used by the redis backend.
		RedisAddress string `mapstructure:"redis_address"`
	} `mapstructure:"cache"`

	Web struct {
		// HTTP endpoint port for the status/admin API. 0 disables it.
		HTTPPort int `mapstructure:"http_port"`
	} `mapstructure:"web"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log decoded messages to stdout.
		MessageLoggingEnabled bool `mapstructure:"message_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`

	configDir string
}

const envVarPrefix = "GRIDLINE"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &notFoundErr) {
			fmt.Printf("error reading config file: no config file in path %s\n", configPath)
		} else {
			fmt.Printf("error reading config file: %v\n", err)
		}
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s\n", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{configDir: configPath}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v\n", err)
		os.Exit(1)
	}
	return config
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a Postgres connection URL generated from the provided
// config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// QualifiedPath returns filename resolved relative to the config directory so
// that relative paths in the config file behave predictably regardless of the
// working directory.
func (c *Config) QualifiedPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.configDir, filename)
}

// HallAddress returns the full listen address for the hall server.
func (c *Config) HallAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Hall.Port)
}

// MaxRecordsPerMessage derives how many serialized records fit in one
// transport message from the payload and per-record byte budgets.
func (c *Config) MaxRecordsPerMessage() int {
	if c.Hall.RecordSizeBytes <= 0 || c.Hall.MaxPayloadBytes <= 0 {
		return 1
	}
	n := c.Hall.MaxPayloadBytes / c.Hall.RecordSizeBytes
	if n < 1 {
		return 1
	}
	return n
}
