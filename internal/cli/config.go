package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/logging"
	"github.com/mesh-intelligence/embedref/internal/paths"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envFileName    = ".env"
	envPrefix      = "EMBEDREF"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyMongoURI      = "mongodb.uri"
	cfgKeyMongoDatabase = "mongodb.database"
	cfgKeyStudents      = "collections.students"
	cfgKeyCourses       = "collections.courses"
	cfgKeyEnrollments   = "collections.enrollments"
	cfgKeyLogFile       = "log.file"
	cfgKeyLogLevel      = "log.level"
	cfgKeyTimeout       = "timeout"

	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "embedref"
	defaultTimeout       = 10 * time.Second
	defaultLogLevel      = "warn"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# embedref configuration

# Storage backend: sqlite or mongodb
backend: sqlite

# Data directory for the sqlite backend (optional; --data-dir overrides)
# data_dir:

mongodb:
  uri: mongodb://localhost:27017
  database: embedref

collections:
  students: students
  courses: courses
  enrollments: enrollments

log:
  # Operations log, JSON lines; relative paths are inside the data directory
  # file: operations.log
  level: warn

# Per-operation timeout
timeout: 10s
`

// envBoundKeys are the keys environment variables may override. data_dir is
// resolved by the paths package so that the config file wins over
// EMBEDREF_DATA_DIR.
var envBoundKeys = []string{
	cfgKeyBackend,
	cfgKeyMongoURI,
	cfgKeyMongoDatabase,
	cfgKeyStudents,
	cfgKeyCourses,
	cfgKeyEnrollments,
	cfgKeyLogFile,
	cfgKeyLogLevel,
	cfgKeyTimeout,
}

// settings is the resolved configuration of one invocation.
type settings struct {
	ConfigDir string
	Store     types.Config
	LogFile   string
	LogLevel  string
	Timeout   time.Duration
}

// loadSettings resolves directories, reads config.yaml, applies environment
// overrides and flags, and validates the store configuration.
func loadSettings(f rootFlags) (settings, error) {
	// A .env in the working directory may set EMBEDREF_CONFIG_DIR, so it is
	// read before anything is resolved.
	if err := loadDotEnv(envFileName); err != nil {
		return settings{}, err
	}

	configFlag, dataFlag := f.configDir, f.dataDir
	if f.userDirs {
		var err error
		if configFlag == "" {
			if configFlag, err = paths.UserConfigDir(); err != nil {
				return settings{}, fmt.Errorf("resolve user config dir: %w", err)
			}
		}
		if dataFlag == "" {
			if dataFlag, err = paths.UserDataDir(); err != nil {
				return settings{}, fmt.Errorf("resolve user data dir: %w", err)
			}
		}
	}

	configDir, err := paths.ResolveConfigDir(configFlag)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := loadDotEnv(filepath.Join(configDir, envFileName)); err != nil {
		return settings{}, err
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	dataDir, err := paths.ResolveDataDir(dataFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	logFile, err := paths.ResolveLogFile(f.logFile, v.GetString(cfgKeyLogFile), dataDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve log file: %w", err)
	}

	backend := v.GetString(cfgKeyBackend)
	if f.backend != "" {
		backend = f.backend
	}

	s := settings{
		ConfigDir: configDir,
		Store: types.Config{
			Backend: backend,
			DataDir: dataDir,
			MongoDB: types.MongoConfig{
				URI:      v.GetString(cfgKeyMongoURI),
				Database: v.GetString(cfgKeyMongoDatabase),
			},
			Collections: types.CollectionNames{
				Students:    v.GetString(cfgKeyStudents),
				Courses:     v.GetString(cfgKeyCourses),
				Enrollments: v.GetString(cfgKeyEnrollments),
			},
		},
		LogFile:  logFile,
		LogLevel: v.GetString(cfgKeyLogLevel),
		Timeout:  v.GetDuration(cfgKeyTimeout),
	}
	if err := s.Store.Validate(); err != nil {
		return settings{}, fmt.Errorf("config %s: %w", filepath.Join(configDir, configFileExt), err)
	}
	return s, nil
}

// loadDotEnv sets variables from a .env file without overriding ones already
// set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	defaults := types.DefaultCollectionNames()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyMongoURI, defaultMongoURI)
	v.SetDefault(cfgKeyMongoDatabase, defaultMongoDatabase)
	v.SetDefault(cfgKeyStudents, defaults.Students)
	v.SetDefault(cfgKeyCourses, defaults.Courses)
	v.SetDefault(cfgKeyEnrollments, defaults.Enrollments)
	v.SetDefault(cfgKeyLogFile, "")
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyTimeout, defaultTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envBoundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// newLogger builds the invocation's logger from the settings.
func newLogger(s settings, verbose bool, console io.Writer) (*zap.Logger, func() error, error) {
	logger, closeFn, err := logging.New(logging.Options{
		Level:   s.LogLevel,
		Verbose: verbose,
		File:    s.LogFile,
		Console: console,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return logger, closeFn, nil
}
