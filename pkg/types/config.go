// Configuration for attaching a Store to a backend.
package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend     string          `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string          `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	MongoDB     MongoConfig     `json:"mongodb" yaml:"mongodb" mapstructure:"mongodb"`
	Collections CollectionNames `json:"collections" yaml:"collections" mapstructure:"collections"`
}

// MongoConfig names the MongoDB deployment and database to use when
// Backend is BackendMongoDB.
type MongoConfig struct {
	URI      string `json:"uri" yaml:"uri" mapstructure:"uri"`
	Database string `json:"database" yaml:"database" mapstructure:"database"`
}

// Supported backend names.
const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrMongoURIEmpty        = errors.New("mongodb uri must not be empty")
	ErrMongoDatabaseEmpty   = errors.New("mongodb database must not be empty")
	ErrCollectionNameEmpty  = errors.New("collection name must not be empty")
	ErrCollectionNameReused = errors.New("collection names must be distinct")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:  true,
	BackendMongoDB: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendMongoDB {
		if c.MongoDB.URI == "" {
			return ErrMongoURIEmpty
		}
		if c.MongoDB.Database == "" {
			return ErrMongoDatabaseEmpty
		}
	}
	return c.Collections.Validate()
}
