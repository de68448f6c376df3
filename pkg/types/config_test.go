package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	names := DefaultCollectionNames()
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data", Collections: names},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data", Collections: names},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data", Collections: names},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: "", Collections: names},
			wantErr: nil,
		},
		{
			name:    "mongodb without uri returns ErrMongoURIEmpty",
			config:  Config{Backend: "mongodb", MongoDB: MongoConfig{Database: "school"}, Collections: names},
			wantErr: ErrMongoURIEmpty,
		},
		{
			name:    "mongodb without database returns ErrMongoDatabaseEmpty",
			config:  Config{Backend: "mongodb", MongoDB: MongoConfig{URI: "mongodb://localhost:27017"}, Collections: names},
			wantErr: ErrMongoDatabaseEmpty,
		},
		{
			name: "valid mongodb config",
			config: Config{
				Backend:     "mongodb",
				MongoDB:     MongoConfig{URI: "mongodb://localhost:27017", Database: "school"},
				Collections: names,
			},
			wantErr: nil,
		},
		{
			name:    "empty collection name returns ErrCollectionNameEmpty",
			config:  Config{Backend: "sqlite", Collections: CollectionNames{Students: "s", Courses: "", Enrollments: "e"}},
			wantErr: ErrCollectionNameEmpty,
		},
		{
			name:    "shared collection name returns ErrCollectionNameReused",
			config:  Config{Backend: "sqlite", Collections: CollectionNames{Students: "docs", Courses: "docs", Enrollments: "e"}},
			wantErr: ErrCollectionNameReused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
