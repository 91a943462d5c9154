package config

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/filedock/filedock/pkg/objectstore"
	objectsMemory "github.com/filedock/filedock/pkg/objectstore/memory"
	objectsS3 "github.com/filedock/filedock/pkg/objectstore/s3"
	"github.com/filedock/filedock/pkg/table"
	tableBadger "github.com/filedock/filedock/pkg/table/badger"
	tableMemory "github.com/filedock/filedock/pkg/table/memory"
)

// CreateTableStore creates the metadata table backend selected by cfg.Type,
// decoding the matching type-specific map into the backend's own
// configuration struct.
func CreateTableStore(ctx context.Context, cfg *TableConfig) (table.Store, error) {
	switch cfg.Type {
	case "memory":
		return tableMemory.New(), nil
	case "badger":
		return createBadgerTableStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown table store type: %q", cfg.Type)
	}
}

func createBadgerTableStore(ctx context.Context, options map[string]any) (table.Store, error) {
	type badgerOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeCfg badgerOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger table config: %w", err)
	}

	store, err := tableBadger.New(ctx, tableBadger.Config{
		Path:     storeCfg.Path,
		InMemory: storeCfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger table store: %w", err)
	}
	return store, nil
}

// BadgerGCInterval returns the configured value-log GC interval for the
// badger table backend.
func BadgerGCInterval(cfg *TableConfig) (time.Duration, error) {
	raw, _ := cfg.Badger["gc_interval"].(string)
	if raw == "" {
		return 5 * time.Minute, nil
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid table.badger.gc_interval %q: %w", raw, err)
	}
	return interval, nil
}

// CreateObjectStore creates the file content backend selected by cfg.Type.
func CreateObjectStore(ctx context.Context, cfg *ObjectsConfig) (objectstore.Store, error) {
	switch cfg.Type {
	case "memory":
		return objectsMemory.New(), nil
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown object store type: %q", cfg.Type)
	}
}

func createS3ObjectStore(ctx context.Context, options map[string]any) (objectstore.Store, error) {
	type s3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		UsePathStyle    bool   `mapstructure:"use_path_style"`
	}

	var storeCfg s3Options
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 object store config: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 object store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 object store: region is required")
	}

	store, err := objectsS3.New(ctx, objectsS3.Config{
		Region:          storeCfg.Region,
		Bucket:          storeCfg.Bucket,
		KeyPrefix:       storeCfg.KeyPrefix,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
		UsePathStyle:    storeCfg.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 object store: %w", err)
	}
	return store, nil
}
