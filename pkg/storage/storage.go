package storage

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotFound is returned by Load when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// Store persists opaque snapshot payloads by session key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// Supported drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverBolt     = "bolt"
	DriverSQL      = "sql"
	DriverS3       = "s3"
	DriverDynamoDB = "dynamodb"
)

// Drivers lists every driver accepted by Open.
var Drivers = []string{DriverMemory, DriverFile, DriverBolt, DriverSQL, DriverS3, DriverDynamoDB}

// Options selects and configures a Store
type Options struct {
	Driver string
	// Path is the directory for the file driver and the database file for bolt.
	Path string
	// SQLDriver is the database/sql driver name, "postgres" or "sqlite".
	SQLDriver string
	DSN       string
	Bucket    string
	Prefix    string
	Table     string
	Region    string
}

// Open creates the Store described by opts
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(opts.Path)
	case DriverBolt:
		return NewBoltStore(opts.Path)
	case DriverSQL:
		return OpenSQLStore(opts.SQLDriver, opts.DSN)
	case DriverS3:
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return NewS3Store(s3.NewFromConfig(cfg), opts.Bucket, opts.Prefix), nil
	case DriverDynamoDB:
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return NewDynamoDBStore(dynamodb.NewFromConfig(cfg), opts.Table), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
