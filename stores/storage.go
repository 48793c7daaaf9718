package stores

import (
	"context"
	"fmt"

	"canvas-editor/config"
	"canvas-editor/core"
	"canvas-editor/stores/aws"
	"canvas-editor/stores/filesystem"
	"canvas-editor/stores/memory"
	"canvas-editor/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the design store selected by cfg.StorageType. The memory
// and sqlite backends also implement core.SnapshotStore.
func GetStore(ctx context.Context, cfg *config.Config) (core.DesignStore, error) {
	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	var (
		store core.DesignStore
		err   error
	)
	switch cfg.StorageType {
	case "filesystem":
		storageField["basePath"] = cfg.LocalStoragePath
		store, err = filesystem.NewStore(cfg.LocalStoragePath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		if cfg.S3BucketName == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage")
		}
		storageField["bucketName"] = cfg.S3BucketName
		store, err = aws.NewStore(ctx, cfg.S3BucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		return nil, err
	}

	_, snapshots := store.(core.SnapshotStore)
	storageField["snapshots"] = snapshots
	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
