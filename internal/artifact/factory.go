package artifact

import (
	"context"
	"fmt"
	"os"
)

// Open selects a Store implementation from environment variables.
//
//	ANOMALYCORE_ARTIFACT_DRIVER:  fs|s3|memory (default fs)
//	ANOMALYCORE_ARTIFACT_FS_ROOT: directory root when driver=fs (default ./artifacts)
//	(S3 variables documented in s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("ANOMALYCORE_ARTIFACT_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFS(os.Getenv("ANOMALYCORE_ARTIFACT_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown artifact driver %s", driver)
	}
}
