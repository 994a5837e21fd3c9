package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	localStackImage = "localstack/localstack:latest"
	minioImage      = "minio/minio:RELEASE.2024-01-16T16-07-38Z"
)

// MinioEndpoint describes a running MinIO container.
type MinioEndpoint struct {
	Endpoint  string
	AccessKey string
	SecretKey string
}

// SetupMinio starts a MinIO container for the duration of the test.
// The test is skipped in short mode.
func SetupMinio(t *testing.T) MinioEndpoint {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcminio.Run(ctx, minioImage,
		tcminio.WithUsername("blobxfer"),
		tcminio.WithPassword("blobxfer-secret"),
	)
	if err != nil {
		t.Fatalf("Failed to start MinIO container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MinIO container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get MinIO endpoint: %v", err)
	}

	return MinioEndpoint{
		Endpoint:  endpoint,
		AccessKey: container.Username,
		SecretKey: container.Password,
	}
}

// SetupLocalStack starts a LocalStack container and returns an S3 client
// configured for it. The test is skipped in short mode.
func SetupLocalStack(t *testing.T) *s3.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx, localStackImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
			})),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})
}
