//go:build integration

package s3_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	awsSDK "github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3store "github.com/filedock/filedock/pkg/objectstore/s3"
)

// setupBucket creates a test bucket on a Localstack/MinIO endpoint.
//
// Prerequisites:
//   - An S3-compatible endpoint (default http://localhost:4566, override
//     with S3_TEST_ENDPOINT)
//   - Run with: go test -tags=integration ./test/integration/s3/...
func setupBucket(t *testing.T, bucketName string) (endpoint string, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	endpoint = os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = awsSDK.String(endpoint)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &awsS3.CreateBucketInput{Bucket: awsSDK.String(bucketName)})
	require.NoError(t, err, "is Localstack/MinIO running at %s?", endpoint)

	cleanup = func() {
		list, err := client.ListObjectsV2(ctx, &awsS3.ListObjectsV2Input{Bucket: awsSDK.String(bucketName)})
		if err == nil {
			for _, object := range list.Contents {
				_, _ = client.DeleteObject(ctx, &awsS3.DeleteObjectInput{
					Bucket: awsSDK.String(bucketName),
					Key:    object.Key,
				})
			}
		}
		_, _ = client.DeleteBucket(ctx, &awsS3.DeleteBucketInput{Bucket: awsSDK.String(bucketName)})
	}
	return endpoint, cleanup
}

func newStore(t *testing.T, endpoint, bucket string) *s3store.Store {
	t.Helper()
	store, err := s3store.New(context.Background(), s3store.Config{
		Region:          "us-east-1",
		Bucket:          bucket,
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return store
}

func TestS3ObjectStore_Integration(t *testing.T) {
	ctx := context.Background()
	bucket := fmt.Sprintf("filedock-test-%d", time.Now().UnixNano())
	endpoint, cleanup := setupBucket(t, bucket)
	defer cleanup()

	store := newStore(t, endpoint, bucket)

	t.Run("PresignedUploadAndDownload", func(t *testing.T) {
		key := "f1/report.pdf/v1"
		content := []byte("file body")

		uploadURL, err := store.PresignPut(ctx, key, int64(len(content)))
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uploadURL, "http"))

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
		require.NoError(t, err)
		req.ContentLength = int64(len(content))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Less(t, resp.StatusCode, 300)

		downloadURL, err := store.PresignGet(ctx, key)
		require.NoError(t, err)
		resp, err = http.Get(downloadURL)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := new(bytes.Buffer)
		_, err = got.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, content, got.Bytes())
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		keys := []string{"f2/a/v1", "f2/a/v2", "f2/b/v1", "other/keep/v1"}
		for _, key := range keys {
			uploadURL, err := store.PresignPut(ctx, key, 1)
			require.NoError(t, err)
			req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader([]byte("x")))
			require.NoError(t, err)
			req.ContentLength = 1
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			require.Less(t, resp.StatusCode, 300)
		}

		require.NoError(t, store.DeletePrefix(ctx, "f2/"))

		for _, key := range []string{"f2/a/v1", "f2/a/v2", "f2/b/v1"} {
			downloadURL, err := store.PresignGet(ctx, key)
			require.NoError(t, err)
			resp, err := http.Get(downloadURL)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, "key %s should be gone", key)
		}

		downloadURL, err := store.PresignGet(ctx, "other/keep/v1")
		require.NoError(t, err)
		resp, err := http.Get(downloadURL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("MissingBucketFailsFast", func(t *testing.T) {
		_, err := s3store.New(ctx, s3store.Config{
			Region:          "us-east-1",
			Bucket:          "filedock-does-not-exist",
			Endpoint:        endpoint,
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			UsePathStyle:    true,
		})
		assert.Error(t, err)
	})
}
