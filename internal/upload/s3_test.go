package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	body    []byte
	deletes []*s3.DeleteObjectInput
	putErr  error
}

func (f *fakeObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresign struct {
	key string
}

func (f *fakePresign) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.key = aws.ToString(in.Key)
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + f.key + "?sig=1"}, nil
}

func newFakeS3Store(objects *fakeObjects, presign *fakePresign) *S3Store {
	return &S3Store{objects: objects, presign: presign, bucket: "avatars", prefix: "pp/", maxBytes: 1 << 20}
}

func TestS3Store_Save(t *testing.T) {
	objects := &fakeObjects{}
	store := newFakeS3Store(objects, &fakePresign{})

	name, err := store.Save(context.Background(), fileHeader(t, "me.png", pngBytes))
	require.NoError(t, err)
	require.Len(t, objects.puts, 1)

	put := objects.puts[0]
	assert.Equal(t, "avatars", aws.ToString(put.Bucket))
	assert.Equal(t, "pp/"+name, aws.ToString(put.Key))
	assert.Equal(t, "image/png", aws.ToString(put.ContentType))
	assert.Equal(t, int64(len(pngBytes)), aws.ToInt64(put.ContentLength))
	assert.Equal(t, pngBytes, objects.body)
}

func TestS3Store_SaveErrors(t *testing.T) {
	objects := &fakeObjects{putErr: errors.New("bucket gone")}
	store := newFakeS3Store(objects, &fakePresign{})

	_, err := store.Save(context.Background(), fileHeader(t, "me.png", pngBytes))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")

	_, err = store.Save(context.Background(), fileHeader(t, "me.pdf", []byte("%PDF-1.4")))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestS3Store_RemoveAndPresign(t *testing.T) {
	objects := &fakeObjects{}
	presign := &fakePresign{}
	store := newFakeS3Store(objects, presign)
	ctx := context.Background()

	require.NoError(t, store.Remove(ctx, "abc.png"))
	require.Len(t, objects.deletes, 1)
	assert.Equal(t, "pp/abc.png", aws.ToString(objects.deletes[0].Key))

	url, err := store.PresignGet(ctx, "abc.png")
	require.NoError(t, err)
	assert.Equal(t, "pp/abc.png", presign.key)
	assert.True(t, strings.HasPrefix(url, "https://bucket.example/pp/abc.png"))

	_, err = store.PresignGet(ctx, "../secret")
	assert.ErrorIs(t, err, ErrBadName)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), S3Options{Bucket: "b", Region: "us-east-1"}, 1024)
	assert.Error(t, err)
}

func TestNewS3Store_Builds(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:    "avatars",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Prefix:    "pp/",
	}, 1024)
	require.NoError(t, err)
	assert.Equal(t, "pp/x.png", store.key("x.png"))
}
