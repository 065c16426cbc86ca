package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-onboarding/pkg/auth"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ImageStore_Store(t *testing.T) {
	putter := &fakePutter{}
	store := newS3ImageStore(putter, S3Config{Bucket: "avatars", PublicBaseURL: "https://cdn.example.com/"})
	accountID := uuid.New()

	url, err := store.Store(context.Background(), accountID, auth.ImageUpload{
		Filename:    "me.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)

	require.NotNil(t, putter.input)
	key := aws.ToString(putter.input.Key)
	assert.True(t, strings.HasPrefix(key, "profiles/"+accountID.String()+"/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "avatars", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, int64(9), aws.ToInt64(putter.input.ContentLength))
	assert.Equal(t, []byte("png-bytes"), putter.body)
	assert.Equal(t, "https://cdn.example.com/"+key, url)
}

func TestS3ImageStore_UniqueKeys(t *testing.T) {
	putter := &fakePutter{}
	store := newS3ImageStore(putter, S3Config{Bucket: "avatars"})
	id := uuid.New()

	first, err := store.Store(context.Background(), id, auth.ImageUpload{ContentType: "image/gif", Data: []byte("a")})
	require.NoError(t, err)
	second, err := store.Store(context.Background(), id, auth.ImageUpload{ContentType: "image/gif", Data: []byte("a")})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestS3ImageStore_PutError(t *testing.T) {
	store := newS3ImageStore(&fakePutter{err: errors.New("access denied")}, S3Config{Bucket: "avatars"})

	_, err := store.Store(context.Background(), uuid.New(), auth.ImageUpload{ContentType: "image/jpeg", Data: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{
			name: "explicit base url",
			cfg:  S3Config{Bucket: "avatars", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com",
		},
		{
			name: "custom endpoint",
			cfg:  S3Config{Bucket: "avatars", Endpoint: "http://localhost:9000"},
			want: "http://localhost:9000/avatars",
		},
		{
			name: "aws",
			cfg:  S3Config{Bucket: "avatars", Region: "eu-west-1"},
			want: "https://avatars.s3.eu-west-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestNewS3ImageStore(t *testing.T) {
	_, err := NewS3ImageStore(context.Background(), S3Config{})
	assert.Error(t, err)

	store, err := NewS3ImageStore(context.Background(), S3Config{
		Bucket:          "avatars",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/avatars", store.baseURL)
}
