package avatars

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type recordingS3 struct {
	input *s3.PutObjectInput
	body  []byte
}

func (r *recordingS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.input = in
	r.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestSniff(t *testing.T) {
	if ct, err := Sniff(pngHeader); err != nil || ct != "image/png" {
		t.Fatalf("expected image/png, got %q (%v)", ct, err)
	}
	if _, err := Sniff([]byte("hello")); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := Sniff(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	big := append(append([]byte{}, pngHeader...), make([]byte, MaxBytes)...)
	if _, err := Sniff(big); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestDataURLStore(t *testing.T) {
	url, err := DataURLStore{}.Put(context.Background(), "u1", pngHeader)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestS3StorePut(t *testing.T) {
	client := &recordingS3{}
	store := NewS3Store(client, "avatars-bucket", "https://cdn.example.com/")
	store.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := store.Put(context.Background(), "u1", pngHeader)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "https://cdn.example.com/avatars/u1/1700000000.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if aws.ToString(client.input.Bucket) != "avatars-bucket" || aws.ToString(client.input.ContentType) != "image/png" {
		t.Fatalf("unexpected input %+v", client.input)
	}
	if !bytes.Equal(client.body, pngHeader) {
		t.Fatal("body mismatch")
	}
}

func TestNewWithoutBucket(t *testing.T) {
	store, err := New(context.Background(), S3Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := store.(DataURLStore); !ok {
		t.Fatalf("expected DataURLStore, got %T", store)
	}
}
