package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "memory",
			cfg: Config{
				Driver: DriverMemory,
			},
		},
		{
			name: "unsupported driver",
			cfg: Config{
				Driver: "gcs",
			},
			wantErr: true,
		},
		{
			name: "s3 missing bucket",
			cfg: Config{
				Driver:   DriverS3,
				S3Client: &fakeS3Client{},
			},
			wantErr: true,
		},
		{
			name: "s3 missing client",
			cfg: Config{
				Driver: DriverS3,
				Bucket: "gateway-calldata",
			},
			wantErr: true,
		},
		{
			name: "default driver is s3",
			cfg: Config{
				Bucket:   "gateway-calldata",
				S3Client: &fakeS3Client{},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store, err := New(tc.cfg)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if store == nil {
				t.Fatalf("New returned nil store")
			}
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := New(Config{
		Driver: DriverMemory,
		Prefix: "devnet/",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := []byte(`{"token":"0x01","amount":"0x64"}`)
	if err := store.Put(context.Background(), "/deposits/7/calldata.json", payload, "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := store.Exists(context.Background(), "deposits/7/calldata.json")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatalf("Exists returned false for persisted key")
	}

	obj, err := store.Get(context.Background(), "deposits/7/calldata.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got, want := obj.Key, "deposits/7/calldata.json"; got != want {
		t.Fatalf("key mismatch: got %q want %q", got, want)
	}
	if !bytes.Equal(obj.Data, payload) {
		t.Fatalf("payload mismatch: got %q want %q", string(obj.Data), string(payload))
	}
	if got, want := obj.ContentType, "application/json"; got != want {
		t.Fatalf("content type mismatch: got %q want %q", got, want)
	}
	if obj.ETag == "" {
		t.Fatalf("expected non-empty etag")
	}

	// Returned slice must be a defensive copy.
	obj.Data[0] = 'X'
	reload, err := store.Get(context.Background(), "deposits/7/calldata.json")
	if err != nil {
		t.Fatalf("Get reload: %v", err)
	}
	if reload.Data[0] != '{' {
		t.Fatalf("expected stored payload to remain unchanged")
	}

	_, err = store.Get(context.Background(), "deposits/8/calldata.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store, err := New(Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []string{"", "   ", "\x00bad", "\nnewline"}
	for _, key := range tests {
		key := key
		t.Run(strings.ReplaceAll(key, "\x00", "nul"), func(t *testing.T) {
			t.Parallel()
			if err := store.Put(context.Background(), key, []byte("x"), ""); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("Put(%q): expected ErrInvalidKey, got %v", key, err)
			}
			_, err := store.Get(context.Background(), key)
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("Get(%q): expected ErrInvalidKey, got %v", key, err)
			}
		})
	}
}

func TestS3StorePutGetExists(t *testing.T) {
	t.Parallel()

	client := &fakeS3Client{}
	store, err := New(Config{
		Driver:     DriverS3,
		Bucket:     "gateway-calldata",
		Prefix:     "mainnet",
		MaxGetSize: 4 << 10,
		S3Client:   client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	client.putFn = func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if got, want := aws.ToString(in.Bucket), "gateway-calldata"; got != want {
			t.Fatalf("bucket mismatch: got %q want %q", got, want)
		}
		if got, want := aws.ToString(in.Key), "mainnet/deposits/12/calldata.bin"; got != want {
			t.Fatalf("key mismatch: got %q want %q", got, want)
		}
		if got, want := aws.ToString(in.ContentType), "application/octet-stream"; got != want {
			t.Fatalf("content type mismatch: got %q want %q", got, want)
		}
		return &s3.PutObjectOutput{}, nil
	}
	client.getFn = func(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		if got, want := aws.ToString(in.Key), "mainnet/deposits/12/calldata.bin"; got != want {
			t.Fatalf("get key mismatch: got %q want %q", got, want)
		}
		return &s3.GetObjectOutput{
			Body:        io.NopCloser(strings.NewReader("calldata")),
			ContentType: aws.String("application/octet-stream"),
			ETag:        aws.String(`"abc123"`),
		}, nil
	}
	client.headFn = func(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		if got, want := aws.ToString(in.Key), "mainnet/deposits/12/calldata.bin"; got != want {
			t.Fatalf("head key mismatch: got %q want %q", got, want)
		}
		return &s3.HeadObjectOutput{}, nil
	}

	if err := store.Put(context.Background(), "deposits/12/calldata.bin", []byte("calldata"), "application/octet-stream"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	obj, err := store.Get(context.Background(), "deposits/12/calldata.bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got, want := string(obj.Data), "calldata"; got != want {
		t.Fatalf("data mismatch: got %q want %q", got, want)
	}
	if got, want := obj.ETag, "abc123"; got != want {
		t.Fatalf("etag mismatch: got %q want %q", got, want)
	}

	ok, err := store.Exists(context.Background(), "deposits/12/calldata.bin")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatalf("Exists returned false for present object")
	}
}

func TestS3StoreMapsNotFound(t *testing.T) {
	t.Parallel()

	client := &fakeS3Client{
		getFn: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, fakeAPIError{code: "NoSuchKey", msg: "missing"}
		},
		headFn: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, fakeAPIError{code: "NotFound", msg: "missing"}
		},
	}

	store, err := New(Config{
		Driver:   DriverS3,
		Bucket:   "gateway-calldata",
		S3Client: client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = store.Get(context.Background(), "deposits/99/calldata.bin")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}

	ok, err := store.Exists(context.Background(), "deposits/99/calldata.bin")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatalf("Exists returned true for missing key")
	}
}

func TestS3StoreMaxGetSize(t *testing.T) {
	t.Parallel()

	client := &fakeS3Client{
		getFn: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("this payload is too large")),
			}, nil
		},
	}

	store, err := New(Config{
		Driver:     DriverS3,
		Bucket:     "gateway-calldata",
		MaxGetSize: 8,
		S3Client:   client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = store.Get(context.Background(), "deposits/1/calldata.bin")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

type fakeS3Client struct {
	putFn  func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	getFn  func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	headFn func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

func (f *fakeS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putFn == nil {
		return &s3.PutObjectOutput{}, nil
	}
	return f.putFn(ctx, in, optFns...)
}

func (f *fakeS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getFn == nil {
		return nil, fakeAPIError{code: "NoSuchKey", msg: "missing"}
	}
	return f.getFn(ctx, in, optFns...)
}

func (f *fakeS3Client) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headFn == nil {
		return nil, fakeAPIError{code: "NotFound", msg: "missing"}
	}
	return f.headFn(ctx, in, optFns...)
}

type fakeAPIError struct {
	code string
	msg  string
}

func (e fakeAPIError) Error() string { return e.code + ": " + e.msg }

func (e fakeAPIError) ErrorCode() string { return e.code }

func (e fakeAPIError) ErrorMessage() string { return e.msg }

func (e fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }
