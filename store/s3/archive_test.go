package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive_PutWritesXMLObject(t *testing.T) {
	putter := &fakePutter{}
	archive, err := NewWithClient(putter, "audit", 0, nil)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}

	if !archive.Put(context.Background(), "envelopes/E1/webhooks/2024-01-01T10_00_00Z.xml", []byte("<x/>")) {
		t.Fatalf("expected put success")
	}
	if len(putter.inputs) != 1 {
		t.Fatalf("expected one put, got %d", len(putter.inputs))
	}
	input := putter.inputs[0]
	if aws.ToString(input.Bucket) != "audit" || aws.ToString(input.Key) != "envelopes/E1/webhooks/2024-01-01T10_00_00Z.xml" {
		t.Fatalf("unexpected target %s/%s", aws.ToString(input.Bucket), aws.ToString(input.Key))
	}
	if aws.ToString(input.ContentType) != "application/xml" {
		t.Fatalf("unexpected content type %q", aws.ToString(input.ContentType))
	}
	if string(putter.bodies[0]) != "<x/>" {
		t.Fatalf("unexpected body %q", putter.bodies[0])
	}
}

func TestArchive_PutFailureReturnsFalse(t *testing.T) {
	archive, err := NewWithClient(&fakePutter{err: errors.New("access denied")}, "audit", 0, nil)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	if archive.Put(context.Background(), "k.xml", []byte("<x/>")) {
		t.Fatalf("expected put failure")
	}
	if archive.Put(context.Background(), "  ", []byte("<x/>")) {
		t.Fatalf("expected empty key rejected")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatalf("expected bucket required error")
	}
	if _, err := NewWithClient(nil, "audit", 0, nil); err == nil {
		t.Fatalf("expected client required error")
	}
}

func TestNew_PropagatesConfigLoadError(t *testing.T) {
	original := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = original })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	if _, err := New(context.Background(), Config{Bucket: "audit"}, nil); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestNew_PathStyleEndpoint(t *testing.T) {
	var mu sync.Mutex
	var method, path, contentType string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	archive, err := New(context.Background(), Config{
		Bucket:          "audit",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	}, nil)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	if !archive.Put(context.Background(), "envelopes/E1/webhooks/t.xml", []byte("<x/>")) {
		t.Fatalf("expected put success against endpoint")
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || path != "/audit/envelopes/E1/webhooks/t.xml" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
	if contentType != "application/xml" || !bytes.Contains(body, []byte("<x/>")) {
		t.Fatalf("unexpected upload content-type=%q body=%q", contentType, body)
	}
}
