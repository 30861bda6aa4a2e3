package backup

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kestrelhouse/chorekeep/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestManagerStateLifecycle(t *testing.T) {
	m := NewManager(Config{}, testStore(t), nil, testLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	m2 := NewManager(Config{Enabled: true, Interval: time.Hour}, testStore(t), nil, testLogger())
	if m2.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m2.Status().State, StateIdle)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(Config{Enabled: true, Interval: time.Hour}, testStore(t), cb, testLogger())

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(Config{Enabled: true, Interval: time.Hour}, testStore(t), nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, testStore(t), nil, testLogger())

	m.Start(context.Background()) // no-op for disabled state
	m.Stop()
}

func TestRunCreatesLocalBackup(t *testing.T) {
	st := testStore(t)
	m := NewManager(Config{Enabled: true, Interval: time.Hour}, st, nil, testLogger())

	name, err := m.Run(context.Background(), store.TagManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if name == "" {
		t.Fatal("expected backup name")
	}

	backups, err := st.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("got %d backups, want 1", len(backups))
	}
	if backups[0].Tag != store.TagManual {
		t.Errorf("tag = %q, want %q", backups[0].Tag, store.TagManual)
	}

	status := m.Status()
	if status.State != StateIdle {
		t.Errorf("state = %q, want %q", status.State, StateIdle)
	}
	if status.LastName != name {
		t.Errorf("LastName = %q, want %q", status.LastName, name)
	}
}

func TestRunUploadsOffsite(t *testing.T) {
	st := testStore(t)
	mock := newMockS3()
	m := NewManager(Config{
		Enabled:  true,
		Interval: time.Hour,
		S3:       S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"},
	}, st, nil, testLogger())
	m.client = mock

	name, err := m.Run(context.Background(), store.TagScheduled)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	mock.mu.Lock()
	_, ok := mock.objects[name]
	mock.mu.Unlock()
	if !ok {
		t.Errorf("expected object %q in mock bucket", name)
	}
}

func TestRunUploadsEncrypted(t *testing.T) {
	st := testStore(t)
	mock := newMockS3()
	m := NewManager(Config{
		Enabled:    true,
		Interval:   time.Hour,
		Passphrase: "hunter2hunter2",
		S3:         S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"},
	}, st, nil, testLogger())
	m.client = mock

	name, err := m.Run(context.Background(), store.TagScheduled)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	mock.mu.Lock()
	data, ok := mock.objects[name+".enc"]
	mock.mu.Unlock()
	if !ok {
		t.Fatalf("expected encrypted object %q in mock bucket", name+".enc")
	}
	if strings.Contains(string(data), store.StorageKey) {
		t.Error("uploaded object looks unencrypted")
	}
}
