package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kestrelhouse/chorekeep/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible offsite storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	Enabled  bool
	Interval time.Duration

	// Passphrase encrypts the offsite copy. Empty means upload plaintext.
	Passphrase string

	// Retention caps, applied per tag after each scheduled run.
	KeepScheduled int
	KeepManual    int

	S3 S3Config
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager runs scheduled document backups, with an optional encrypted copy
// shipped to S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger

	store  *store.Store
	client s3Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. The S3 client is only constructed
// when bucket and credentials are all configured.
func NewManager(cfg Config, st *store.Store, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		store:    st,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}
	if cfg.Enabled {
		m.status.State = StateIdle
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop. A disabled manager ignores Start.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Run(ctx, store.TagScheduled); err != nil {
					m.logger.Error("scheduled backup", "error", err)
				}
				m.pruneRetention()
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// Run creates a tagged backup immediately and, when configured, ships an
// encrypted copy offsite. Returns the backup name.
func (m *Manager) Run(ctx context.Context, tag string) (string, error) {
	m.setStatus(Status{State: StateRunning, InProgress: true})

	name, err := m.store.CreateBackup(tag)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return "", err
	}

	if m.client != nil {
		if err := m.upload(ctx, name); err != nil {
			// The local backup exists; offsite failure is reported but not fatal.
			m.logger.Error("offsite upload", "name", name, "error", err)
			m.setStatus(Status{State: StateError, Error: err.Error()})
			return name, nil
		}
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now, LastName: name})
	return name, nil
}

func (m *Manager) upload(ctx context.Context, name string) error {
	src := filepath.Join(m.store.Dir(), name)
	key := name

	if m.cfg.Passphrase != "" {
		salt, err := GenerateSalt()
		if err != nil {
			return err
		}
		enc := filepath.Join(os.TempDir(), name+".enc")
		defer os.Remove(enc)
		if err := EncryptFile(src, enc, m.cfg.Passphrase, salt); err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		src = enc
		key = name + ".enc"
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat upload source: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	m.logger.Info("backup uploaded", "key", key, "bytes", stat.Size())
	return nil
}

func (m *Manager) pruneRetention() {
	removed, err := m.store.PruneBackups(map[string]int{
		store.TagScheduled: m.cfg.KeepScheduled,
		store.TagManual:    m.cfg.KeepManual,
	})
	if err != nil {
		m.logger.Warn("prune backups", "error", err)
		return
	}
	if removed > 0 {
		m.logger.Info("backups pruned", "removed", removed)
	}
}

// Restore replaces the storage file with the named local backup and exits
// so the supervisor restarts the process against the restored document.
func (m *Manager) Restore(name string) error {
	src := filepath.Join(m.store.Dir(), name)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("backup not found: %w", err)
	}
	if err := copyFile(src, m.store.Path()); err != nil {
		return fmt.Errorf("replace storage: %w", err)
	}
	m.logger.Info("restore complete, exiting for restart", "name", name)
	os.Exit(0)
	return nil // unreachable
}

// FetchOffsite streams an uploaded backup back from S3.
func (m *Manager) FetchOffsite(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("offsite storage not configured")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, nil
}

// DeleteOffsite removes an uploaded backup from S3.
func (m *Manager) DeleteOffsite(ctx context.Context, key string) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil
	}
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3 object: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
