package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Backup tags. The tag records why a backup exists and scopes retention.
const (
	TagRecovery     = "recovery"
	TagRemoval      = "removal"
	TagReset        = "reset"
	TagPreMigration = "pre-migration"
	TagManual       = "manual"
	TagScheduled    = "scheduled"
)

// Tags lists every known backup tag.
var Tags = []string{TagRecovery, TagRemoval, TagReset, TagPreMigration, TagManual, TagScheduled}

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	Name      string    `json:"name"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	Size      string    `json:"size"`
	Age       string    `json:"age"`
}

const backupTimeLayout = "2006-01-02_15-04-05"

func backupName(t time.Time, tag string) string {
	return fmt.Sprintf("%s_%s_%s", StorageKey, t.UTC().Format(backupTimeLayout), tag)
}

// CreateBackup snapshots the current document to a tagged backup file and
// returns its name.
func (s *Store) CreateBackup(tag string) (string, error) {
	data, err := s.encode()
	if err != nil {
		return "", err
	}
	return s.writeBackup(data, tag)
}

// backupRawLocked writes already-encoded storage bytes (used before
// migration rewrites them). Caller must not hold the store lock.
func (s *Store) backupRawLocked(raw []byte, tag string) error {
	_, err := s.writeBackup(raw, tag)
	return err
}

func (s *Store) writeBackup(data []byte, tag string) (string, error) {
	name := backupName(time.Now(), tag)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", name, err)
	}
	s.logger.Info("backup created", "name", name, "tag", tag, "size", humanize.Bytes(uint64(len(data))))
	return name, nil
}

// ListBackups returns every backup file, newest first.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	now := time.Now()
	var out []BackupInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		createdAt, tag, ok := parseBackupName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Name:      e.Name(),
			Tag:       tag,
			CreatedAt: createdAt,
			SizeBytes: info.Size(),
			Size:      humanize.Bytes(uint64(info.Size())),
			Age:       FormatBackupAge(now.Sub(createdAt).Hours()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PruneBackups enforces the per-tag retention policy: keep the newest keep
// files per tag, 0 meaning delete all. Returns the number removed. Failures
// on individual files are logged and skipped; pruning is best-effort.
func (s *Store) PruneBackups(keep map[string]int) (int, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	byTag := make(map[string][]BackupInfo)
	for _, b := range backups {
		byTag[b.Tag] = append(byTag[b.Tag], b) // already newest first
	}

	removed := 0
	for tag, limit := range keep {
		files := byTag[tag]
		if len(files) <= limit {
			continue
		}
		for _, b := range files[limit:] {
			if err := os.Remove(filepath.Join(s.dir, b.Name)); err != nil {
				s.logger.Warn("prune backup", "name", b.Name, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// parseBackupName recovers the timestamp and tag from
// "<key>_<YYYY-MM-DD>_<HH-MM-SS>_<tag>".
func parseBackupName(name string) (time.Time, string, bool) {
	prefix := StorageKey + "_"
	if !strings.HasPrefix(name, prefix) {
		return time.Time{}, "", false
	}
	rest := name[len(prefix):]
	// Timestamp occupies the first two underscore-separated fields.
	if len(rest) < len(backupTimeLayout)+2 {
		return time.Time{}, "", false
	}
	stamp := rest[:len(backupTimeLayout)]
	tag := rest[len(backupTimeLayout)+1:]
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil || tag == "" {
		return time.Time{}, "", false
	}
	return t.UTC(), tag, true
}

// FormatBackupAge renders an age in hours at the coarsest sensible tier:
// minutes under an hour, hours under a day, days under a week, weeks beyond.
func FormatBackupAge(ageHours float64) string {
	if ageHours < 0 {
		ageHours = 0
	}
	switch {
	case ageHours < 1:
		return plural(int(ageHours*60), "minute") + " ago"
	case ageHours < 24:
		return plural(int(ageHours), "hour") + " ago"
	case ageHours < 24*7:
		return plural(int(ageHours/24), "day") + " ago"
	default:
		return plural(int(ageHours/(24*7)), "week") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
