// Package backup implements the Backup Supervisor (C4): scheduled,
// retention-bounded database snapshots with compression, grounded on the
// teacher's ticker-based cleanup loop (draft_cleanup.go) generalized from
// a delete sweep to a copy-and-compress snapshot.
package backup

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"invoice-pipeline/internal/apperr"
)

const compressThresholdDefaultMB = 5

// Options configures one Supervisor instance (§4.C4, §6 backup group).
type Options struct {
	Prefix               string
	BackupPath           string
	IntervalHours        int
	RetentionDays        int
	CompressThresholdMB  int
	OffsiteUploadEnabled bool

	// LiveDBPath returns the current live database file path. A func
	// rather than a fixed string so the supervisor always snapshots the
	// path database.Init() actually opened, even if that changes across
	// test fixtures.
	LiveDBPath func() string

	// OffsiteUpload is an optional collaborator hook invoked after a
	// successful snapshot when OffsiteUploadEnabled is set. Supplemented
	// from SPEC_FULL.md's "optional offsite upload hook" line; nil is a
	// valid no-op.
	OffsiteUpload func(snapshotPath string) error
}

func (o *Options) normalize() {
	if o.Prefix == "" {
		o.Prefix = "invoices"
	}
	if o.IntervalHours <= 0 {
		o.IntervalHours = 24
	}
	if o.RetentionDays <= 0 {
		o.RetentionDays = 30
	}
	if o.CompressThresholdMB <= 0 {
		o.CompressThresholdMB = compressThresholdDefaultMB
	}
	if o.BackupPath == "" {
		o.BackupPath = "./backups"
	}
}

// Snapshot describes one file under BackupPath matching the naming scheme.
type Snapshot struct {
	Name         string
	Path         string
	SizeBytes    int64
	Compressed   bool
	LastModified time.Time
}

// Stats is the §4.C4 `stats` operation's payload.
type Stats struct {
	Count           int
	TotalSizeBytes  int64
	OldestName      string
	NewestName      string
	RetentionDays   int
	IntervalHours   int
	BackupPath      string
}

// RestoreResult is the §4.C4 `restore` operation's payload.
type RestoreResult struct {
	RestoredFrom       string
	PreRestoreSnapshot string
}

// Supervisor owns the periodic snapshot and retention-sweep timers.
type Supervisor struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSupervisor(opts Options, log *zap.Logger) *Supervisor {
	opts.normalize()
	return &Supervisor{opts: opts, log: log}
}

// Start runs one snapshot immediately, then schedules periodic snapshots
// and a daily retention sweep, per §4.C4 "Cadence".
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if err := os.MkdirAll(s.opts.BackupPath, 0755); err != nil {
		s.log.Error("backup: failed creating backup directory", zap.Error(err))
	}

	s.runSnapshotOnce()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Duration(s.opts.IntervalHours) * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.runSnapshotOnce()
			}
		}
	}()
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := s.Cleanup(); err != nil {
					s.log.Error("backup: retention sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop cancels both timers. Idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Supervisor) runSnapshotOnce() {
	if _, err := s.CreateSnapshot(); err != nil {
		s.log.Error("backup: snapshot failed", zap.Error(err))
	}
}

// CreateSnapshot implements §4.C4 "Snapshot".
func (s *Supervisor) CreateSnapshot() (Snapshot, error) {
	livePath := ""
	if s.opts.LiveDBPath != nil {
		livePath = s.opts.LiveDBPath()
	}
	if strings.TrimSpace(livePath) == "" {
		return Snapshot{}, apperr.New(apperr.NotFound, "live database path not configured")
	}
	info, err := os.Stat(livePath)
	if err != nil {
		return Snapshot{}, apperr.Wrap(apperr.NotFound, "live database file missing", err)
	}

	ts := timestampName(time.Now())
	name := fmt.Sprintf("%s-%s.db", s.opts.Prefix, ts)
	dest := filepath.Join(s.opts.BackupPath, name)

	if err := copyFile(livePath, dest); err != nil {
		return Snapshot{}, apperr.Wrap(apperr.ProcessingError, "failed copying live database", err)
	}

	thresholdBytes := int64(s.opts.CompressThresholdMB) * 1024 * 1024
	compressed := false
	if info.Size() > thresholdBytes {
		gzPath := dest + ".gz"
		if err := gzipFile(dest, gzPath); err != nil {
			s.log.Warn("backup: compression failed, keeping uncompressed copy", zap.Error(err))
		} else {
			_ = os.Remove(dest)
			dest = gzPath
			name += ".gz"
			compressed = true
		}
	}

	finalInfo, err := os.Stat(dest)
	size := info.Size()
	if err == nil {
		size = finalInfo.Size()
	}

	snap := Snapshot{Name: name, Path: dest, SizeBytes: size, Compressed: compressed, LastModified: time.Now()}

	if s.opts.OffsiteUploadEnabled && s.opts.OffsiteUpload != nil {
		if err := s.opts.OffsiteUpload(dest); err != nil {
			s.log.Warn("backup: offsite upload failed", zap.Error(err))
		}
	}

	s.log.Info("backup: snapshot created", zap.String("name", name), zap.Int64("size_bytes", size), zap.Bool("compressed", compressed))
	return snap, nil
}

// List implements §4.C4 `list`.
func (s *Supervisor) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.opts.BackupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.ProcessingError, "failed listing backup directory", err)
	}

	var out []Snapshot
	for _, e := range entries {
		if e.IsDir() || !s.matchesPrefix(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Snapshot{
			Name:         e.Name(),
			Path:         filepath.Join(s.opts.BackupPath, e.Name()),
			SizeBytes:    info.Size(),
			Compressed:   strings.HasSuffix(e.Name(), ".gz"),
			LastModified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (s *Supervisor) matchesPrefix(name string) bool {
	if !strings.HasPrefix(name, s.opts.Prefix+"-") {
		return false
	}
	return strings.HasSuffix(name, ".db") || strings.HasSuffix(name, ".db.gz")
}

// Cleanup implements §4.C4 `cleanup` (the retention sweep), deleting files
// past RetentionDays. Returns the number of files removed.
func (s *Supervisor) Cleanup() (int, error) {
	snapshots, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -s.opts.RetentionDays)
	removed := 0
	for _, snap := range snapshots {
		if snap.LastModified.Before(cutoff) {
			if err := os.Remove(snap.Path); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.log.Info("backup: retention sweep removed snapshots", zap.Int("count", removed))
	}
	return removed, nil
}

// Stats implements §4.C4 `stats`.
func (s *Supervisor) Stats() (Stats, error) {
	snapshots, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{RetentionDays: s.opts.RetentionDays, IntervalHours: s.opts.IntervalHours, BackupPath: s.opts.BackupPath}
	if len(snapshots) == 0 {
		return stats, nil
	}
	stats.Count = len(snapshots)
	stats.NewestName = snapshots[0].Name
	stats.OldestName = snapshots[len(snapshots)-1].Name
	for _, snap := range snapshots {
		stats.TotalSizeBytes += snap.SizeBytes
	}
	return stats, nil
}

// Restore implements §4.C4 `restore(name)`.
func (s *Supervisor) Restore(name string) (RestoreResult, error) {
	livePath := ""
	if s.opts.LiveDBPath != nil {
		livePath = s.opts.LiveDBPath()
	}
	if strings.TrimSpace(livePath) == "" {
		return RestoreResult{}, apperr.New(apperr.NotFound, "live database path not configured")
	}

	src := filepath.Join(s.opts.BackupPath, name)
	if _, err := os.Stat(src); err != nil {
		return RestoreResult{}, apperr.Wrap(apperr.NotFound, "backup snapshot not found", err)
	}

	var preRestoreName string
	if _, err := os.Stat(livePath); err == nil {
		ts := timestampName(time.Now())
		preRestoreName = fmt.Sprintf("%s-pre-restore-%s.db", s.opts.Prefix, ts)
		preDest := filepath.Join(s.opts.BackupPath, preRestoreName)
		if err := copyFile(livePath, preDest); err != nil {
			return RestoreResult{}, apperr.Wrap(apperr.ProcessingError, "failed creating pre-restore snapshot", err)
		}
	}

	restoreSource := src
	if strings.HasSuffix(src, ".gz") {
		tmp, err := decompressToTemp(src)
		if err != nil {
			return RestoreResult{}, apperr.Wrap(apperr.ProcessingError, "failed decompressing backup", err)
		}
		defer os.Remove(tmp)
		restoreSource = tmp
	}

	if err := copyFile(restoreSource, livePath); err != nil {
		return RestoreResult{}, apperr.Wrap(apperr.ProcessingError, "failed restoring database", err)
	}

	s.log.Info("backup: restore completed", zap.String("from", name), zap.String("pre_restore_snapshot", preRestoreName))
	return RestoreResult{RestoredFrom: name, PreRestoreSnapshot: preRestoreName}, nil
}

func timestampName(t time.Time) string {
	iso := t.UTC().Format(time.RFC3339Nano)
	replacer := strings.NewReplacer(":", "-", ".", "-")
	return replacer.Replace(iso)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func gzipFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func decompressToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return "", err
	}
	defer gr.Close()

	tmp, err := os.CreateTemp("", "backup-restore-*.db")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, gr); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
