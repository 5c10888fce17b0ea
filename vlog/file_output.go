package vlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// RotatingFile is an io.Writer that rotates to a gzip-compressed backup
// once the current file crosses MaxSize bytes, keeping at most MaxBackups
// compressed backups. Modeled on advanced/logging/file_output.go's
// FileOutput, but actually performs the compression that config's
// MaxSize/MaxBackups/MaxAge fields imply rather than storing rotated
// files verbatim.
type RotatingFile struct {
	mu          sync.Mutex
	path        string
	maxSize     int64
	maxBackups  int
	maxAge      time.Duration
	file        *os.File
	currentSize int64
}

// RotatingFileConfig configures a RotatingFile.
type RotatingFileConfig struct {
	Path       string
	MaxSize    int64 // bytes; default 10MiB
	MaxBackups int   // default 5
	MaxAge     time.Duration
}

// NewRotatingFile opens (creating if necessary) the log file at the
// configured path.
func NewRotatingFile(cfg RotatingFileConfig) (*RotatingFile, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}

	rf := &RotatingFile{
		path:       cfg.Path,
		maxSize:    cfg.MaxSize,
		maxBackups: cfg.MaxBackups,
		maxAge:     cfg.MaxAge,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	if dir := filepath.Dir(rf.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	rf.file = f
	rf.currentSize = info.Size()
	return nil
}

// Write appends data, rotating first if it would cross MaxSize.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.currentSize+int64(len(p)) > rf.maxSize {
		if err := rf.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := rf.file.Write(p)
	rf.currentSize += int64(n)
	return n, err
}

func (rf *RotatingFile) rotate() error {
	if rf.file != nil {
		rf.file.Close()
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05")
	backupPath := fmt.Sprintf("%s.%s.gz", rf.path, timestamp)
	if err := gzipFile(rf.path, backupPath); err != nil {
		return err
	}
	if err := os.Remove(rf.path); err != nil {
		return fmt.Errorf("remove rotated log file: %w", err)
	}
	if err := rf.cleanupOldBackups(); err != nil {
		fmt.Fprintf(os.Stderr, "vlog: cleanup old backups: %v\n", err)
	}
	return rf.open()
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source log file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create compressed backup: %w", err)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return fmt.Errorf("compress log backup: %w", err)
	}
	return gw.Close()
}

func (rf *RotatingFile) cleanupOldBackups() error {
	dir := filepath.Dir(rf.path)
	base := filepath.Base(rf.path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read log directory: %w", err)
	}

	var backups []os.DirEntry
	cutoff := time.Now().Add(-rf.maxAge)
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) <= len(base) || e.Name()[:len(base)] != base {
			continue
		}
		if rf.maxAge > 0 {
			if info, err := e.Info(); err == nil && info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
					return err
				}
				continue
			}
		}
		backups = append(backups, e)
	}

	sort.Slice(backups, func(i, j int) bool {
		ii, _ := backups[i].Info()
		jj, _ := backups[j].Info()
		return ii.ModTime().Before(jj.ModTime())
	})
	for len(backups) > rf.maxBackups {
		if err := os.Remove(filepath.Join(dir, backups[0].Name())); err != nil {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

// Close flushes and closes the underlying file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.file.Close()
}
