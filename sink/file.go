package sink

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// FileOptions configures a File device.
type FileOptions struct {
	Directory     string
	Name          string // Active file name without extension
	Extension     string // Without dot, may be empty
	MaxSizeKB     int64  // Rotate when the active file would exceed this, 0 = never
	MaxTotalMB    int64  // Delete oldest archives beyond this, 0 = unlimited
	MinDiskFreeMB int64  // Space kept free on the volume, 0 = no reserve
}

// File is a Device appending to a log file, rotating it by size. Available
// reports the room left above the disk free reserve, refreshed on Flush and
// after rotation, so a nearly full volume makes non-blocking sinks drop.
type File struct {
	mu   sync.Mutex
	opts FileOptions
	file *os.File
	size int64

	free      atomic.Int64 // Bytes available to us, -1 when unbounded
	rotations atomic.Uint64
	deletions atomic.Uint64
}

// NewFile opens or creates the active file in opts.Directory.
func NewFile(opts FileOptions) (*File, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("sink: file name cannot be empty")
	}
	if opts.Directory == "" {
		opts.Directory = "."
	}
	if err := os.MkdirAll(opts.Directory, 0755); err != nil {
		return nil, fmt.Errorf("sink: failed to create log directory '%s': %w", opts.Directory, err)
	}

	f := &File{opts: opts}
	file, err := f.open()
	if err != nil {
		return nil, err
	}
	f.file = file
	if info, err := file.Stat(); err == nil {
		f.size = info.Size()
	}
	f.refreshFree()
	return f, nil
}

// Path returns the active file path.
func (f *File) Path() string {
	name := f.opts.Name
	if f.opts.Extension != "" {
		name += "." + f.opts.Extension
	}
	return filepath.Join(f.opts.Directory, name)
}

func (f *File) open() (*os.File, error) {
	path := f.Path()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to open/create log file '%s': %w", path, err)
	}
	return file, nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, os.ErrClosed
	}
	if max := f.opts.MaxSizeKB * 1024; max > 0 && f.size > 0 && f.size+int64(len(p)) > max {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := f.file.Write(p)
	f.size += int64(n)
	if free := f.free.Load(); free > 0 {
		f.free.Store(max(free-int64(n), 0))
	}
	return n, err
}

// TryWrite writes the part of p that fits above the disk reserve.
func (f *File) TryWrite(p []byte) int {
	n := min(len(p), f.Available())
	if n == 0 {
		return 0
	}
	written, _ := f.Write(p[:n])
	return written
}

// Available returns the bytes that may be written before the disk reserve is
// reached.
func (f *File) Available() int {
	free := f.free.Load()
	if free < 0 || free > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(free)
}

// Flush syncs the file and refreshes the free space estimate.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return os.ErrClosed
	}
	err := f.file.Sync()
	f.refreshFree()
	return err
}

// Close syncs and closes the active file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	syncErr := f.file.Sync()
	closeErr := f.file.Close()
	f.file = nil
	forgetDevice(f)
	if closeErr != nil {
		return closeErr
	}
	return syncErr
}

func (f *File) Rotations() uint64 { return f.rotations.Load() }

func (f *File) Deletions() uint64 { return f.deletions.Load() }

// rotate implements the rename-on-rotate strategy: the active file is renamed
// with a timestamp and a fresh one is created at the static path.
func (f *File) rotate() error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("sink: failed to close log file before rotation: %w", err)
	}
	f.file = nil

	archivePath := filepath.Join(f.opts.Directory, f.archiveName(time.Now()))
	if err := os.Rename(f.Path(), archivePath); err != nil {
		return fmt.Errorf("sink: failed to rename log file to '%s': %w", archivePath, err)
	}

	file, err := f.open()
	if err != nil {
		return err
	}
	f.file = file
	f.size = 0
	f.rotations.Add(1)

	if f.opts.MaxTotalMB > 0 {
		f.cleanOldLogs(f.opts.MaxTotalMB * 1024 * 1024)
	}
	f.refreshFree()
	return nil
}

// archiveName creates a timestamped filename for a rotated file
func (f *File) archiveName(ts time.Time) string {
	stamp := fmt.Sprintf("%s_%s_%d", f.opts.Name, ts.Format("060102_150405"), ts.Nanosecond())
	if f.opts.Extension != "" {
		return stamp + "." + f.opts.Extension
	}
	return stamp
}

// cleanOldLogs removes the oldest archives until the directory total fits
// within limit. The active file is never removed.
func (f *File) cleanOldLogs(limit int64) {
	entries, err := os.ReadDir(f.opts.Directory)
	if err != nil {
		return
	}

	type logFileMeta struct {
		name    string
		modTime time.Time
		size    int64
	}
	active := filepath.Base(f.Path())
	prefix := f.opts.Name + "_"
	var logs []logFileMeta
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		if name == active {
			total += info.Size()
			continue
		}
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		if f.opts.Extension != "" && filepath.Ext(name) != "."+f.opts.Extension {
			continue
		}
		total += info.Size()
		logs = append(logs, logFileMeta{name: name, modTime: info.ModTime(), size: info.Size()})
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].modTime.Before(logs[j].modTime) })

	for _, log := range logs {
		if total <= limit {
			break
		}
		if err := os.Remove(filepath.Join(f.opts.Directory, log.name)); err != nil {
			continue
		}
		total -= log.size
		f.deletions.Add(1)
	}
}

func (f *File) refreshFree() {
	if f.opts.MinDiskFreeMB <= 0 {
		f.free.Store(-1)
		return
	}
	free, err := diskFree(f.opts.Directory)
	if err != nil {
		f.free.Store(-1)
		return
	}
	f.free.Store(max(free-f.opts.MinDiskFreeMB*1024*1024, 0))
}
