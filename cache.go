package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/thiremani/oslogopt/compiler"
	"go.uber.org/zap"
)

const (
	OUT_DIR      = "out"
	HASH_FILE    = ".hash"
	SUMMARY_FILE = ".summary"
	LOCK_FILE    = ".lock"

	keepEntries   = 64
	minEntryAge   = 7 * 24 * 60 * 60 // seconds
	shortHashSize = 8
)

// defaultCacheDir returns $OSLOGCACHE, or the platform cache directory.
func defaultCacheDir() string {
	if env := os.Getenv("OSLOGCACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "oslogopt")
		}
		return filepath.Join(homeDir, "AppData", "Local", "oslogopt")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "oslogopt")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "oslogopt")
		}
		return filepath.Join(homeDir, ".cache", "oslogopt")
	}
}

// isHashDir returns true if name is an 8-char hex string (matches shortHash format).
func isHashDir(name string) bool {
	if len(name) != shortHashSize {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

type cacheKey struct {
	short string
	full  string
}

// newCacheKey hashes everything that affects an output: the source, the
// target, the emit mode and the tool version.
func newCacheKey(source []byte, target compiler.Target, emit string) cacheKey {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte{0})
	h.Write([]byte(target.Triple))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(target.WordSize)))
	h.Write([]byte{0})
	h.Write([]byte(emit))
	h.Write([]byte{0})
	h.Write(source)
	full := hex.EncodeToString(h.Sum(nil))
	return cacheKey{short: full[:shortHashSize], full: full}
}

// cachedBuild returns the cached output named name for key, or runs build
// and stores its output and summary. A file lock ensures concurrent processes
// see either a complete entry or build it themselves.
func cachedBuild(cacheDir, name string, key cacheKey, build func() ([]byte, string, error)) (out []byte, summary string, hit bool, err error) {
	outDir := filepath.Join(cacheDir, OUT_DIR)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, "", false, fmt.Errorf("create cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(outDir, LOCK_FILE))
	if err := lock.Lock(); err != nil {
		return nil, "", false, fmt.Errorf("acquire cache lock: %w", err)
	}
	defer lock.Unlock()

	entryDir := filepath.Join(outDir, key.short)
	hashFile := filepath.Join(entryDir, HASH_FILE)
	outPath := filepath.Join(entryDir, name)
	summaryPath := filepath.Join(entryDir, SUMMARY_FILE)

	if stored, err := os.ReadFile(hashFile); err == nil {
		if string(stored) == key.full {
			data, outErr := os.ReadFile(outPath)
			sum, sumErr := os.ReadFile(summaryPath)
			if outErr == nil && sumErr == nil {
				zap.L().Debug("using cached output", zap.String("path", outPath))
				return data, string(sum), true, nil
			}
		}
		// Hash collision or corrupted entry - rebuild
		zap.L().Debug("cache entry mismatch, rebuilding", zap.String("dir", entryDir))
		os.RemoveAll(entryDir)
	}

	cleanupOldEntries(outDir, keepEntries, minEntryAge)

	out, summary, err = build()
	if err != nil {
		return nil, "", false, err
	}
	if err := os.MkdirAll(entryDir, 0755); err != nil {
		return nil, "", false, fmt.Errorf("create cache entry: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return nil, "", false, fmt.Errorf("write cached output: %w", err)
	}
	if err := os.WriteFile(summaryPath, []byte(summary), 0644); err != nil {
		return nil, "", false, fmt.Errorf("write cached summary: %w", err)
	}
	// The hash file is written last and marks the entry complete.
	if err := os.WriteFile(hashFile, []byte(key.full), 0644); err != nil {
		return nil, "", false, fmt.Errorf("write hash file: %w", err)
	}
	return out, summary, false, nil
}

// cleanupOldEntries removes old cache entries.
// Only deletes entries older than minAge AND keeps at least 'keep' most recent.
func cleanupOldEntries(outDir string, keep int, minAge int64) {
	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) <= keep {
		return
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}

	if len(dirs) <= keep {
		return
	}

	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(outDir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				zap.L().Warn("failed to remove old cache entry", zap.String("path", path), zap.Error(err))
			}
		}
	}
}
