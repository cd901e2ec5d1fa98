package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath_UnderHome(t *testing.T) {
	// Given: an isolated home directory
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	// When: resolving the default log path
	path := DefaultLogPath()

	// Then: it lives in ~/.ds/logs/ds.log
	assert.Equal(t, filepath.Join(home, ".ds", "logs", "ds.log"), path)
	assert.Equal(t, filepath.Dir(path), DefaultLogDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.False(t, cfg.WriteToStderr, "regular runs keep stderr for user output")
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()

	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.WriteToStderr)
}

func TestSetup_WritesJSONLines(t *testing.T) {
	// Given: a log file in a nested, not yet existing directory
	logPath := filepath.Join(t.TempDir(), "nested", "ds.log")

	// When: logging at debug level
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3})
	require.NoError(t, err)
	logger.Debug("sql_generated", slog.String("generator", "native"))
	logger.Info("search_complete", slog.Int("results", 3))
	cleanup()

	// Then: both records are persisted as JSON
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"sql_generated"`)
	assert.Contains(t, lines[0], `"generator":"native"`)
	assert.Contains(t, lines[1], `"results":3`)
}

func TestSetup_LevelFiltersRecords(t *testing.T) {
	// Given: a warn-level logger
	logPath := filepath.Join(t.TempDir(), "ds.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	require.NoError(t, err)

	// When: logging below and at the threshold
	logger.Info("search_started")
	logger.Warn("generator_fallback")
	cleanup()

	// Then: only the warning is written
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "search_started")
	assert.Contains(t, string(content), "generator_fallback")
}

func TestSetup_NoFilePathUsesStderr(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, logger)
}

func TestSetupServeMode_FileOnly(t *testing.T) {
	// Given: a previous default logger to restore
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	logPath := filepath.Join(t.TempDir(), "serve.log")

	// When: serve mode is initialized even with stderr requested
	cleanup, err := SetupServeMode(Config{Level: "debug", FilePath: logPath, WriteToStderr: true})
	require.NoError(t, err)
	slog.Debug("tool_called", slog.String("tool", "file_search"))
	cleanup()

	// Then: the file holds both the init record and the debug record
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "serve_logging_initialized")
	assert.Contains(t, string(content), "tool_called")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.input))
		})
	}
}

func TestFindLogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	t.Run("explicit missing", func(t *testing.T) {
		_, err := FindLogFile(filepath.Join(home, "missing.log"))
		assert.Error(t, err)
	})

	t.Run("explicit present", func(t *testing.T) {
		p := filepath.Join(home, "custom.log")
		require.NoError(t, os.WriteFile(p, []byte("{}\n"), 0o644))

		got, err := FindLogFile(p)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("default missing", func(t *testing.T) {
		_, err := FindLogFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--debug")
	})

	t.Run("default present", func(t *testing.T) {
		require.NoError(t, EnsureLogDir(""))
		require.NoError(t, os.WriteFile(DefaultLogPath(), []byte("{}\n"), 0o644))

		got, err := FindLogFile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultLogPath(), got)
	})
}

func TestRotatedFiles_OldestFirst(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "ds.log")
	for _, suffix := range []string{".1", ".3"} {
		require.NoError(t, os.WriteFile(base+suffix, nil, 0o644))
	}

	assert.Equal(t, []string{base + ".3", base + ".1"}, RotatedFiles(base, 5))
	assert.Empty(t, RotatedFiles(base, 0))
}

// ============================================================================
// Writer
// ============================================================================

func TestRotatingWriter_Rotation(t *testing.T) {
	// Given: a writer that rotates on every write
	logPath := filepath.Join(t.TempDir(), "rotate.log")
	w, err := NewRotatingWriter(logPath, 0, 3)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	data := []byte(strings.Repeat("x", 2048))

	// When: writing twice
	_, err = w.Write(data)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)

	// Then: the active file and one generation exist
	assert.FileExists(t, logPath)
	assert.FileExists(t, logPath+".1")
}

func TestRotatingWriter_MaxFilesLimit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "maxfiles.log")
	w, err := NewRotatingWriter(logPath, 0, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	data := []byte(strings.Repeat("y", 1024))
	for i := 0; i < 5; i++ {
		_, _ = w.Write(data)
	}

	assert.FileExists(t, logPath+".2")
	assert.NoFileExists(t, logPath+".3")
}

func TestRotatingWriter_OversizedRecordNotRotatedAlone(t *testing.T) {
	// Given: a fresh log and a record larger than the limit
	logPath := filepath.Join(t.TempDir(), "ds.log")
	w, err := NewRotatingWriter(logPath, 0, 3)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// When: writing it
	_, err = w.Write([]byte(strings.Repeat("z", 4096)))
	require.NoError(t, err)

	// Then: it lands in the active file without an empty generation
	assert.NoFileExists(t, logPath+".1")
	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())
}

func TestRotatingWriter_KeepsNewestGenerations(t *testing.T) {
	// Given: three writes that each force a rotation
	logPath := filepath.Join(t.TempDir(), "ds.log")
	w, err := NewRotatingWriter(logPath, 0, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	for _, rec := range []string{"first\n", "second\n", "third\n"} {
		_, err := w.Write([]byte(rec))
		require.NoError(t, err)
	}

	// Then: the newest record is active, older ones shift up by one
	for path, want := range map[string]string{
		logPath:        "third\n",
		logPath + ".1": "second\n",
		logPath + ".2": "first\n",
	} {
		content, err := os.ReadFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, string(content), path)
	}
}

func TestRotatingWriter_PrunesStaleGenerations(t *testing.T) {
	// Given: generations left by a larger max_files setting
	logPath := filepath.Join(t.TempDir(), "ds.log")
	for _, suffix := range []string{".1", ".2", ".3", ".4"} {
		require.NoError(t, os.WriteFile(logPath+suffix, []byte("old\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(logPath, []byte("active\n"), 0o644))

	w, err := NewRotatingWriter(logPath, 0, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// When: the next record forces a rotation
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)

	// Then: only max_files generations remain
	assert.FileExists(t, logPath+".1")
	assert.FileExists(t, logPath+".2")
	assert.NoFileExists(t, logPath+".3")
	assert.NoFileExists(t, logPath+".4")
}

func TestRotatingWriter_NoGenerations(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ds.log")
	w, err := NewRotatingWriter(logPath, 0, 0)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, _ = w.Write([]byte("one\n"))
	_, err = w.Write([]byte("two\n"))
	require.NoError(t, err)

	assert.NoFileExists(t, logPath+".1")
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(content))
}

func TestRotatingWriter_SyncAndClose(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sync.log")
	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	w.SetSyncOnWrite(false)

	_, err = w.Write([]byte("test data to sync\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "test data to sync")
	assert.NoError(t, w.Close())
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "append.log")
	require.NoError(t, os.WriteFile(logPath, []byte("first\n"), 0o644))

	w, err := NewRotatingWriter(logPath, 1, 3)
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(content))
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(logPath, 10, 3)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = fmt.Fprintf(w, "{\"id\":%d,\"iter\":%d}\n", id, j)
			}
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 1000, strings.Count(string(content), "\n"))
}

// ============================================================================
// Viewer
// ============================================================================

func TestParseLine(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		entry := parseLine(`{"time":"2026-01-02T10:30:45.123Z","level":"INFO","msg":"search_complete","results":3}`)

		assert.True(t, entry.IsValid)
		assert.Equal(t, "INFO", entry.Level)
		assert.Equal(t, "search_complete", entry.Msg)
		assert.Equal(t, 30, entry.Time.Minute())
		assert.Equal(t, map[string]any{"results": float64(3)}, entry.Attrs)
	})

	t.Run("plain text", func(t *testing.T) {
		entry := parseLine("not json at all")

		assert.False(t, entry.IsValid)
		assert.Equal(t, "not json at all", entry.Raw)
	})
}

func TestViewer_Matches(t *testing.T) {
	warnOnly := NewViewer(ViewerConfig{Level: "warn"}, nil)
	assert.False(t, warnOnly.matches(parseLine(`{"level":"INFO","msg":"a"}`)))
	assert.True(t, warnOnly.matches(parseLine(`{"level":"WARN","msg":"a"}`)))
	assert.True(t, warnOnly.matches(parseLine(`{"level":"ERROR","msg":"a"}`)))
	assert.True(t, warnOnly.matches(parseLine("raw line")), "unparseable lines bypass the level filter")

	byPattern := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`search_(complete|failed)`)}, nil)
	assert.True(t, byPattern.matches(parseLine(`{"level":"INFO","msg":"search_complete"}`)))
	assert.False(t, byPattern.matches(parseLine(`{"level":"INFO","msg":"search_started"}`)))
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	entry := parseLine(`{"time":"2026-01-02T10:30:45.123Z","level":"WARN","msg":"generator_fallback","to":"native","from":"helper"}`)
	assert.Equal(t, "10:30:45.123 WARN  generator_fallback from=helper to=native", v.FormatEntry(entry))

	assert.Equal(t, "garbage", v.FormatEntry(parseLine("garbage")))
}

func TestViewer_FormatLevel(t *testing.T) {
	plain := NewViewer(ViewerConfig{NoColor: true}, nil)
	assert.Equal(t, "DEBUG", plain.formatLevel("debug"))
	assert.Equal(t, "INFO ", plain.formatLevel("info"))
	assert.Equal(t, "WARNI", plain.formatLevel("warning"))

	colored := NewViewer(ViewerConfig{}, nil)
	assert.Contains(t, colored.formatLevel("error"), "ERROR")
	assert.Equal(t, "TRACE", colored.formatLevel("trace"), "unknown levels are not styled")
}

func TestViewer_Tail(t *testing.T) {
	// Given: a rotated generation and an active file
	logPath := filepath.Join(t.TempDir(), "ds.log")
	require.NoError(t, os.WriteFile(logPath+".1", []byte(
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"old"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(logPath, []byte(
		`{"time":"2026-01-02T10:00:01Z","level":"DEBUG","msg":"one"}`+"\n"+
			`{"time":"2026-01-02T10:00:02Z","level":"ERROR","msg":"two"}`+"\n"), 0o644))

	t.Run("last n across generations", func(t *testing.T) {
		entries, err := NewViewer(ViewerConfig{}, nil).Tail(logPath, 3)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "old", entries[0].Msg)
		assert.Equal(t, "two", entries[2].Msg)
	})

	t.Run("window smaller than file", func(t *testing.T) {
		entries, err := NewViewer(ViewerConfig{}, nil).Tail(logPath, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "two", entries[0].Msg)
	})

	t.Run("level filter", func(t *testing.T) {
		entries, err := NewViewer(ViewerConfig{Level: "error"}, nil).Tail(logPath, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "two", entries[0].Msg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewViewer(ViewerConfig{}, nil).Tail(filepath.Join(t.TempDir(), "nope.log"), 10)
		assert.Error(t, err)
	})
}

func TestViewer_Print(t *testing.T) {
	var buf strings.Builder
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)

	v.Print([]LogEntry{parseLine("first"), parseLine("second")})

	assert.Equal(t, "first\nsecond\n", buf.String())
}

func TestViewer_Follow(t *testing.T) {
	// Given: an existing log file with history that must not be replayed
	logPath := filepath.Join(t.TempDir(), "ds.log")
	require.NoError(t, os.WriteFile(logPath, []byte(`{"level":"INFO","msg":"history"}`+"\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries := make(chan LogEntry, 16)
	done := make(chan error, 1)
	go func() { done <- NewViewer(ViewerConfig{}, nil).Follow(ctx, logPath, entries) }()

	// When: lines keep being appended
	go func() {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer func() { _ = f.Close() }()
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = f.WriteString(`{"level":"INFO","msg":"fresh"}` + "\n")
			}
		}
	}()

	// Then: a fresh entry arrives and history is skipped
	select {
	case entry := <-entries:
		assert.Equal(t, "fresh", entry.Msg)
	case <-ctx.Done():
		t.Fatal("no entry followed before timeout")
	}

	cancel()
	assert.NoError(t, <-done)
}
