package sqlite3

import (
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.miragespace.co/kvlite/spec/kv"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/ncruces/go-sqlite3/vfs"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/sys/cpu"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

var (
	configureOnce sync.Once
	configureErr  error
)

func compilerSupported() bool {
	switch runtime.GOOS {
	case "linux", "android",
		"windows", "darwin",
		"freebsd", "netbsd", "dragonfly",
		"solaris", "illumos":
		break
	default:
		return false
	}
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasSSE41
	case "arm64":
		return true
	default:
		return false
	}
}

// ConfigureRuntime sets up the wazero runtime SQLite is compiled on. Compiled modules are
// cached in cacheDir, or in memory when cacheDir is empty. Only the first call has any effect,
// and it must happen before the first store is opened.
func ConfigureRuntime(cacheDir string) error {
	configureOnce.Do(func() {
		var cache wazero.CompilationCache
		if cacheDir == "" {
			cache = wazero.NewCompilationCache()
		} else {
			c, err := wazero.NewCompilationCacheWithDir(cacheDir)
			if err != nil {
				configureErr = err
				return
			}
			cache = c
		}
		var cfg wazero.RuntimeConfig
		if compilerSupported() {
			cfg = wazero.NewRuntimeConfigCompiler()
		} else {
			cfg = wazero.NewRuntimeConfigInterpreter()
		}
		// errata: testing with this set to 256MB on illumos/amd64
		// will yield "resource temporarily unavailable"
		cfg = cfg.WithMemoryLimitPages(512) // 32MB
		cfg = cfg.WithCompilationCache(cache)
		sqlite3.RuntimeConfig = cfg

		configureErr = sqlite3.Initialize()
	})
	return configureErr
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func buildDSN(opts kv.Options) string {
	if opts.InMemory {
		return kv.InMemoryDatabaseName
	}
	mode := "rw"
	if opts.CreateIfMissing {
		mode = "rwc"
	}
	return fmt.Sprintf("file:%s?mode=%s", uriEscaper.Replace(opts.DatabaseName), mode)
}

func removeDatabaseFiles(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func newGormLogger(opts kv.Options) gormlogger.Interface {
	logger := zapgorm2.New(opts.Logger.Named("gorm"))
	logger.IgnoreRecordNotFoundError = true
	logger.SlowThreshold = opts.SlowQueryThreshold
	if opts.TraceSQL {
		return logger.LogMode(gormlogger.Info)
	}
	return logger
}

// openDatabase opens the single connection a store runs on and applies the connection pragmas.
func openDatabase(logger *zap.Logger, opts kv.Options) (*gorm.DB, *sql.DB, error) {
	logger.Debug("SQLite via wazero",
		zap.Bool("compiler", compilerSupported()),
		zap.Bool("lock", vfs.SupportsFileLocking),
		zap.Bool("shm", vfs.SupportsSharedMemory),
	)

	db, err := gorm.Open(gormlite.Open(buildDSN(opts)), &gorm.Config{
		Logger:         newGormLogger(opts),
		TranslateError: true,
	})
	if err != nil {
		if db != nil {
			if sqlDB, _ := db.DB(); sqlDB != nil {
				sqlDB.Close()
			}
		}
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	// one connection, kept for the lifetime of the store; an in-memory
	// database lives and dies with it
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	encoding := "UTF-8"
	if opts.UseUTF16 {
		encoding = "UTF-16"
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA encoding = '%s'", encoding),
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout/time.Millisecond),
	}
	if opts.JournalMode != "" && !opts.InMemory {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA journal_mode = %s", opts.JournalMode))
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	return db, sqlDB, nil
}
