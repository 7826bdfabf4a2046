package kvlite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.miragespace.co/kvlite/spec/kv"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testRun(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.Metadata["logger"] = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))

	err := app.RunContext(context.Background(), append([]string{"kvlite"}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	as := require.New(t)
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := testRun(t, "--db", db, "set", "greeting/en", "hello")
	as.NoError(err)
	_, err = testRun(t, "--db", db, "set", "greeting/fr", "bonjour")
	as.NoError(err)
	_, err = testRun(t, "--db", db, "set", "other", "value")
	as.NoError(err)

	out, err := testRun(t, "--db", db, "get", "GREETING/EN")
	as.NoError(err)
	as.Equal("hello\n", out)

	_, err = testRun(t, "--db", db, "get", "missing")
	as.ErrorIs(err, kv.ErrNotFound)

	out, err = testRun(t, "--db", db, "count")
	as.NoError(err)
	as.Equal("3\n", out)

	out, err = testRun(t, "--db", db, "keys")
	as.NoError(err)
	as.ElementsMatch([]string{"greeting/en", "greeting/fr", "other"}, strings.Fields(out))

	out, err = testRun(t, "--db", db, "scan", "greeting/")
	as.NoError(err)
	as.Contains(out, "bonjour")
	as.NotContains(out, "other")

	out, err = testRun(t, "--db", db, "rm", "--prefix", "greeting/")
	as.NoError(err)
	as.Equal("removed 2 key(s)\n", out)

	_, err = testRun(t, "--db", db, "rm", "other")
	as.NoError(err)

	out, err = testRun(t, "--db", db, "count")
	as.NoError(err)
	as.Equal("0\n", out)
}

func TestClearAllNeedsConfirmation(t *testing.T) {
	as := require.New(t)
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := testRun(t, "--db", db, "set", "k", "v")
	as.NoError(err)

	_, err = testRun(t, "--db", db, "clear-all")
	as.Error(err)

	out, err := testRun(t, "--db", db, "count")
	as.NoError(err)
	as.Equal("1\n", out)

	_, err = testRun(t, "--db", db, "clear-all", "--yes")
	as.NoError(err)

	out, err = testRun(t, "--db", db, "count")
	as.NoError(err)
	as.Equal("0\n", out)
}

func TestExportImport(t *testing.T) {
	as := require.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")

	for _, kvp := range [][2]string{{"a/1", "one"}, {"a/2", "two"}, {"b/1", "three"}} {
		_, err := testRun(t, "--db", src, "set", kvp[0], kvp[1])
		as.NoError(err)
	}

	out, err := testRun(t, "--db", src, "export", "a/")
	as.NoError(err)
	as.Contains(out, "key: a/1")
	as.NotContains(out, "b/1")

	dump := filepath.Join(dir, "dump.yaml")
	as.NoError(os.WriteFile(dump, []byte(out), 0600))

	out, err = testRun(t, "--db", dst, "import", dump)
	as.NoError(err)
	as.Equal("imported 2 element(s)\n", out)

	out, err = testRun(t, "--db", dst, "get", "a/2")
	as.NoError(err)
	as.Equal("two\n", out)

	_, err = testRun(t, "--db", dst, "import", filepath.Join(dir, "missing.yaml"))
	as.Error(err)
}

func TestVerify(t *testing.T) {
	as := require.New(t)
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := testRun(t, "--db", db, "set", "k", "v")
	as.NoError(err)

	out, err := testRun(t, "--db", db, "--quick-verify", "verify")
	as.NoError(err)
	as.Contains(out, "integrity:")
	as.Contains(out, "ok")
	as.Contains(out, "user_version")
	as.Contains(out, "schema_version")
	as.Contains(out, "page_size")
	as.Contains(out, "freelist_count")
	as.Contains(out, "busy_timeout")

	junk := filepath.Join(t.TempDir(), "junk.db")
	as.NoError(os.WriteFile(junk, bytes.Repeat([]byte("not sqlite "), 512), 0600))

	_, err = testRun(t, "--db", junk, "verify")
	as.ErrorIs(err, kv.ErrNotADatabase)
	as.True(kv.IsOpenError(err))
}

func TestMissingDatabase(t *testing.T) {
	as := require.New(t)

	_, err := testRun(t, "count")
	as.ErrorIs(err, kv.ErrInvalidState)

	out, err := testRun(t, "--memory", "count")
	as.NoError(err)
	as.Equal("0\n", out)
}

func TestConfigFile(t *testing.T) {
	as := require.New(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")

	t.Setenv("KVLITE_TEST_DIR", dir)
	cfg := filepath.Join(dir, "kvlite.yaml")
	as.NoError(os.WriteFile(cfg, []byte(`
database: ${KVLITE_TEST_DIR}/from-config.db
busy_timeout: 2s
journal_mode: wal
throw_on_clear_all: true
`), 0600))

	opts, err := LoadOptions(cfg)
	as.NoError(err)
	as.Equal(db, opts.DatabaseName)
	as.Equal("2s", opts.BusyTimeout.String())
	as.True(opts.ThrowOnClearAll)
	as.True(opts.VerifyOnOpen)

	_, err = testRun(t, "--config", cfg, "set", "k", "v")
	as.NoError(err)

	_, err = testRun(t, "--config", cfg, "clear-all", "--yes")
	as.ErrorIs(err, kv.ErrOperationDisabled)

	_, err = os.Stat(db)
	as.NoError(err)

	_, err = LoadOptions(filepath.Join(dir, "missing.yaml"))
	as.Error(err)
}

func TestHelpPrinter(t *testing.T) {
	as := require.New(t)

	as.Equal([]string{"a b", "c"}, wrapText("a b c", 3))
	as.Equal([]string{""}, wrapText("", 10))

	PrettierHelpPrinter()

	out, err := testRun(t, "--help")
	as.NoError(err)
	as.Contains(out, "COMMANDS:")
	as.Contains(out, "Database Options")
	as.Contains(out, "clear-all")
}
