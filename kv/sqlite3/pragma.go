package sqlite3

import (
	"context"
	"fmt"
	"regexp"

	"go.miragespace.co/kvlite/spec/kv"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PragmaUserVersion   = "user_version"
	PragmaSchemaVersion = "schema_version"
	PragmaJournalMode   = "journal_mode"
	PragmaEncoding      = "encoding"
	PragmaBusyTimeout   = "busy_timeout"
	PragmaPageSize      = "page_size"
	PragmaPageCount     = "page_count"
	PragmaFreelistCount = "freelist_count"
)

var pragmaName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Pragma reads the current value of a pragma, such as PragmaJournalMode.
func (s *Store) Pragma(ctx context.Context, name string) (string, error) {
	if !pragmaName.MatchString(name) {
		return "", fmt.Errorf("%w: invalid pragma name %q", kv.ErrInvalidArgument, name)
	}
	db, err := s.conn(ctx, "read pragma")
	if err != nil {
		return "", err
	}
	var value string
	if err := db.Raw("PRAGMA " + name).Scan(&value).Error; err != nil {
		return "", err
	}
	return value, nil
}

// CheckIntegrity runs quick_check or integrity_check and returns the problems reported.
// An empty result means the database is intact.
func (s *Store) CheckIntegrity(ctx context.Context, quick bool) ([]string, error) {
	db, err := s.conn(ctx, "check integrity")
	if err != nil {
		return nil, err
	}
	return s.checkIntegrity(ctx, db, quick)
}

func (s *Store) checkIntegrity(ctx context.Context, db *gorm.DB, quick bool) ([]string, error) {
	q := s.q.integrityCheck
	if quick {
		q = s.q.quickCheck
	}
	rows, err := db.WithContext(ctx).Raw(q).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	problems := make([]string, 0)
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return problems, nil
}

// verify checks the schema version and, when enabled, the integrity of the database.
func (s *Store) verify(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var engine string
	if err := db.Raw(s.q.engineVersion).Scan(&engine).Error; err != nil {
		return err
	}
	var revision int64
	if err := db.Raw(s.q.schemaRevision).Scan(&revision).Error; err != nil {
		return err
	}
	s.logger.Debug("Verifying database",
		zap.String("engine", engine),
		zap.Int64("schemaRevision", revision),
	)

	var version int64
	if err := db.Raw(s.q.userVersion).Scan(&version).Error; err != nil {
		return err
	}
	switch {
	case version < SchemaVersion:
		return fmt.Errorf("%w: found version %d, expected %d", kv.ErrSchemaTooOld, version, SchemaVersion)
	case version > SchemaVersion:
		return fmt.Errorf("%w: found version %d, expected %d", kv.ErrSchemaTooNew, version, SchemaVersion)
	}

	if !s.options.VerifyOnOpen {
		return nil
	}

	problems, err := s.checkIntegrity(ctx, s.db, s.options.QuickVerify)
	if err != nil {
		return err
	}
	for _, p := range problems {
		s.logger.Warn("Integrity check reported a problem", zap.String("problem", p))
	}
	if len(problems) > 0 && s.options.StrictVerify {
		return fmt.Errorf("%w: integrity check reported %d problem(s)", kv.ErrCorrupt, len(problems))
	}
	s.logger.Debug("Database verified", zap.Bool("quick", s.options.QuickVerify), zap.Int("problems", len(problems)))
	return nil
}

// EngineVersion returns the version of the SQLite library the store runs on.
func (s *Store) EngineVersion(ctx context.Context) (string, error) {
	db, err := s.conn(ctx, "read engine version")
	if err != nil {
		return "", err
	}
	var version string
	if err := db.Raw(s.q.engineVersion).Scan(&version).Error; err != nil {
		return "", err
	}
	return version, nil
}
