package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
)

// fingerprintRow is the GORM-managed row backing one track's blob.
type fingerprintRow struct {
	TrackID   string `gorm:"primaryKey"`
	Blob      []byte
	UpdatedAt time.Time
}

func (fingerprintRow) TableName() string { return "fingerprints" }

// SQLiteStore persists FingerprintBlobs in a local SQLite database,
// grounded on the teacher's datastore.SQLiteStore.Open: WAL journal mode
// plus the same performance pragmas, auto-migration on open.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed Store at
// dbPath.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategorySystem).
			Context("operation", "create_database_directory").
			Context("directory", filepath.Dir(dbPath)).
			Build()
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite_database").
			Context("db_path", dbPath).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryDatabase).
			Context("operation", "get_underlying_sqldb").
			Build()
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-4000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		// Pragma failures degrade performance, not correctness; keep going.
		_, _ = sqlDB.Exec(pragma)
	}

	if err := db.AutoMigrate(&fingerprintRow{}); err != nil {
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_path", dbPath).
			Build()
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, trackID string) (FingerprintBlob, error) {
	var row fingerprintRow
	err := s.db.WithContext(ctx).Where("track_id = ?", trackID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryDatabase).
			Context("operation", "get_fingerprint").
			Context("track_id", trackID).
			Build()
	}
	return row.Blob, nil
}

// Put is idempotent last-writer-wins: repeated calls for the same
// trackID overwrite the prior blob wholesale.
func (s *SQLiteStore) Put(ctx context.Context, trackID string, blob FingerprintBlob) error {
	row := fingerprintRow{TrackID: trackID, Blob: blob, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "track_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryDatabase).
			Context("operation", "put_fingerprint").
			Context("track_id", trackID).
			Build()
	}
	return nil
}
