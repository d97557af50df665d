package database

import (
	"reflect"

	"meeting-assistant/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SerialTables have auto-increment ids whose sequences need syncing after
// a bulk copy into PostgreSQL.
var SerialTables = []string{"availabilities", "conversation_messages"}

// CopyAll copies every model table from src to dst, one transaction per
// table. It returns the number of rows copied per table.
func CopyAll(src, dst *gorm.DB, log *zap.Logger) (map[string]int, error) {
	copied := make(map[string]int)
	for _, model := range models.All() {
		table := tableName(dst, model)
		log.Info("Migrating table", zap.String("table", table))

		rows := reflect.New(reflect.SliceOf(reflect.TypeOf(model).Elem()))
		if err := src.Find(rows.Interface()).Error; err != nil {
			return copied, errors.Wrapf(err, "read %s", table)
		}
		n := rows.Elem().Len()
		if n == 0 {
			copied[table] = 0
			continue
		}

		err := dst.Transaction(func(tx *gorm.DB) error {
			return tx.Omit(clause.Associations).CreateInBatches(rows.Interface(), 100).Error
		})
		if err != nil {
			return copied, errors.Wrapf(err, "write %s", table)
		}
		copied[table] = n
		log.Info("Successfully migrated table", zap.String("table", table), zap.Int("rows", n))
	}
	return copied, nil
}

// SyncSequences moves each serial sequence past the table's max id.
func SyncSequences(db *gorm.DB, tables []string, log *zap.Logger) error {
	var failed []string
	for _, table := range tables {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.Exec(query).Error; err != nil {
			log.Error("Error syncing sequence", zap.String("table", table), zap.Error(err))
			failed = append(failed, table)
			continue
		}
		log.Info("Successfully synced sequence", zap.String("table", table))
	}
	if len(failed) > 0 {
		return errors.Errorf("sequence sync failed for %v", failed)
	}
	return nil
}

func tableName(db *gorm.DB, model interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return reflect.TypeOf(model).Elem().Name()
	}
	return stmt.Schema.Table
}
