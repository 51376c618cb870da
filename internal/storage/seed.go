package storage

import (
	"context"
	"fmt"

	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/model"
)

// The staging database is normally filled by the export tooling of the two
// record systems. These loaders exist for that tooling and for test fixtures;
// the engine itself only ever reads.

// LoadCatalog inserts the canonical category catalog.
func (s *SQLiteStorage) LoadCatalog(ctx context.Context, catalog []model.CanonicalCategory) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, category := range catalog {
		if err := validateString(category.ID, "category.ID"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO categories (id, label, position) VALUES (?, ?, ?)`,
			category.ID, category.Label, i)
		if err != nil {
			return fmt.Errorf("failed to insert category %q: %w", category.ID, err)
		}
	}

	return tx.Commit()
}

// LoadReferences inserts the target system's student/class/term id sets.
func (s *SQLiteStorage) LoadReferences(ctx context.Context, students, classes, terms []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sets := []struct {
		table string
		ids   []string
	}{
		{"students", students},
		{"classes", classes},
		{"terms", terms},
	}

	for _, set := range sets {
		for _, id := range set.ids {
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT OR IGNORE INTO %s (id) VALUES (?)`, set.table), id)
			if err != nil {
				return fmt.Errorf("failed to insert %s id %q: %w", set.table, id, err)
			}
		}
	}

	return tx.Commit()
}

// LoadEnumTable inserts the allowed-value table for governed fields.
func (s *SQLiteStorage) LoadEnumTable(ctx context.Context, table audit.EnumTable) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, field := range table.Fields() {
		for _, value := range table[field] {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO enum_values (field, value) VALUES (?, ?)`, field, value)
			if err != nil {
				return fmt.Errorf("failed to insert enum value %s=%q: %w", field, value, err)
			}
		}
	}

	return tx.Commit()
}

// LoadRecords inserts the migration record snapshot.
func (s *SQLiteStorage) LoadRecords(ctx context.Context, records []model.MigrationRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO records
		 (id, student_ref, class_ref, term_ref, class_label, period, migrated,
		  action, payment_method, status, paid_up, photo_consent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if err := validateString(rec.ID, "record.ID"); err != nil {
			return err
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.StudentRef, rec.ClassRef, rec.TermRef, rec.ClassLabel, rec.Period, rec.Migrated,
			enumOrNil(rec, model.FieldAction),
			enumOrNil(rec, model.FieldPaymentMethod),
			enumOrNil(rec, model.FieldStatus),
			enumOrNil(rec, model.FieldPaidUp),
			enumOrNil(rec, model.FieldPhotoConsent),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %q: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

func enumOrNil(rec model.MigrationRecord, field string) any {
	if value, ok := rec.Enums[field]; ok {
		return value
	}
	return nil
}
