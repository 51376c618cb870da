package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mgiraud/classbridge/internal/audit"
	"github.com/mgiraud/classbridge/internal/model"
)

// GetCatalog returns the canonical category catalog, in export order.
func (s *SQLiteStorage) GetCatalog(ctx context.Context) ([]model.CanonicalCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var catalog []model.CanonicalCategory
	for rows.Next() {
		var category model.CanonicalCategory
		if err := rows.Scan(&category.ID, &category.Label); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		catalog = append(catalog, category)
	}

	return catalog, rows.Err()
}

// GetSourceLabels returns the distinct class labels observed in the record
// snapshot with the number of records bearing each, blank labels included.
func (s *SQLiteStorage) GetSourceLabels(ctx context.Context) ([]model.SourceLabel, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(class_label, ''), COUNT(*)
		 FROM records
		 GROUP BY COALESCE(class_label, '')
		 ORDER BY COALESCE(class_label, '')`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []model.SourceLabel
	for rows.Next() {
		var label model.SourceLabel
		if err := rows.Scan(&label.Label, &label.RecordCount); err != nil {
			return nil, fmt.Errorf("failed to scan source label: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

// GetRecords returns the migration record snapshot.
func (s *SQLiteStorage) GetRecords(ctx context.Context) ([]model.MigrationRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(student_ref, ''), COALESCE(class_ref, ''),
		        COALESCE(term_ref, ''), COALESCE(class_label, ''),
		        COALESCE(period, ''), migrated,
		        action, payment_method, status, paid_up, photo_consent
		 FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	enumFields := []string{
		model.FieldAction,
		model.FieldPaymentMethod,
		model.FieldStatus,
		model.FieldPaidUp,
		model.FieldPhotoConsent,
	}

	var records []model.MigrationRecord
	for rows.Next() {
		var rec model.MigrationRecord
		values := make([]sql.NullString, len(enumFields))
		if err := rows.Scan(&rec.ID, &rec.StudentRef, &rec.ClassRef,
			&rec.TermRef, &rec.ClassLabel, &rec.Period, &rec.Migrated,
			&values[0], &values[1], &values[2], &values[3], &values[4]); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.Enums = make(map[string]string)
		for i, field := range enumFields {
			if values[i].Valid {
				rec.Enums[field] = values[i].String
			}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetEnumTable returns the allowed value set for each governed field.
func (s *SQLiteStorage) GetEnumTable(ctx context.Context) (audit.EnumTable, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM enum_values ORDER BY field, value`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enum values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	table := make(audit.EnumTable)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan enum value: %w", err)
		}
		table[field] = append(table[field], value)
	}

	return table, rows.Err()
}

// memLookups answers existence checks from id sets loaded once per run.
// It is immutable after construction and safe for concurrent readers.
type memLookups struct {
	students map[string]struct{}
	classes  map[string]struct{}
	terms    map[string]struct{}
}

func (l *memLookups) StudentExists(id string) bool {
	_, ok := l.students[id]
	return ok
}

func (l *memLookups) ClassExists(id string) bool {
	_, ok := l.classes[id]
	return ok
}

func (l *memLookups) TermExists(id string) bool {
	_, ok := l.terms[id]
	return ok
}

// GetLookups loads the student/class/term reference id sets into memory.
// All subsequent existence checks are pure map lookups; classification never
// blocks on I/O.
func (s *SQLiteStorage) GetLookups(ctx context.Context) (audit.Lookups, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	lookups := &memLookups{}

	tables := []struct {
		dest  *map[string]struct{}
		table string
	}{
		{&lookups.students, "students"},
		{&lookups.classes, "classes"},
		{&lookups.terms, "terms"},
	}

	for _, t := range tables {
		ids, err := s.loadIDSet(ctx, t.table)
		if err != nil {
			return nil, err
		}
		*t.dest = ids
	}

	return lookups, nil
}

func (s *SQLiteStorage) loadIDSet(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		ids[id] = struct{}{}
	}

	return ids, rows.Err()
}
