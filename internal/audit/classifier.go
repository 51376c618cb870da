// Package audit classifies migration records against independent validity
// predicates and reports the complete set of violated conditions.
package audit

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mgiraud/classbridge/internal/model"
)

// Lookups provides existence checks against the target system's pre-loaded
// in-memory indices. Implementations must be safe for concurrent readers.
type Lookups interface {
	StudentExists(id string) bool
	ClassExists(id string) bool
	TermExists(id string) bool
}

// EnumTable maps each governed field name to its allowed value set.
type EnumTable map[string][]string

// Allowed reports whether value is permitted for field. Fields absent from
// the table are ungoverned and always allowed.
func (t EnumTable) Allowed(field, value string) bool {
	allowed, governed := t[field]
	if !governed {
		return true
	}
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}

// Fields returns the governed field names, sorted.
func (t EnumTable) Fields() []string {
	fields := make([]string, 0, len(t))
	for field := range t {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Classifier evaluates migration records. It holds only injected immutable
// capabilities, so concurrent classification of independent records is safe.
type Classifier struct {
	lookups Lookups
	enums   EnumTable
}

// NewClassifier creates a classifier with the given lookup capabilities and
// enum validation table.
func NewClassifier(lookups Lookups, enums EnumTable) *Classifier {
	return &Classifier{
		lookups: lookups,
		enums:   enums,
	}
}

// Classify evaluates every predicate unconditionally and returns the union
// of triggered issues. A record missing both its student and its class
// reference reports both, never just the first detected.
//
// A panicking lookup capability is caught here, at record granularity, and
// converted into an UNKNOWN issue so the batch continues.
func (c *Classifier) Classify(rec model.MigrationRecord) (audit model.MigrationAudit) {
	audit = model.MigrationAudit{
		RecordID:   rec.ID,
		StudentRef: rec.StudentRef,
		Period:     rec.Period,
	}

	if rec.Blank() {
		audit.StudentRef = model.AnonymousStudentRef
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Record classification failed, continuing batch",
				"record_id", rec.ID,
				"panic", r)
			audit.Issues = []model.Issue{{
				Kind:   model.IssueUnknown,
				Detail: fmt.Sprintf("classification failed: %v", r),
			}}
		}
	}()

	var issues []model.Issue
	issues = append(issues, c.checkStudent(rec)...)
	issues = append(issues, c.checkClass(rec)...)
	issues = append(issues, c.checkTerm(rec)...)
	issues = append(issues, c.checkEnums(rec)...)

	audit.Issues = issues
	audit.SortIssues()
	return audit
}

// EnsureCause appends UNKNOWN to an audit of a record that is known to be
// non-migrated but triggered zero predicates. The classifier never fabricates
// a cause; UNKNOWN is a legitimate terminal classification.
func EnsureCause(audit model.MigrationAudit) model.MigrationAudit {
	if !audit.Migratable() {
		return audit
	}
	audit.Issues = []model.Issue{{
		Kind:   model.IssueUnknown,
		Detail: "no recognized cause",
	}}
	return audit
}

func (c *Classifier) checkStudent(rec model.MigrationRecord) []model.Issue {
	ref := strings.TrimSpace(rec.StudentRef)
	if ref == "" {
		detail := rec.StudentRef
		if rec.Blank() {
			detail = model.AnonymousStudentRef
		}
		return []model.Issue{{Kind: model.IssueMissingStudent, Detail: detail}}
	}
	if !c.lookups.StudentExists(ref) {
		return []model.Issue{{Kind: model.IssueMissingStudent, Detail: ref}}
	}
	return nil
}

func (c *Classifier) checkClass(rec model.MigrationRecord) []model.Issue {
	ref := strings.TrimSpace(rec.ClassRef)
	if ref == "" || !c.lookups.ClassExists(ref) {
		return []model.Issue{{Kind: model.IssueMissingClass, Detail: ref}}
	}
	return nil
}

func (c *Classifier) checkTerm(rec model.MigrationRecord) []model.Issue {
	ref := strings.TrimSpace(rec.TermRef)
	if ref == "" || !c.lookups.TermExists(ref) {
		return []model.Issue{{Kind: model.IssueMissingTerm, Detail: ref}}
	}
	return nil
}

// checkEnums validates every governed field independently; each violation is
// reported with the field name and the offending raw value.
func (c *Classifier) checkEnums(rec model.MigrationRecord) []model.Issue {
	var issues []model.Issue
	for _, field := range c.enums.Fields() {
		value, present := rec.Enums[field]
		if !present {
			continue
		}
		if !c.enums.Allowed(field, value) {
			issues = append(issues, model.Issue{
				Kind:   model.IssueInvalidEnum,
				Field:  field,
				Detail: value,
			})
		}
	}
	return issues
}
