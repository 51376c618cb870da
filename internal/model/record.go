package model

import (
	"sort"
	"strings"
)

// Enum-governed record fields.
const (
	FieldAction        = "action"
	FieldPaymentMethod = "payment_method"
	FieldStatus        = "status"
	FieldPaidUp        = "paid_up"
	FieldPhotoConsent  = "photo_consent"
)

// AnonymousStudentRef is the placeholder identity assigned to records whose
// identifying fields are all blank. Such records are reported, not dropped.
const AnonymousStudentRef = "(anonymous)"

// MigrationRecord is an immutable snapshot of one enrollment entry from the
// foreign system, evaluated for transfer to the target system.
type MigrationRecord struct {
	ID         string
	StudentRef string
	ClassRef   string
	TermRef    string
	ClassLabel string // raw class/cohort name as spelled in the source system
	Period     string // term/year grouping key, e.g. "2023-2024"
	// Migrated is the transfer outcome recorded by the export tooling:
	// whether this record actually made it into the target system.
	Migrated bool
	Enums    map[string]string
}

// Blank reports whether all identifying references are empty or
// whitespace-only.
func (r MigrationRecord) Blank() bool {
	return strings.TrimSpace(r.StudentRef) == "" &&
		strings.TrimSpace(r.ClassRef) == "" &&
		strings.TrimSpace(r.TermRef) == ""
}

// IssueKind is one structured reason a record could not be migrated.
type IssueKind string

// Issue kind constants.
const (
	IssueMissingStudent IssueKind = "MISSING_STUDENT"
	IssueMissingClass   IssueKind = "MISSING_CLASS"
	IssueMissingTerm    IssueKind = "MISSING_TERM"
	IssueInvalidEnum    IssueKind = "INVALID_ENUM"
	IssueUnknown        IssueKind = "UNKNOWN"
)

// Issue is one triggered issue kind with its detail: the field and offending
// value for enum violations, the missing reference otherwise.
type Issue struct {
	Kind   IssueKind
	Field  string // set for INVALID_ENUM
	Detail string
}

// String renders the issue for logs and reports.
func (i Issue) String() string {
	if i.Kind == IssueInvalidEnum {
		return string(i.Kind) + "(" + i.Field + "=" + i.Detail + ")"
	}
	if i.Detail != "" {
		return string(i.Kind) + "(" + i.Detail + ")"
	}
	return string(i.Kind)
}

// MigrationAudit is the complete issue set for one record, computed
// independently of all other records.
type MigrationAudit struct {
	RecordID   string
	StudentRef string
	Period     string
	Issues     []Issue
}

// Migratable reports whether the record triggered zero predicates.
func (a MigrationAudit) Migratable() bool {
	return len(a.Issues) == 0
}

// Has reports whether the audit contains an issue of the given kind.
func (a MigrationAudit) Has(kind IssueKind) bool {
	for _, issue := range a.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

// SortIssues orders the issue set canonically (kind, then field, then
// detail) so audits compare equal regardless of predicate evaluation order.
func (a *MigrationAudit) SortIssues() {
	sort.Slice(a.Issues, func(i, j int) bool {
		if a.Issues[i].Kind != a.Issues[j].Kind {
			return a.Issues[i].Kind < a.Issues[j].Kind
		}
		if a.Issues[i].Field != a.Issues[j].Field {
			return a.Issues[i].Field < a.Issues[j].Field
		}
		return a.Issues[i].Detail < a.Issues[j].Detail
	})
}
