package domain

import "time"

// TypePopulation is the outcome for one cylinder type within a population run.
type TypePopulation struct {
	CylinderTypeID int64                  `json:"cylinder_type_id"`
	Code           string                 `json:"code"`
	Success        bool                   `json:"success"`
	Error          string                 `json:"error,omitempty"`
	Summary        *DailyInventorySummary `json:"summary,omitempty"`
}

// PopulationResult aggregates a population run for one distributor and date.
type PopulationResult struct {
	DistributorID int64            `json:"distributor_id"`
	Date          string           `json:"date"`
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	Types         []TypePopulation `json:"types"`
}

// GapReport lists calendar dates without any summary row.
type GapReport struct {
	DistributorID int64    `json:"distributor_id"`
	From          string   `json:"from"`
	To            string   `json:"to"`
	MissingDates  []string `json:"missing_dates"`
	MissingCount  int      `json:"missing_count"`
	LargestGap    int      `json:"largest_gap"`
	Alert         bool     `json:"alert"`
}

// RecoveryResult is returned by gap recovery.
type RecoveryResult struct {
	DistributorID int64    `json:"distributor_id"`
	FilledDates   int      `json:"filled_dates"`
	ReflowedDates int      `json:"reflowed_dates"`
	FailedDates   []string `json:"failed_dates,omitempty"`
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
}

// RebuildResult is returned by the destructive full rebuild.
type RebuildResult struct {
	DistributorID int64  `json:"distributor_id"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	DeletedRows   int64  `json:"deleted_rows"`
	RebuiltDays   int    `json:"rebuilt_days"`
	BackupKey     string `json:"backup_key,omitempty"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
}

// LowStockAlert describes one cylinder type checked by the low-stock monitor.
type LowStockAlert struct {
	CylinderTypeID int64  `json:"cylinder_type_id"`
	Code           string `json:"code"`
	CurrentStock   int    `json:"current_stock"`
	Threshold      int    `json:"threshold"`
	RequestedQty   int    `json:"requested_qty,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// LowStockResult is returned by the low-stock monitor.
type LowStockResult struct {
	DistributorID int64           `json:"distributor_id"`
	Date          string          `json:"date"`
	Created       []LowStockAlert `json:"created"`
	Skipped       []LowStockAlert `json:"skipped"`
}

// ContinuityIssueKind enumerates what the continuity checker can find.
type ContinuityIssueKind string

const (
	IssueCarryForwardMismatch ContinuityIssueKind = "carry_forward_mismatch"
	IssueNegativeBalance      ContinuityIssueKind = "negative_balance"
	IssuePendingRow           ContinuityIssueKind = "pending_row"
)

// ContinuityIssue is one finding of the continuity checker.
type ContinuityIssue struct {
	Kind            ContinuityIssueKind `json:"kind"`
	CylinderTypeID  int64               `json:"cylinder_type_id"`
	Date            string              `json:"date"`
	ExpectedFulls   int                 `json:"expected_fulls"`
	ActualFulls     int                 `json:"actual_fulls"`
	ExpectedEmpties int                 `json:"expected_empties"`
	ActualEmpties   int                 `json:"actual_empties"`
}

// ContinuityReport is the output of a continuity check.
type ContinuityReport struct {
	DistributorID int64             `json:"distributor_id"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	RowsChecked   int               `json:"rows_checked"`
	Issues        []ContinuityIssue `json:"issues"`
}

// Consistent reports whether the check found nothing.
func (r *ContinuityReport) Consistent() bool {
	return len(r.Issues) == 0
}

// ReconcileResult is returned after repopulating from the first mismatch.
type ReconcileResult struct {
	DistributorID   int64    `json:"distributor_id"`
	StartedFrom     string   `json:"started_from,omitempty"`
	RepopulatedDays int      `json:"repopulated_days"`
	FailedDates     []string `json:"failed_dates,omitempty"`
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
}

// IngestResult summarizes an imported corporation exchange sheet.
type IngestResult struct {
	FileName         string     `json:"file_name"`
	RowsImported     int        `json:"rows_imported"`
	RowsSkipped      int        `json:"rows_skipped"`
	EarliestAffected *time.Time `json:"earliest_affected,omitempty"`
}

// JobRunStatus is the lifecycle state of a scheduled or CLI job run.
type JobRunStatus string

const (
	JobRunRunning   JobRunStatus = "running"
	JobRunSucceeded JobRunStatus = "succeeded"
	JobRunFailed    JobRunStatus = "failed"
)

// JobRun records one execution of an inventory job for one distributor.
type JobRun struct {
	RunID         string       `json:"run_id" db:"run_id"`
	JobName       string       `json:"job_name" db:"job_name"`
	DistributorID int64        `json:"distributor_id" db:"distributor_id"`
	RunDate       time.Time    `json:"run_date" db:"run_date"`
	Status        JobRunStatus `json:"status" db:"status"`
	Message       string       `json:"message" db:"message"`
	StartedAt     time.Time    `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
}
