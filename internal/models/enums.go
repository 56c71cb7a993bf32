package models

// RecordStatus is the lifecycle flag on master data.
type RecordStatus string

const (
	StatusActive      RecordStatus = "active"
	StatusInactive    RecordStatus = "inactive"
	StatusMaintenance RecordStatus = "maintenance"
	StatusBroken      RecordStatus = "broken"
	StatusArchived    RecordStatus = "archived"
)

type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
	ReportApproved  ReportStatus = "approved"
	ReportRejected  ReportStatus = "rejected"
)

type QualityGrade string

const (
	QualityGood QualityGrade = "good"
	QualityFair QualityGrade = "fair"
	QualityPoor QualityGrade = "poor"
)

type MachineCondition string

const (
	ConditionGood             MachineCondition = "good"
	ConditionNeedsMaintenance MachineCondition = "needs_maintenance"
	ConditionBroken           MachineCondition = "broken"
)

type CuttingMethod string

const (
	MethodManual  CuttingMethod = "manual"
	MethodMachine CuttingMethod = "machine"
	MethodLaser   CuttingMethod = "laser"
)

type DowntimeType string

const (
	DowntimeScheduledMaintenance   DowntimeType = "scheduled_maintenance"
	DowntimeUnscheduledMaintenance DowntimeType = "unscheduled_maintenance"
	DowntimeBreakdown              DowntimeType = "breakdown"
	DowntimeSetup                  DowntimeType = "setup"
	DowntimeBladeChange            DowntimeType = "blade_change"
	DowntimeBreak                  DowntimeType = "break"
	DowntimeOther                  DowntimeType = "other"
)

// MachineStatus is the machine status implied while a downtime of this type
// is open. Empty means the machine status is left alone.
func (t DowntimeType) MachineStatus() RecordStatus {
	switch t {
	case DowntimeBreakdown:
		return StatusBroken
	case DowntimeScheduledMaintenance, DowntimeUnscheduledMaintenance:
		return StatusMaintenance
	}
	return ""
}

type WasteType string

const (
	WasteOffcut       WasteType = "offcut"
	WasteEndOfRoll    WasteType = "end_of_roll"
	WasteFabricDefect WasteType = "fabric_defect"
	WasteMiscut       WasteType = "miscut"
	WasteMarkerLoss   WasteType = "marker_loss"
	WasteOther        WasteType = "other"
)

type ValidationOutcome string

const (
	OutcomeApproved      ValidationOutcome = "approved"
	OutcomeRejected      ValidationOutcome = "rejected"
	OutcomeNeedsRevision ValidationOutcome = "needs_revision"
)

// DeletePolicy describes what happens to dependent rows when a referenced row
// is deleted.
type DeletePolicy int

const (
	Restrict DeletePolicy = iota
	SetNull
)

// DeleteRule binds a dependent table column to a DeletePolicy.
type DeleteRule struct {
	Table  string
	Column string
	Policy DeletePolicy
}
