package constants

// RowStatus is the display status of a projected row. Values are stable and exposed over the API.
type RowStatus string

const (
	RowStatusExpired      RowStatus = "expired"
	RowStatusExpiringSoon RowStatus = "expiring-soon"
	RowStatusShortage     RowStatus = "shortage"
	RowStatusNormal       RowStatus = "normal"
)

// AlarmState is the per-row state of the baseline/alarm pair.
type AlarmState string

const (
	AlarmStateUnconfirmed AlarmState = "UNCONFIRMED"
	AlarmStateNormal      AlarmState = "CONFIRMED_NORMAL"
	AlarmStateAlarming    AlarmState = "CONFIRMED_ALARMING"
)

// Severity buckets a short row by how far below its baseline it is.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	CriticalShortagePercent = 50 // shortagePercent >= this is critical
	WarningShortagePercent  = 20 // shortagePercent in [this, critical) is a warning
	DefaultExpiryWindowDays = 7
	DefaultBriefingTopN     = 10
)
