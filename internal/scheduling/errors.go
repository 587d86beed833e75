package scheduling

type Error string

const (
	ErrDoctorNotFound         Error = "doctor not found"
	ErrPatientNotFound        Error = "patient not found"
	ErrConsultationNotFound   Error = "consultation not found"
	ErrEntryNotFound          Error = "agenda entry not found"
	ErrUnsupportedCombination Error = "doctor does not attend the given specialty and plan"
	ErrPastDate               Error = "date must be in the future"
	ErrPatientBlocked         Error = "patient is blocked due to consecutive no-shows"
	ErrTooManyPending         Error = "patient already has too many pending bookings"
	ErrTimeConflict           Error = "period conflicts with another agenda entry"
	ErrInsufficientLeadTime   Error = "changes must be requested at least 24 hours in advance"
	ErrForbidden              Error = "user has no permission over this entry"
	ErrAlreadyResolved        Error = "entry was already resolved"
	ErrNotStarted             Error = "consultation has not started yet"
	ErrOnlyBlocksRemovable    Error = "only self blocks can be removed"
	ErrInvalidIdentifier      Error = "invalid identifier"
	ErrInvalidDateReference   Error = "invalid date reference"
	ErrInvalidMonthReference  Error = "invalid month reference"
	ErrInvalidPeriodReference Error = "invalid period reference"
)

func (e Error) Error() string {
	return string(e)
}
