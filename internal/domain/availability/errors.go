package availability

import "errors"

var (
	ErrRuleNotFound      = errors.New("availability rule not found")
	ErrRuleOverlap       = errors.New("availability rule overlaps an existing active rule for this doctor and weekday")
	ErrInvalidTimeWindow = errors.New("timeFrom must be before timeTo")
	ErrInvalidDateWindow = errors.New("startDate must be before endDate")
	ErrInvalidDayOfWeek  = errors.New("invalid day of week")
	ErrInvalidRuleType   = errors.New("invalid availability rule type")
)
