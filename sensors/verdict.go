package sensors

// Fault classifies a rejected attempt.
type Fault int

const (
	FaultNone Fault = iota
	// FaultAbsent: the sensor delivered no temperature or no humidity.
	FaultAbsent
	// FaultOutOfRange: both values present but physically implausible.
	FaultOutOfRange
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultAbsent:
		return "absent"
	case FaultOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Verdict is what the acquisition loop does after an attempt.
type Verdict int

const (
	Retry Verdict = iota
	ResetAndRetry
	Accept
)

func (v Verdict) String() string {
	switch v {
	case Retry:
		return "retry"
	case ResetAndRetry:
		return "reset_and_retry"
	case Accept:
		return "accept"
	default:
		return "unknown"
	}
}

// Evaluate decides the fate of attempt (1-based) out of maxAttempts.
//
// Absent values always call for a power cycle. Out-of-range values only do
// once fewer than two attempts remain (attempt+2 > maxAttempts).
func Evaluate(attempt, maxAttempts int, data *SensorData) (Verdict, Fault) {
	temperature, okT := data.Value(FieldTemperature)
	humidity, okH := data.Value(FieldHumidity)

	switch {
	case !okT || !okH:
		return ResetAndRetry, FaultAbsent
	case !InRange(temperature, humidity):
		if attempt+2 > maxAttempts {
			return ResetAndRetry, FaultOutOfRange
		}
		return Retry, FaultOutOfRange
	default:
		return Accept, FaultNone
	}
}
