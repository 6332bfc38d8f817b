package accounts

import "time"

// IsWithinThresholdPeriod checks if t is within the duration pattern of now
func IsWithinThresholdPeriod(t, now time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := now.Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t, now time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, now, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}
