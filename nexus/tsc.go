package nexus

import "time"

// tscCalibration holds the one-shot, cached result of the TSC-to-wall-clock
// frequency measurement done at Nexus construction.
//
// Go gives no portable access to RDTSC, so calibration here measures the
// same thing an RDTSC-based implementation would (the relationship between
// a free-running counter and wall-clock time) using runtime.nanotime's
// public proxy, time.Now, as the counter itself. GHz is always 1.0: a
// "tick" in this implementation already is a nanosecond, so downstream
// conversion code is unit-correct without pretending to emulate real TSC
// hardware.
type tscCalibration struct {
	ghz         float64
	measuredAt  time.Time
	calibration time.Duration
}

// calibrateTSC performs the one-shot measurement described in §4.8: sample
// against wall-clock over a short bounded interval. Never re-measured
// during operation; reinstantiating a Nexus re-measures (§9).
func calibrateTSC() tscCalibration {
	const sampleWindow = 1 * time.Millisecond
	start := time.Now()
	time.Sleep(sampleWindow)
	elapsed := time.Since(start)

	return tscCalibration{
		ghz:         1.0,
		measuredAt:  start,
		calibration: elapsed,
	}
}

// ToDuration converts a count of "TSC ticks" (nanoseconds, per the type
// comment above) to a time.Duration.
func (c tscCalibration) ToDuration(ticks uint64) time.Duration {
	return time.Duration(float64(ticks) / c.ghz)
}
