// ABOUTME: SampleType enum for the health data exported in batches.
// ABOUTME: Includes units and the high-frequency heuristic used for automatic batch sizing.
package models

// SampleType identifies a kind of health sample held by the data provider.
type SampleType string

const (
	// Vitals
	SampleHeartRate         SampleType = "heart_rate"
	SampleHRV               SampleType = "hrv"
	SampleRestingHeartRate  SampleType = "resting_heart_rate"
	SampleRespiratoryRate   SampleType = "respiratory_rate"
	SampleOxygenSaturation  SampleType = "oxygen_saturation"
	SampleBodyTemperature   SampleType = "body_temperature"
	SampleBloodPressureSys  SampleType = "blood_pressure_systolic"
	SampleBloodPressureDia  SampleType = "blood_pressure_diastolic"
	SampleBodyMass          SampleType = "body_mass"
	SampleBodyFatPercentage SampleType = "body_fat_percentage"

	// Activity
	SampleStepCount          SampleType = "step_count"
	SampleActiveEnergyBurned SampleType = "active_energy_burned"
	SampleBasalEnergyBurned  SampleType = "basal_energy_burned"
	SampleDistanceWalking    SampleType = "distance_walking_running"
	SampleDistanceCycling    SampleType = "distance_cycling"
	SamplePhysicalEffort     SampleType = "physical_effort"
	SampleFlightsClimbed     SampleType = "flights_climbed"

	// Categories
	SampleSleepAnalysis  SampleType = "sleep_analysis"
	SampleMindfulSession SampleType = "mindful_session"
)

// SampleUnits maps quantity sample types to their canonical units.
// Category types have no unit.
var SampleUnits = map[SampleType]string{
	SampleHeartRate:          "count/min",
	SampleHRV:                "ms",
	SampleRestingHeartRate:   "count/min",
	SampleRespiratoryRate:    "count/min",
	SampleOxygenSaturation:   "%",
	SampleBodyTemperature:    "degC",
	SampleBloodPressureSys:   "mmHg",
	SampleBloodPressureDia:   "mmHg",
	SampleBodyMass:           "kg",
	SampleBodyFatPercentage:  "%",
	SampleStepCount:          "count",
	SampleActiveEnergyBurned: "kcal",
	SampleBasalEnergyBurned:  "kcal",
	SampleDistanceWalking:    "m",
	SampleDistanceCycling:    "m",
	SamplePhysicalEffort:     "kcal/hr·kg",
	SampleFlightsClimbed:     "count",
}

// AllSampleTypes lists every known sample type.
var AllSampleTypes = []SampleType{
	SampleHeartRate, SampleHRV, SampleRestingHeartRate, SampleRespiratoryRate,
	SampleOxygenSaturation, SampleBodyTemperature, SampleBloodPressureSys, SampleBloodPressureDia,
	SampleBodyMass, SampleBodyFatPercentage,
	SampleStepCount, SampleActiveEnergyBurned, SampleBasalEnergyBurned, SampleDistanceWalking,
	SampleDistanceCycling, SamplePhysicalEffort, SampleFlightsClimbed,
	SampleSleepAnalysis, SampleMindfulSession,
}

// IsValidSampleType checks if a string is a known sample type.
func IsValidSampleType(s string) bool {
	for _, st := range AllSampleTypes {
		if string(st) == s {
			return true
		}
	}
	return false
}

// IsCategory reports whether samples of this type carry a category value instead of a quantity.
func (t SampleType) IsCategory() bool {
	return t == SampleSleepAnalysis || t == SampleMindfulSession
}

// IsHighFrequency reports whether devices record this type many times per hour.
// Automatic batch sizing gives these types smaller batches.
func (t SampleType) IsHighFrequency() bool {
	switch t {
	case SampleHeartRate, SampleStepCount, SampleActiveEnergyBurned, SampleBasalEnergyBurned,
		SampleDistanceWalking, SampleDistanceCycling, SamplePhysicalEffort:
		return true
	default:
		return false
	}
}
