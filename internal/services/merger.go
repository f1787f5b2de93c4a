package services

import (
	"energy-dashboard/internal/models"
)

// PassResult is the partial mapping one source contributes, plus the keys
// that appeared more than once in that source (later rows won).
type PassResult struct {
	Partial    models.GraphData
	Duplicates []models.CanonicalTimestamp
}

// EnergyPass sets consumption with an isAnomalous=false baseline
func EnergyPass(readings []models.Reading) PassResult {
	return pass(readings, func(r models.Reading) models.MergedRecord {
		return models.MergedRecord{Consumption: models.Float(r.Value)}
	})
}

// WeatherPass sets temperature
func WeatherPass(readings []models.Reading) PassResult {
	return pass(readings, func(r models.Reading) models.MergedRecord {
		return models.MergedRecord{Temperature: models.Float(r.Value)}
	})
}

// AnomalyPass flags every key it sees as anomalous
func AnomalyPass(readings []models.Reading) PassResult {
	return pass(readings, func(models.Reading) models.MergedRecord {
		return models.MergedRecord{IsAnomalous: true}
	})
}

func pass(readings []models.Reading, contribute func(models.Reading) models.MergedRecord) PassResult {
	result := PassResult{Partial: make(models.GraphData, len(readings))}
	for _, r := range readings {
		if _, seen := result.Partial[r.Timestamp]; seen {
			result.Duplicates = append(result.Duplicates, r.Timestamp)
		}
		result.Partial[r.Timestamp] = contribute(r)
	}
	return result
}

// Fold combines partial mappings into a new mapping over the union of their keys.
// Consumption and temperature are taken from whichever partial sets them, a later
// partial winning if both do. isAnomalous is true if any partial sets it, so the
// result does not depend on the order of partials for it. Inputs are not modified
// and the result shares no pointers with them.
func Fold(partials ...models.GraphData) models.GraphData {
	size := 0
	for _, p := range partials {
		if len(p) > size {
			size = len(p)
		}
	}

	out := make(models.GraphData, size)
	for _, p := range partials {
		for ts, rec := range p {
			cur := out[ts]
			if rec.Consumption != nil {
				cur.Consumption = models.Float(*rec.Consumption)
			}
			if rec.Temperature != nil {
				cur.Temperature = models.Float(*rec.Temperature)
			}
			cur.IsAnomalous = cur.IsAnomalous || rec.IsAnomalous
			out[ts] = cur
		}
	}
	return out
}

// MergeResult is the merged mapping plus per-source duplicate keys
type MergeResult struct {
	Data       models.GraphData
	Duplicates map[models.SourceName][]models.CanonicalTimestamp
}

// Merge runs the three passes and folds them
func Merge(energy, weather, anomalies []models.Reading) MergeResult {
	e := EnergyPass(energy)
	w := WeatherPass(weather)
	a := AnomalyPass(anomalies)

	return MergeResult{
		Data: Fold(e.Partial, w.Partial, a.Partial),
		Duplicates: map[models.SourceName][]models.CanonicalTimestamp{
			models.SourceEnergy:    e.Duplicates,
			models.SourceWeather:   w.Duplicates,
			models.SourceAnomalies: a.Duplicates,
		},
	}
}
