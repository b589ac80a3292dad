package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// AggregateForecasts merges forecasts from several providers hour by hour.
// Forecasts carrying timestamps are aligned on the latest first hour among
// them; those without timestamps are assumed to start at that hour, and those
// that never reach it are left out. The merge covers the shortest remaining
// length, rounded down to an even number of hours. Shovel flags are decided by
// majority, with a tie counting as a shovel hour; snow depth and temperature
// are averaged.
func AggregateForecasts(forecasts []Forecast) Forecast {
	switch len(forecasts) {
	case 0:
		return Forecast{}
	case 1:
		return forecasts[0]
	}

	forecasts, offsets := alignForecasts(forecasts)

	hours := forecasts[0].Hours() - offsets[0]
	for j, f := range forecasts[1:] {
		if n := f.Hours() - offsets[j+1]; n < hours {
			hours = n
		}
	}
	hours -= hours % 2

	out := ForecastData{
		ShovelTime:         make([]bool, hours),
		EstimatedSnowDepth: make([]float64, hours),
	}

	for j, f := range forecasts {
		if ts := f.Data.ForecastTimestamp; len(ts) >= offsets[j]+hours && len(ts) > 0 {
			out.ForecastTimestamp = append([]Timestamp(nil), ts[offsets[j]:offsets[j]+hours]...)
			break
		}
	}

	var withTemp []int
	for j, f := range forecasts {
		if len(f.Data.Temperature) >= offsets[j]+hours {
			withTemp = append(withTemp, j)
		}
	}
	if len(withTemp) > 0 {
		out.Temperature = make([]float64, hours)
	}

	depths := make([]float64, len(forecasts))
	temps := make([]float64, len(withTemp))

	for i := 0; i < hours; i++ {
		votes := 0
		for j, f := range forecasts {
			if f.Data.ShovelTime[offsets[j]+i] {
				votes++
			}
			depths[j] = f.Data.EstimatedSnowDepth[offsets[j]+i]
		}
		out.ShovelTime[i] = votes*2 >= len(forecasts)
		out.EstimatedSnowDepth[i] = stat.Mean(depths, nil)

		for k, j := range withTemp {
			temps[k] = forecasts[j].Data.Temperature[offsets[j]+i]
		}
		if len(temps) > 0 {
			out.Temperature[i] = stat.Mean(temps, nil)
		}
	}

	return Forecast{Data: out}
}

// alignForecasts returns the forecasts that cover the common first hour,
// with the index of that hour in each.
func alignForecasts(forecasts []Forecast) ([]Forecast, []int) {
	var start time.Time
	for _, f := range forecasts {
		if ts := f.Data.ForecastTimestamp; len(ts) > 0 && ts[0].After(start) {
			start = ts[0].Time
		}
	}

	aligned := make([]Forecast, 0, len(forecasts))
	offsets := make([]int, 0, len(forecasts))
	for _, f := range forecasts {
		ts := f.Data.ForecastTimestamp
		if start.IsZero() || len(ts) == 0 {
			aligned = append(aligned, f)
			offsets = append(offsets, 0)
			continue
		}
		for i, t := range ts {
			if t.Equal(start) {
				aligned = append(aligned, f)
				offsets = append(offsets, i)
				break
			}
		}
	}
	return aligned, offsets
}
