package forecast

// Defaults for deriving shovel-time flags from raw hourly snowfall.
const (
	DefaultShovelThresholdMM = 10.0
	DefaultShovelWindowHours = 12
)

// DeriveSeries turns an hourly snowfall series (mm per hour) into the series
// the verdict engine expects. depth[i] is the snowfall accumulated from hour 0
// through hour i. shovel[i] is true when at least thresholdMM fell over the
// windowHours hours ending at hour i.
func DeriveSeries(snowfallMM []float64, thresholdMM float64, windowHours int) (shovel []bool, depth []float64) {
	if windowHours <= 0 {
		windowHours = DefaultShovelWindowHours
	}

	shovel = make([]bool, len(snowfallMM))
	depth = make([]float64, len(snowfallMM))

	var total float64
	for i, mm := range snowfallMM {
		if mm < 0 {
			mm = 0
		}
		total += mm
		depth[i] = total

		windowStart := i - windowHours
		var before float64
		if windowStart >= 0 {
			before = depth[windowStart]
		}
		shovel[i] = total-before >= thresholdMM
	}
	return shovel, depth
}

// NewDerivedForecast builds a Forecast from hourly timestamps, snowfall and
// temperature, deriving shovel time and snow depth.
func NewDerivedForecast(times []Timestamp, snowfallMM, temperatureC []float64, thresholdMM float64, windowHours int) Forecast {
	shovel, depth := DeriveSeries(snowfallMM, thresholdMM, windowHours)
	return Forecast{Data: ForecastData{
		ForecastTimestamp:  times,
		ShovelTime:         shovel,
		EstimatedSnowDepth: depth,
		Temperature:        temperatureC,
		Snowfall:           snowfallMM,
	}}
}
