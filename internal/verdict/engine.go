package verdict

// Validate checks that the two series can be split into day one and day two.
func Validate(shovelTime []bool, snowDepth []float64) error {
	switch {
	case shovelTime == nil:
		return NewInvalidInputError("shovel_time series is missing")
	case snowDepth == nil:
		return NewInvalidInputError("estimated_snow_depth series is missing")
	case len(shovelTime) == 0 || len(snowDepth) == 0:
		return NewInvalidInputError("forecast series are empty")
	case len(shovelTime) != len(snowDepth):
		return NewInvalidInputError("series length mismatch: shovel_time=%d estimated_snow_depth=%d",
			len(shovelTime), len(snowDepth))
	case len(shovelTime) < 2 || len(shovelTime)%2 != 0:
		return NewInvalidInputError("series length %d cannot be split into two equal days", len(shovelTime))
	}
	return nil
}

// Compute returns the verdict for an hourly shovel-time series and its matching
// cumulative snow depth series (millimeters). The first half of the series is
// day one, the second half day two. Rules are tried in order; the first match wins.
func Compute(shovelTime []bool, snowDepth []float64) (Verdict, error) {
	if err := Validate(shovelTime, snowDepth); err != nil {
		return "", err
	}

	half := len(shovelTime) / 2
	dayOne, dayTwo := shovelTime[:half], shovelTime[half:]

	switch {
	case !anyTrue(shovelTime):
		return No, nil
	case anyTrue(dayOne) && !anyTrue(dayTwo):
		return IfYouWantTo, nil
	case anyTrue(dayOne) && anyFalse(dayTwo):
		// Subsumes the case above.
		return IfYouWantTo, nil
	case !anyTrue(dayOne) && anyTrue(dayTwo):
		return MaybeTomorrow, nil
	case anyTrue(dayOne) && !anyFalse(dayTwo):
		if snowDepth[len(snowDepth)-1] >= AbsolutelyDepthMM {
			return Absolutely, nil
		}
		return Likely, nil
	default:
		return Unknown, nil
	}
}

func anyTrue(window []bool) bool {
	for _, v := range window {
		if v {
			return true
		}
	}
	return false
}

func anyFalse(window []bool) bool {
	for _, v := range window {
		if !v {
			return true
		}
	}
	return false
}
