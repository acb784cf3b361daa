package model

import (
	"fmt"
	"strings"
	"time"
)

// Parameter limits, from the remote authority's published API bounds
const (
	MinMoonPhases = 1
	MaxMoonPhases = 99
	MinYearMoon   = 1700
	MaxYearMoon   = 2100
	MinYearEclipse = 1800
	MaxYearEclipse = 2050
	MinYearSeasons = 1700
	MaxYearSeasons = 2100
	MinLatitude    = -90.0
	MaxLatitude    = 90.0
	MinLongitude   = -180.0
	MaxLongitude   = 180.0
	MinHeightM     = -200
	MaxHeightM     = 10000
	MaxLabelLen    = 20
)

// ParseDate parses a YYYY-M-D date, leading zeros optional
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-1-2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

// ParseClock parses an HH:MM time of day, leading zeros optional
func ParseClock(s string) (hour, minute int, err error) {
	for _, layout := range []string{"15:04", "15:4"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
}

func checkCoords(lat, lon float64) error {
	if lat < MinLatitude || lat > MaxLatitude {
		return fmt.Errorf("latitude must be between %v and %v", MinLatitude, MaxLatitude)
	}
	if lon < MinLongitude || lon > MaxLongitude {
		return fmt.Errorf("longitude must be between %v and %v", MinLongitude, MaxLongitude)
	}
	return nil
}

// ParsePlanet canonicalizes a planet name
func ParsePlanet(name string) (Planet, error) {
	for _, p := range Planets {
		if strings.EqualFold(string(p), name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown planet %q", name)
}

// MoonPhasesQuery holds validated parameters for the moon_phases operation
type MoonPhasesQuery struct {
	Date      string
	NumPhases int
}

func (q MoonPhasesQuery) Validate() error {
	if _, err := ParseDate(q.Date); err != nil {
		return err
	}
	if q.NumPhases < MinMoonPhases || q.NumPhases > MaxMoonPhases {
		return fmt.Errorf("num_phases must be between %d and %d", MinMoonPhases, MaxMoonPhases)
	}
	return nil
}

// OneDayQuery holds validated parameters for the sun_moon operation.
// TZ is an offset from UTC in hours; nil means UTC.
type OneDayQuery struct {
	Date  string
	Lat   float64
	Lon   float64
	TZ    *float64
	DST   *bool
	Label string
}

func (q OneDayQuery) Validate() error {
	if _, err := ParseDate(q.Date); err != nil {
		return err
	}
	if err := checkCoords(q.Lat, q.Lon); err != nil {
		return err
	}
	if len(q.Label) > MaxLabelLen {
		return fmt.Errorf("label must be at most %d characters", MaxLabelLen)
	}
	return nil
}

// EclipseDateQuery holds validated parameters for the eclipse_date operation
type EclipseDateQuery struct {
	Date   string
	Lat    float64
	Lon    float64
	Height int
}

func (q EclipseDateQuery) Validate() error {
	t, err := ParseDate(q.Date)
	if err != nil {
		return err
	}
	if y := t.Year(); y < MinYearEclipse || y > MaxYearEclipse {
		return fmt.Errorf("year must be between %d and %d", MinYearEclipse, MaxYearEclipse)
	}
	if err := checkCoords(q.Lat, q.Lon); err != nil {
		return err
	}
	if q.Height < MinHeightM || q.Height > MaxHeightM {
		return fmt.Errorf("height must be between %d and %d meters", MinHeightM, MaxHeightM)
	}
	return nil
}

// EclipseYearQuery holds validated parameters for the eclipse_year operation
type EclipseYearQuery struct {
	Year int
}

func (q EclipseYearQuery) Validate() error {
	if q.Year < MinYearEclipse || q.Year > MaxYearEclipse {
		return fmt.Errorf("year must be between %d and %d", MinYearEclipse, MaxYearEclipse)
	}
	return nil
}

// SeasonsQuery holds validated parameters for the seasons operation
type SeasonsQuery struct {
	Year int
	TZ   *float64
	DST  *bool
}

func (q SeasonsQuery) Validate() error {
	if q.Year < MinYearSeasons || q.Year > MaxYearSeasons {
		return fmt.Errorf("year must be between %d and %d", MinYearSeasons, MaxYearSeasons)
	}
	return nil
}

// PlanetPositionQuery holds validated parameters for the planet_position
// operation. Time is HH:MM UTC.
type PlanetPositionQuery struct {
	Planet Planet
	Date   string
	Time   string
	Lat    float64
	Lon    float64
}

func (q PlanetPositionQuery) Validate() error {
	if _, err := ParsePlanet(string(q.Planet)); err != nil {
		return err
	}
	if _, err := ParseDate(q.Date); err != nil {
		return err
	}
	if _, _, err := ParseClock(q.Time); err != nil {
		return err
	}
	return checkCoords(q.Lat, q.Lon)
}

// PlanetEventsQuery holds validated parameters for the planet_events operation
type PlanetEventsQuery struct {
	Planet Planet
	Date   string
	Lat    float64
	Lon    float64
}

func (q PlanetEventsQuery) Validate() error {
	if _, err := ParsePlanet(string(q.Planet)); err != nil {
		return err
	}
	if _, err := ParseDate(q.Date); err != nil {
		return err
	}
	return checkCoords(q.Lat, q.Lon)
}

// SkyQuery holds validated parameters for the sky_summary operation
type SkyQuery struct {
	Date string
	Time string
	Lat  float64
	Lon  float64
}

func (q SkyQuery) Validate() error {
	if _, err := ParseDate(q.Date); err != nil {
		return err
	}
	if _, _, err := ParseClock(q.Time); err != nil {
		return err
	}
	return checkCoords(q.Lat, q.Lon)
}
