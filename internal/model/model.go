// Package model defines the typed response contracts for all celestial
// operations. Field names in the JSON encodings are stable, versioned
// contracts and must not change between releases.
package model

// MoonPhase enumerates the four principal moon phases
type MoonPhase string

const (
	NewMoon      MoonPhase = "New Moon"
	FirstQuarter MoonPhase = "First Quarter"
	FullMoon     MoonPhase = "Full Moon"
	LastQuarter  MoonPhase = "Last Quarter"
)

// CelestialPhenomenon enumerates rise/set/transit phenomenon types
type CelestialPhenomenon string

const (
	PhenRise               CelestialPhenomenon = "Rise"
	PhenSet                CelestialPhenomenon = "Set"
	PhenUpperTransit       CelestialPhenomenon = "Upper Transit"
	PhenBeginCivilTwilight CelestialPhenomenon = "Begin Civil Twilight"
	PhenEndCivilTwilight   CelestialPhenomenon = "End Civil Twilight"
)

// EclipsePhenomenon enumerates solar eclipse phase markers
type EclipsePhenomenon string

const (
	EclipseBegins    EclipsePhenomenon = "Eclipse Begins"
	TotalityBegins   EclipsePhenomenon = "Totality Begins"
	AnnularityBegins EclipsePhenomenon = "Annularity Begins"
	MaximumEclipse   EclipsePhenomenon = "Maximum Eclipse"
	TotalityEnds     EclipsePhenomenon = "Totality Ends"
	AnnularityEnds   EclipsePhenomenon = "Annularity Ends"
	EclipseEnds      EclipsePhenomenon = "Eclipse Ends"
)

// SeasonPhenomenon enumerates Earth's seasonal and orbital events
type SeasonPhenomenon string

const (
	Equinox    SeasonPhenomenon = "Equinox"
	Solstice   SeasonPhenomenon = "Solstice"
	Perihelion SeasonPhenomenon = "Perihelion"
	Aphelion   SeasonPhenomenon = "Aphelion"
)

// MoonCurPhase enumerates current moon phase descriptions
type MoonCurPhase string

const (
	CurNewMoon        MoonCurPhase = "New Moon"
	CurWaxingCrescent MoonCurPhase = "Waxing Crescent"
	CurFirstQuarter   MoonCurPhase = "First Quarter"
	CurWaxingGibbous  MoonCurPhase = "Waxing Gibbous"
	CurFullMoon       MoonCurPhase = "Full Moon"
	CurWaningGibbous  MoonCurPhase = "Waning Gibbous"
	CurLastQuarter    MoonCurPhase = "Last Quarter"
	CurWaningCrescent MoonCurPhase = "Waning Crescent"
)

// Planet enumerates the solar system planets supported for position
// and event queries
type Planet string

const (
	Mercury Planet = "Mercury"
	Venus   Planet = "Venus"
	Mars    Planet = "Mars"
	Jupiter Planet = "Jupiter"
	Saturn  Planet = "Saturn"
	Uranus  Planet = "Uranus"
	Neptune Planet = "Neptune"
	Pluto   Planet = "Pluto"
)

// Planets lists all supported planets in distance order from the sun
var Planets = []Planet{Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// VisibilityStatus classifies a planet's visibility from an observer's location
type VisibilityStatus string

const (
	Visible        VisibilityStatus = "visible"
	BelowHorizon   VisibilityStatus = "below_horizon"
	LostInSunlight VisibilityStatus = "lost_in_sunlight"
)

// GeoJSONPoint is a GeoJSON Point geometry. Coordinates are
// [longitude, latitude] per the GeoJSON spec.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON Point for an observer location
func NewPoint(lat, lon float64) GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

// MoonPhaseData is a single moon phase occurrence with exact timing (UT1)
type MoonPhaseData struct {
	Phase MoonPhase `json:"phase"`
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Day   int       `json:"day"`
	Time  string    `json:"time"`
}

// MoonPhasesResponse lists upcoming moon phases starting from a given date
type MoonPhasesResponse struct {
	APIVersion string          `json:"apiversion"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Day        int             `json:"day"`
	NumPhases  int             `json:"numphases"`
	PhaseData  []MoonPhaseData `json:"phasedata"`
}

// CelestialEventData is a single rise/set/transit event
type CelestialEventData struct {
	Phen CelestialPhenomenon `json:"phen"`
	Time string              `json:"time"`
}

// ClosestPhaseData describes the moon phase closest to the queried date
type ClosestPhaseData struct {
	Phase MoonPhase `json:"phase"`
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Day   int       `json:"day"`
	Time  string    `json:"time"`
}

// OneDayData holds complete sun and moon data for one day.
// Event lists may be empty for polar regions during extreme seasons.
type OneDayData struct {
	Year         int                  `json:"year"`
	Month        int                  `json:"month"`
	Day          int                  `json:"day"`
	DayOfWeek    string               `json:"day_of_week"`
	TZ           float64              `json:"tz"`
	IsDST        bool                 `json:"isdst"`
	SunData      []CelestialEventData `json:"sundata"`
	MoonData     []CelestialEventData `json:"moondata"`
	ClosestPhase ClosestPhaseData     `json:"closestphase"`
	CurPhase     MoonCurPhase         `json:"curphase"`
	FracIllum    string               `json:"fracillum"`
	Label        string               `json:"label,omitempty"`
}

// OneDayProperties wraps OneDayData for the GeoJSON Feature encoding
type OneDayProperties struct {
	Data OneDayData `json:"data"`
}

// OneDayResponse is the sun/moon rise-set-transit response as a GeoJSON Feature
type OneDayResponse struct {
	APIVersion string           `json:"apiversion"`
	Type       string           `json:"type"`
	Geometry   GeoJSONPoint     `json:"geometry"`
	Properties OneDayProperties `json:"properties"`
}

// EclipseLocalData holds local circumstances of one solar eclipse phase
type EclipseLocalData struct {
	Day           string            `json:"day"`
	Phenomenon    EclipsePhenomenon `json:"phenomenon"`
	Time          string            `json:"time"`
	Altitude      string            `json:"altitude"`
	Azimuth       string            `json:"azimuth"`
	PositionAngle string            `json:"position_angle,omitempty"`
	VertexAngle   string            `json:"vertex_angle,omitempty"`
}

// EclipseProperties describes a solar eclipse at a specific location
type EclipseProperties struct {
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	Day         int                `json:"day"`
	Event       string             `json:"event"`
	Description string             `json:"description"`
	Magnitude   string             `json:"magnitude,omitempty"`
	Obscuration string             `json:"obscuration,omitempty"`
	Duration    string             `json:"duration,omitempty"`
	DeltaT      string             `json:"delta_t"`
	LocalData   []EclipseLocalData `json:"local_data"`
}

// SolarEclipseByDateResponse is eclipse data for a location and date
// as a GeoJSON Feature
type SolarEclipseByDateResponse struct {
	APIVersion string            `json:"apiversion"`
	Type       string            `json:"type"`
	Geometry   GeoJSONPoint      `json:"geometry"`
	Properties EclipseProperties `json:"properties"`
}

// SolarEclipseEvent is a single solar eclipse in a year list
type SolarEclipseEvent struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Event string `json:"event"`
}

// SolarEclipseByYearResponse lists all solar eclipses in a given year
type SolarEclipseByYearResponse struct {
	APIVersion     string              `json:"apiversion"`
	Year           int                 `json:"year"`
	EclipsesInYear []SolarEclipseEvent `json:"eclipses_in_year"`
}

// SeasonEvent is one seasonal event (equinox, solstice, perihelion, aphelion)
type SeasonEvent struct {
	Year   int              `json:"year"`
	Month  int              `json:"month"`
	Day    int              `json:"day"`
	Time   string           `json:"time"`
	Phenom SeasonPhenomenon `json:"phenom"`
}

// SeasonsResponse lists Earth's seasonal and orbital events for a year
type SeasonsResponse struct {
	APIVersion string        `json:"apiversion"`
	Year       int           `json:"year"`
	TZ         float64       `json:"tz"`
	DST        bool          `json:"dst"`
	Data       []SeasonEvent `json:"data"`
}

// PlanetPositionData holds position and observational data for a planet
// at a specific time and location
type PlanetPositionData struct {
	Planet         Planet           `json:"planet"`
	Date           string           `json:"date"`
	Time           string           `json:"time"`
	Altitude       float64          `json:"altitude"`
	Azimuth        float64          `json:"azimuth"`
	DistanceAU     float64          `json:"distance_au"`
	DistanceKM     float64          `json:"distance_km"`
	Illumination   float64          `json:"illumination"`
	Magnitude      float64          `json:"magnitude"`
	Constellation  string           `json:"constellation"`
	RightAscension string           `json:"right_ascension"`
	Declination    string           `json:"declination"`
	Elongation     float64          `json:"elongation"`
	Visibility     VisibilityStatus `json:"visibility"`
}

// PlanetPositionProperties wraps PlanetPositionData for the Feature encoding
type PlanetPositionProperties struct {
	Data PlanetPositionData `json:"data"`
}

// PlanetPositionResponse is a planet position as a GeoJSON Feature
type PlanetPositionResponse struct {
	APIVersion  string                   `json:"apiversion"`
	Type        string                   `json:"type"`
	Geometry    GeoJSONPoint             `json:"geometry"`
	Properties  PlanetPositionProperties `json:"properties"`
	ArtifactRef string                   `json:"artifact_ref,omitempty"`
}

// PlanetEventData is a single planet rise/set/transit event
type PlanetEventData struct {
	Phen string `json:"phen"`
	Time string `json:"time"`
}

// PlanetEventsData holds complete planet event data for one day
type PlanetEventsData struct {
	Planet        Planet            `json:"planet"`
	Date          string            `json:"date"`
	Events        []PlanetEventData `json:"events"`
	Constellation string            `json:"constellation"`
	Magnitude     float64           `json:"magnitude"`
}

// PlanetEventsProperties wraps PlanetEventsData for the Feature encoding
type PlanetEventsProperties struct {
	Data PlanetEventsData `json:"data"`
}

// PlanetEventsResponse is planet rise/set/transit times as a GeoJSON Feature
type PlanetEventsResponse struct {
	APIVersion  string                 `json:"apiversion"`
	Type        string                 `json:"type"`
	Geometry    GeoJSONPoint           `json:"geometry"`
	Properties  PlanetEventsProperties `json:"properties"`
	ArtifactRef string                 `json:"artifact_ref,omitempty"`
}

// SkyPlanetSummary summarizes a single planet's position for the sky overview
type SkyPlanetSummary struct {
	Planet        Planet           `json:"planet"`
	Altitude      float64          `json:"altitude"`
	Azimuth       float64          `json:"azimuth"`
	Magnitude     float64          `json:"magnitude"`
	Constellation string           `json:"constellation"`
	Elongation    float64          `json:"elongation"`
	Visibility    VisibilityStatus `json:"visibility"`
	Direction     string           `json:"direction"`
}

// SkyMoonSummary summarizes the moon for the sky overview
type SkyMoonSummary struct {
	Phase         string `json:"phase"`
	Illumination  string `json:"illumination"`
	NextPhase     string `json:"next_phase,omitempty"`
	NextPhaseDate string `json:"next_phase_date,omitempty"`
}

// SkyData is the complete sky summary for a date/time/location.
// VisiblePlanets is sorted brightest first.
type SkyData struct {
	Date           string             `json:"date"`
	Time           string             `json:"time"`
	IsDark         bool               `json:"is_dark"`
	VisiblePlanets []SkyPlanetSummary `json:"visible_planets"`
	AllPlanets     []SkyPlanetSummary `json:"all_planets"`
	Moon           SkyMoonSummary     `json:"moon"`
	Summary        string             `json:"summary"`
}

// SkyProperties wraps SkyData for the Feature encoding
type SkyProperties struct {
	Data SkyData `json:"data"`
}

// SkyResponse is the complete sky summary as a GeoJSON Feature
type SkyResponse struct {
	APIVersion  string        `json:"apiversion"`
	Type        string        `json:"type"`
	Geometry    GeoJSONPoint  `json:"geometry"`
	Properties  SkyProperties `json:"properties"`
	ArtifactRef string        `json:"artifact_ref,omitempty"`
}
