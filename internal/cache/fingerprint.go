package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
)

// Fingerprint is a deterministic key derived from an operation kind and
// its normalized parameters. Identical inputs always produce the same
// fingerprint regardless of incidental formatting differences.
type Fingerprint struct {
	Op  model.OperationKind
	Sum string
}

// String renders the fingerprint as op/hex
func (f Fingerprint) String() string {
	return string(f.Op) + "/" + f.Sum
}

// StoreKey is the deterministic durable store key for this fingerprint
func (f Fingerprint) StoreKey() string {
	return "results/" + string(f.Op) + "/" + f.Sum + ".json"
}

// coordinate precision for fingerprinting; finer differences do not
// change any computed answer at the supported output resolution
const coordPrecision = 4

func normCoord(v float64) string {
	return fmt.Sprintf("%.*f", coordPrecision, v)
}

func normDate(s string) (string, error) {
	t, err := model.ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

func normClock(s string) (string, error) {
	h, m, err := model.ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func normTZ(tz *float64) string {
	if tz == nil {
		return "utc"
	}
	return fmt.Sprintf("%+.2f", *tz)
}

func normDST(dst *bool) string {
	if dst == nil {
		return "nodst"
	}
	return fmt.Sprintf("%t", *dst)
}

// NewFingerprint computes the fingerprint of an operation and its
// validated query. Every parameter that affects the answer contributes in
// a fixed order; semantically identical requests collide.
func NewFingerprint(op model.OperationKind, query any) (Fingerprint, error) {
	var parts []string
	var err error

	add := func(p string) { parts = append(parts, p) }
	addDate := func(s string) {
		var d string
		if err == nil {
			d, err = normDate(s)
			parts = append(parts, d)
		}
	}
	addClock := func(s string) {
		var c string
		if err == nil {
			c, err = normClock(s)
			parts = append(parts, c)
		}
	}

	switch q := query.(type) {
	case model.MoonPhasesQuery:
		addDate(q.Date)
		add(fmt.Sprintf("n=%d", q.NumPhases))
	case model.OneDayQuery:
		addDate(q.Date)
		add(normCoord(q.Lat))
		add(normCoord(q.Lon))
		add(normTZ(q.TZ))
		add(normDST(q.DST))
		// Label is presentation-only and excluded: it does not affect
		// any computed value
	case model.EclipseDateQuery:
		addDate(q.Date)
		add(normCoord(q.Lat))
		add(normCoord(q.Lon))
		add(fmt.Sprintf("h=%d", q.Height))
	case model.EclipseYearQuery:
		add(fmt.Sprintf("y=%d", q.Year))
	case model.SeasonsQuery:
		add(fmt.Sprintf("y=%d", q.Year))
		add(normTZ(q.TZ))
		add(normDST(q.DST))
	case model.PlanetPositionQuery:
		planet, perr := model.ParsePlanet(string(q.Planet))
		if perr != nil {
			err = perr
		}
		add(strings.ToLower(string(planet)))
		addDate(q.Date)
		addClock(q.Time)
		add(normCoord(q.Lat))
		add(normCoord(q.Lon))
	case model.PlanetEventsQuery:
		planet, perr := model.ParsePlanet(string(q.Planet))
		if perr != nil {
			err = perr
		}
		add(strings.ToLower(string(planet)))
		addDate(q.Date)
		add(normCoord(q.Lat))
		add(normCoord(q.Lon))
	case model.SkyQuery:
		addDate(q.Date)
		addClock(q.Time)
		add(normCoord(q.Lat))
		add(normCoord(q.Lon))
	default:
		return Fingerprint{}, celerrors.InternalError(
			fmt.Sprintf("unsupported query type %T for operation %s", query, op), nil)
	}

	if err != nil {
		return Fingerprint{}, celerrors.InvalidArgument("failed to normalize query parameters", err)
	}

	h := sha256.New()
	h.Write([]byte(string(op)))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return Fingerprint{Op: op, Sum: hex.EncodeToString(h.Sum(nil))}, nil
}
