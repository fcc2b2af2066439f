package geo

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/shopspring/decimal"
)

// SRIDWGS84 is the only spatial reference system the service stores or queries.
const SRIDWGS84 = 4326

// Precision is the number of decimal places kept on each coordinate.
const Precision = 6

var (
	// ErrMissingCoordinates is returned when latitude or longitude is absent at save time.
	ErrMissingCoordinates = errors.New("latitude and longitude are required")
	// ErrMalformedPoint is returned for points that cannot take part in a containment query.
	ErrMalformedPoint = errors.New("malformed spatial point")
)

// Point is an immutable canonical point: longitude on the x axis, latitude on the y axis.
// The rounded decimal text is kept next to the float pair so the stored value never drifts.
type Point struct {
	lon  decimal.Decimal
	lat  decimal.Decimal
	srid int
}

// X returns the longitude.
func (p Point) X() float64 { return p.lon.InexactFloat64() }

// Y returns the latitude.
func (p Point) Y() float64 { return p.lat.InexactFloat64() }

// Lon returns the longitude as an exact decimal.
func (p Point) Lon() decimal.Decimal { return p.lon }

// Lat returns the latitude as an exact decimal.
func (p Point) Lat() decimal.Decimal { return p.lat }

func (p Point) SRID() int { return p.srid }

// IsZero reports whether p was never assigned.
func (p Point) IsZero() bool { return p.srid == 0 }

// Orb returns the point in orb's (x, y) layout for planar predicates.
func (p Point) Orb() orb.Point { return orb.Point{p.X(), p.Y()} }

// Valid reports whether p can be used for containment: correct SRID and finite, in-range axes.
func (p Point) Valid() bool {
	if p.srid != SRIDWGS84 {
		return false
	}
	x, y := p.X(), p.Y()
	return x >= -180 && x <= 180 && y >= -90 && y <= 90
}

// EWKT renders the point as extended well-known text, e.g. SRID=4326;POINT(-121.333482 44.042969).
func (p Point) EWKT() string {
	return fmt.Sprintf("SRID=%d;POINT(%s %s)", p.srid, p.lon.String(), p.lat.String())
}

func (p Point) String() string { return p.EWKT() }

// Value stores the point as EWKT text.
func (p Point) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.EWKT(), nil
}

// Scan reads EWKT (or plain WKT, assumed WGS84) text written by Value.
func (p *Point) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		*p = Point{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("geo: unsupported point column type %T", value)
	}
	parsed, err := ParseEWKT(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseEWKT parses "SRID=n;POINT(x y)" or "POINT(x y)".
func ParseEWKT(s string) (Point, error) {
	srid := SRIDWGS84
	body := strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToUpper(body), "SRID=") {
		head, rest, ok := strings.Cut(body, ";")
		if !ok {
			return Point{}, fmt.Errorf("geo: parse %q: %w", s, ErrMalformedPoint)
		}
		n, err := strconv.Atoi(strings.TrimSpace(head[len("SRID="):]))
		if err != nil {
			return Point{}, fmt.Errorf("geo: parse srid in %q: %w", s, ErrMalformedPoint)
		}
		srid = n
		body = rest
	}
	g, err := wkt.Unmarshal(body)
	if err != nil {
		return Point{}, fmt.Errorf("geo: parse %q: %w", s, err)
	}
	op, ok := g.(orb.Point)
	if !ok {
		return Point{}, fmt.Errorf("geo: %q is a %s, not a point: %w", s, g.GeoJSONType(), ErrMalformedPoint)
	}
	// Keep the decimal text exactly as written rather than the float round trip.
	lon, lat := decimal.NewFromFloat(op[0]), decimal.NewFromFloat(op[1])
	if xs, ys, ok := pointText(body); ok {
		if d, err := decimal.NewFromString(xs); err == nil {
			lon = d
		}
		if d, err := decimal.NewFromString(ys); err == nil {
			lat = d
		}
	}
	return Point{lon: lon, lat: lat, srid: srid}, nil
}

func pointText(body string) (string, string, bool) {
	open := strings.IndexByte(body, '(')
	end := strings.LastIndexByte(body, ')')
	if open < 0 || end <= open {
		return "", "", false
	}
	fields := strings.Fields(body[open+1 : end])
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

type pointJSON struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	SRID int     `json:"srid"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(pointJSON{X: p.X(), Y: p.Y(), SRID: p.srid})
}

// Factory constructs points tagged with a fixed SRID. It is handed to the Normalizer
// explicitly instead of living in a process-wide registry.
type Factory struct {
	SRID int
}

// NewFactory returns the WGS84 point factory.
func NewFactory() Factory { return Factory{SRID: SRIDWGS84} }

// Point builds a point in (longitude, latitude) axis order.
func (f Factory) Point(lon, lat decimal.Decimal) Point {
	srid := f.SRID
	if srid == 0 {
		srid = SRIDWGS84
	}
	return Point{lon: lon, lat: lat, srid: srid}
}

// Normalizer turns raw coordinates into the canonical point.
type Normalizer struct {
	Factory Factory
}

// NewNormalizer returns a Normalizer backed by the WGS84 factory.
func NewNormalizer() *Normalizer {
	return &Normalizer{Factory: NewFactory()}
}

// Normalize rounds latitude and longitude to Precision places (half away from zero) and
// builds the point. Either value being nil yields ErrMissingCoordinates.
func (n *Normalizer) Normalize(lat, lon *decimal.Decimal) (Point, error) {
	if lat == nil || lon == nil {
		return Point{}, ErrMissingCoordinates
	}
	return n.Factory.Point(Round(*lon), Round(*lat)), nil
}

// Round rounds a coordinate to Precision decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}
