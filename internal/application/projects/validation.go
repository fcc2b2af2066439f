package projects

import (
	"math"
	"regexp"
	"strings"
	"time"

	"streammap-backend/internal/application/uploads"
	"streammap-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MsgBlank         = "can't be blank"
	MsgDateFormat    = "must be in the following format: yyyy-mm-dd"
	MsgNotANumber    = "is not a number"
	MsgNotAnInteger  = "must be an integer"
	MsgNotPositive   = "must be greater than 0"
	MsgTooLarge      = "must be less than or equal to 9223372036854775807"
	MsgNotDecimal    = "must be in decimal notation"
	MsgUnknownOrgRef = "contains unknown organization"
)

var implementationDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
	maxCount     = decimal.NewFromInt(math.MaxInt64)
)

// FieldError is one failed rule on one attribute.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every failed rule of a submission.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+" "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// ProjectInput is a project submission as received. Numeric and date attributes stay raw
// text so that format errors can be reported per field.
type ProjectInput struct {
	Name                 string
	StreamName           string
	ImplementationDate   string
	PrimaryContact       string
	Narrative            string
	StructureDescription string
	Watershed            string
	URL                  string
	Length               string
	NumberOfStructures   string
	Latitude             string
	Longitude            string
	Affiliation          *string
	OrganizationIDs      []uuid.UUID
	Photos               []uploads.PhotoInput
}

// attributes is a submission that passed validation.
type attributes struct {
	name                 string
	streamName           string
	implementationDate   time.Time
	primaryContact       string
	narrative            string
	structureDescription string
	watershed            string
	url                  string
	length               int64
	numberOfStructures   int64
	latitude             decimal.Decimal
	longitude            decimal.Decimal
	affiliation          *string
}

// Validate checks every attribute rule. existingPhotos is the number of photos the project
// already carries (0 on create).
func (in ProjectInput) Validate(existingPhotos int) (*attributes, error) {
	var errs ValidationErrors
	out := &attributes{affiliation: in.Affiliation}

	required := []struct {
		field string
		value string
		dst   *string
	}{
		{"name", in.Name, &out.name},
		{"stream_name", in.StreamName, &out.streamName},
		{"primary_contact", in.PrimaryContact, &out.primaryContact},
		{"narrative", in.Narrative, &out.narrative},
		{"structure_description", in.StructureDescription, &out.structureDescription},
		{"watershed", in.Watershed, &out.watershed},
		{"url", in.URL, &out.url},
	}
	for _, r := range required {
		v := strings.TrimSpace(r.value)
		if v == "" {
			errs.add(r.field, MsgBlank)
			continue
		}
		*r.dst = v
	}

	if d, msg := parseImplementationDate(in.ImplementationDate); msg != "" {
		errs.add("implementation_date", msg)
	} else {
		out.implementationDate = d
	}

	if n, msg := parsePositiveInt(in.Length); msg != "" {
		errs.add("length", msg)
	} else {
		out.length = n
	}
	if n, msg := parsePositiveInt(in.NumberOfStructures); msg != "" {
		errs.add("number_of_structures", msg)
	} else {
		out.numberOfStructures = n
	}

	if d, msg := parseCoordinate(in.Latitude, maxLatitude); msg != "" {
		errs.add("latitude", msg)
	} else {
		out.latitude = d
	}
	if d, msg := parseCoordinate(in.Longitude, maxLongitude); msg != "" {
		errs.add("longitude", msg)
	} else {
		out.longitude = d
	}

	for _, v := range uploads.CheckPhotos(existingPhotos, in.Photos) {
		errs.add(v.Field, v.Message)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func parseImplementationDate(raw string) (time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, MsgBlank
	}
	if !implementationDateRe.MatchString(raw) {
		return time.Time{}, MsgDateFormat
	}
	d, err := time.Parse(domain.ImplementationDateLayout, raw)
	if err != nil {
		return time.Time{}, MsgDateFormat
	}
	return d, ""
}

func parsePositiveInt(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, MsgBlank
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, MsgNotANumber
	}
	// Integers are plain digits only; "1e3" is not one.
	if !d.IsInteger() || strings.ContainsAny(raw, "eE") {
		return 0, MsgNotAnInteger
	}
	if !d.IsPositive() {
		return 0, MsgNotPositive
	}
	if d.GreaterThan(maxCount) {
		return 0, MsgTooLarge
	}
	return d.IntPart(), ""
}

// parseCoordinate accepts plain decimal notation strictly inside (-limit, limit).
func parseCoordinate(raw string, limit decimal.Decimal) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, MsgBlank
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || strings.ContainsAny(raw, "eE") {
		return decimal.Decimal{}, MsgNotDecimal
	}
	if d.Abs().GreaterThanOrEqual(limit) {
		return decimal.Decimal{}, MsgNotDecimal
	}
	return d, ""
}
