package projects

import (
	"math"
	"testing"

	"streammap-backend/internal/application/uploads"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProjectInput {
	return ProjectInput{
		Name:                 "Whychus Creek Restoration",
		StreamName:           "Whychus Creek",
		ImplementationDate:   "2018-10-05",
		PrimaryContact:       "Jane Doe",
		Narrative:            "Beaver dam analogs installed along the reach.",
		StructureDescription: "Post-assisted log structures",
		Watershed:            "Deschutes",
		URL:                  "https://example.org/whychus",
		Length:               "15234",
		NumberOfStructures:   "12",
		Latitude:             "44.0429694",
		Longitude:            "-121.3334816",
	}
}

func messagesFor(t *testing.T, err error, field string) []string {
	t.Helper()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	var out []string
	for _, e := range verrs {
		if e.Field == field {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	attrs, err := validInput().Validate(0)
	require.NoError(t, err)
	assert.Equal(t, int64(15234), attrs.length)
	assert.Equal(t, int64(12), attrs.numberOfStructures)
	assert.Equal(t, "44.0429694", attrs.latitude.String())
	assert.Equal(t, "2018-10-05", attrs.implementationDate.Format("2006-01-02"))
}

func TestValidate_CollectsEveryBlank(t *testing.T) {
	_, err := ProjectInput{}.Validate(0)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	blank := map[string]bool{}
	for _, e := range verrs {
		if e.Message == MsgBlank {
			blank[e.Field] = true
		}
	}
	for _, f := range []string{"name", "stream_name", "implementation_date", "primary_contact",
		"narrative", "structure_description", "watershed", "url", "latitude", "longitude",
		"length", "number_of_structures"} {
		assert.True(t, blank[f], "expected %s to be reported blank", f)
	}
	assert.Contains(t, err.Error(), "name can't be blank")
}

func TestValidate_WhitespaceIsBlank(t *testing.T) {
	in := validInput()
	in.Name = "   "
	_, err := in.Validate(0)
	assert.Equal(t, []string{MsgBlank}, messagesFor(t, err, "name"))
}

func TestValidate_ImplementationDate(t *testing.T) {
	for _, raw := range []string{"10/05/2018", "2018-1-5", "2018-10-05T00:00:00Z", "x2018-10-05", "2018-13-01", "2018-02-30"} {
		in := validInput()
		in.ImplementationDate = raw
		_, err := in.Validate(0)
		assert.Equal(t, []string{MsgDateFormat}, messagesFor(t, err, "implementation_date"), raw)
	}
}

func TestValidate_Length(t *testing.T) {
	cases := map[string]string{
		"0":   MsgNotPositive,
		"-5":  MsgNotPositive,
		"1.5": MsgNotAnInteger,
		"abc": MsgNotANumber,
		"1e3": MsgNotAnInteger,
		"2E1": MsgNotAnInteger,

		"9223372036854775808":  MsgTooLarge,
		"18446744073709551617": MsgTooLarge,
	}
	for raw, msg := range cases {
		in := validInput()
		in.Length = raw
		in.NumberOfStructures = raw
		_, err := in.Validate(0)
		assert.Equal(t, []string{msg}, messagesFor(t, err, "length"), raw)
		assert.Equal(t, []string{msg}, messagesFor(t, err, "number_of_structures"), raw)
	}

	in := validInput()
	in.Length = "9223372036854775807"
	attrs, err := in.Validate(0)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), attrs.length)
}

func TestValidate_CoordinateBounds(t *testing.T) {
	for _, raw := range []string{"90", "-90", "90.0000001", "north", "1e1"} {
		in := validInput()
		in.Latitude = raw
		_, err := in.Validate(0)
		assert.Equal(t, []string{MsgNotDecimal}, messagesFor(t, err, "latitude"), raw)
	}
	for _, raw := range []string{"180", "-180", "181"} {
		in := validInput()
		in.Longitude = raw
		_, err := in.Validate(0)
		assert.Equal(t, []string{MsgNotDecimal}, messagesFor(t, err, "longitude"), raw)
	}

	in := validInput()
	in.Latitude, in.Longitude = "89.9999999", "-179.9999999"
	_, err := in.Validate(0)
	assert.NoError(t, err)
}

func TestValidate_Photos(t *testing.T) {
	in := validInput()
	in.Photos = []uploads.PhotoInput{
		{FileName: "a.tiff", ContentType: "image/tiff", SizeBytes: 10},
		{FileName: "b.png", ContentType: "image/png", SizeBytes: uploads.MaxPhotoBytes},
	}
	_, err := in.Validate(0)
	assert.Equal(t, []string{uploads.MsgInvalidContentType}, messagesFor(t, err, "photos[0]"))
	assert.Equal(t, []string{uploads.MsgTooLarge}, messagesFor(t, err, "photos[1]"))

	in.Photos = []uploads.PhotoInput{{FileName: "c.webp", ContentType: "image/webp", SizeBytes: 10}}
	_, err = in.Validate(uploads.MaxPhotos)
	assert.Equal(t, []string{uploads.MsgTooMany}, messagesFor(t, err, "photos"))
}

