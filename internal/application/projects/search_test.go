package projects

import (
	"context"
	"testing"

	"streammap-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	svc        *Service
	bearCreek  uuid.UUID
	basin      uuid.UUID
	salmon     uuid.UUID
	orgA, orgB domain.Organization
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	svc, db, _ := newTestService(t)
	f := &searchFixture{svc: svc, orgA: seedOrg(t, db, "Org A"), orgB: seedOrg(t, db, "Org B")}

	create := func(name, stream, watershed, length, structures string, orgs ...uuid.UUID) uuid.UUID {
		in := validInput()
		in.Name, in.StreamName, in.Watershed = name, stream, watershed
		in.Length, in.NumberOfStructures = length, structures
		in.OrganizationIDs = orgs
		res, err := svc.Create(context.Background(), uuid.New(), in)
		require.NoError(t, err)
		return res.Project.ProjectID
	}
	f.bearCreek = create("Bear Creek Restoration", "Bear Creek", "Crooked", "10000", "4",
		f.orgA.OrganizationID, f.orgB.OrganizationID)
	f.basin = create("Upper reach weirs", "Tumalo", "Creek Basin", "5000", "6", f.orgB.OrganizationID)
	f.salmon = create("Salmon River", "Salmon River", "Sandy", "234", "2")
	return f
}

func ids(projects []domain.Project) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ProjectID)
	}
	return out
}

func TestSearch_BlankTermReturnsAll(t *testing.T) {
	f := newSearchFixture(t)
	for _, term := range []string{"", "   "} {
		got, err := f.svc.Search(context.Background(), Filter{Term: term, OrganizationIDs: []uuid.UUID{f.orgA.OrganizationID}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{f.bearCreek, f.basin, f.salmon}, ids(got))
	}
}

func TestSearch_TermMatchesNameWatershedOrStream(t *testing.T) {
	f := newSearchFixture(t)
	got, err := f.svc.Search(context.Background(), Filter{Term: "Creek"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.bearCreek, f.basin}, ids(got))

	got, err = f.svc.Search(context.Background(), Filter{Term: "Tumalo"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.basin}, ids(got))

	got, err = f.svc.Search(context.Background(), Filter{Term: "Nowhere"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_TermAndOrganizations(t *testing.T) {
	f := newSearchFixture(t)
	got, err := f.svc.Search(context.Background(), Filter{Term: "Creek", OrganizationIDs: []uuid.UUID{f.orgA.OrganizationID}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.bearCreek}, ids(got))

	// Bear Creek is affiliated with both organizations and must appear once.
	got, err = f.svc.Search(context.Background(), Filter{Term: "Creek",
		OrganizationIDs: []uuid.UUID{f.orgA.OrganizationID, f.orgB.OrganizationID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.bearCreek, f.basin}, ids(got))

	got, err = f.svc.Search(context.Background(), Filter{Term: "Salmon", OrganizationIDs: []uuid.UUID{f.orgA.OrganizationID}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStats(t *testing.T) {
	f := newSearchFixture(t)
	all, err := f.svc.Stats(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, &Stats{ProjectCount: 3, StructureSum: 12, ProjectTotalLengthKm: 15.2}, all)

	creek, err := f.svc.Stats(context.Background(), Filter{Term: "Creek", OrganizationIDs: []uuid.UUID{f.orgB.OrganizationID}})
	require.NoError(t, err)
	assert.Equal(t, &Stats{ProjectCount: 2, StructureSum: 10, ProjectTotalLengthKm: 15}, creek)
}

func TestStats_Empty(t *testing.T) {
	svc, _, _ := newTestService(t)
	got, err := svc.Stats(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, got)
}

func TestLengthKilometers(t *testing.T) {
	assert.Equal(t, 15.2, LengthKilometers(15234))
	assert.Equal(t, 0.1, LengthKilometers(50))
	assert.Equal(t, 0.0, LengthKilometers(49))
	assert.Equal(t, 1.3, LengthKilometers(1250))
}

func TestMarkers(t *testing.T) {
	f := newSearchFixture(t)
	got, err := f.svc.Markers(context.Background(), Filter{Term: "Salmon"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, f.salmon, m.ID)
	assert.Equal(t, "Salmon River", m.ProjectName)
	assert.Equal(t, "Sandy", m.Watershed)
	assert.InDelta(t, 44.042969, m.Latitude, 1e-9)
	assert.InDelta(t, -121.333482, m.Longitude, 1e-9)
	assert.Equal(t, "/projects/"+f.salmon.String(), m.Path)
}
