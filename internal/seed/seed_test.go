package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obstetric/obstetric/internal/domain/medication"
	"github.com/obstetric/obstetric/internal/domain/rooms"
)

const sample = `
rooms:
  - code: PP-01
    name: Preparto 1
    kind: PREPARTO
  - code: PB-01
    name: Pabellón 1
    kind: PABELLON
medications:
  - name: Oxitocina
    presentation: ampolla 5 UI/ml
    default_dose: 5 UI
    route: EV
  - name: Paracetamol
`

type fakeRooms struct {
	got []*rooms.Room
	err error
}

func (f *fakeRooms) Upsert(_ context.Context, r *rooms.Room) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, r)
	return nil
}

type fakeMeds struct{ got []*medication.Medication }

func (f *fakeMeds) UpsertMedication(_ context.Context, m *medication.Medication) error {
	f.got = append(f.got, m)
	return nil
}

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, c.Rooms, 2)
	require.Len(t, c.Medications, 2)
	assert.Equal(t, "PB-01", c.Rooms[1].Code)
	assert.Equal(t, "5 UI", c.Medications[0].DefaultDose)
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.Rooms)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("rooms:\n  - code: X\n    floor: 2\n"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	rs, ms := &fakeRooms{}, &fakeMeds{}
	res, err := Apply(context.Background(), c, rs, ms)
	require.NoError(t, err)
	assert.Equal(t, Result{Rooms: 2, Medications: 2}, res)

	assert.Equal(t, rooms.KindTheatre, rs.got[1].Kind)
	require.NotNil(t, ms.got[0].Route)
	assert.Equal(t, "EV", *ms.got[0].Route)
	assert.True(t, ms.got[0].Active)
	assert.Nil(t, ms.got[1].DefaultDose)
}

func TestApply_StopsOnError(t *testing.T) {
	c := &Catalog{Rooms: []Room{{Code: "A"}}, Medications: []Medication{{Name: "x"}}}
	rs, ms := &fakeRooms{err: errors.New("boom")}, &fakeMeds{}
	res, err := Apply(context.Background(), c, rs, ms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room 0 (A)")
	assert.Zero(t, res.Medications)
	assert.Empty(t, ms.got)
}
