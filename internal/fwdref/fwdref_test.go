package fwdref_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const k = 1024

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestCell_SetOnce(t *testing.T) {
	var c fwdref.Cell[float64]
	assert.True(t, c.Set(0.088))
	assert.False(t, c.Set(0.070))
	v, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.088, v)
}

func TestRecord_SetOnceIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := fwdref.NewRecord(newLogger(&buf), 3)

	first := event.NewPool(24<<20, 4<<20, 256<<20)
	second := event.NewPool(1, 1, 1)
	assert.True(t, r.SetPool(fwdref.Heap, first))
	assert.False(t, r.SetPool(fwdref.Heap, second))
	assert.Same(t, first, r.PoolValue(fwdref.Heap))
	assert.Contains(t, buf.String(), "rejected duplicate write")
	assert.Contains(t, buf.String(), "field=heap")

	assert.True(t, r.SetCause(event.CauseG1EvacuationPause))
	assert.False(t, r.SetCause(event.CauseSystemGC))
	assert.Equal(t, event.CauseG1EvacuationPause, r.Cause())

	assert.True(t, r.SetPhase("Pre Evacuate Collection Set", 0.0001))
	assert.False(t, r.SetPhase("Pre Evacuate Collection Set", 0.5))
	v, _ := r.Phase("Pre Evacuate Collection Set")
	assert.Equal(t, 0.0001, v)
}

func TestRecord_BuildRequiresType(t *testing.T) {
	r := fwdref.NewRecord(nil, 4)
	r.SetStart(event.NewUptime(4.352))

	_, err := r.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fwdref.ErrPrematureBuild))

	var be *fwdref.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 4, be.ID)
}

func TestRecord_BuildRequiresStart(t *testing.T) {
	r := fwdref.NewRecord(nil, 4)
	r.SetType(event.G1Remark)
	_, err := r.Build()
	var be *fwdref.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, event.G1Remark, be.Type)
}

func TestRecord_DerivedPools(t *testing.T) {
	heap := event.NewOccupancy(49652*k, 81280*k)
	tenured := event.NewOccupancy(33532*k, 62656*k)

	t.Run("young from heap and tenured", func(t *testing.T) {
		r := fwdref.NewRecord(nil, -1)
		r.SetType(event.CMSInitialMark)
		r.SetStart(event.NewUptime(12.986))
		r.SetPool(fwdref.Heap, heap)
		r.SetPool(fwdref.Tenured, tenured)
		ev, err := r.Build()
		require.NoError(t, err)
		require.NotNil(t, ev.Young)
		assert.Equal(t, int64(16120*k), ev.Young.OccupancyBefore)
		assert.Equal(t, int64(18624*k), ev.Young.SizeBefore)
	})

	t.Run("tenured from heap eden and survivor", func(t *testing.T) {
		r := fwdref.NewRecord(nil, 0)
		r.SetType(event.G1Young)
		r.SetStart(event.NewUptime(0.402))
		r.SetPool(fwdref.Heap, &event.MemoryPoolSummary{OccupancyBefore: 24 << 20, SizeBefore: 256 << 20, OccupancyAfter: 4 << 20, SizeAfter: 256 << 20})
		r.SetPool(fwdref.Eden, &event.MemoryPoolSummary{OccupancyBefore: 20 << 20, SizeBefore: 24 << 20, OccupancyAfter: 0, SizeAfter: 13 << 20})
		r.SetPool(fwdref.Survivor, &event.MemoryPoolSummary{OccupancyBefore: 1 << 20, SizeBefore: 1 << 20, OccupancyAfter: 3 << 20, SizeAfter: 3 << 20})
		ev, err := r.Build()
		require.NoError(t, err)
		require.NotNil(t, ev.Tenured)
		assert.Equal(t, int64(3<<20), ev.Tenured.OccupancyBefore)
		assert.Equal(t, int64(1<<20), ev.Tenured.OccupancyAfter)
		require.NotNil(t, ev.Young)
		assert.Equal(t, int64(21<<20), ev.Young.OccupancyBefore)
	})

	t.Run("missing input leaves pool absent", func(t *testing.T) {
		r := fwdref.NewRecord(nil, 0)
		r.SetType(event.G1Young)
		r.SetStart(event.NewUptime(0.402))
		r.SetPool(fwdref.Heap, heap)
		r.SetPool(fwdref.Eden, event.NewPool(20<<20, 0, 24<<20))
		ev, err := r.Build()
		require.NoError(t, err)
		assert.Nil(t, ev.Tenured)
		assert.Nil(t, ev.Young)
		assert.Nil(t, ev.Survivor)
	})
}

func TestRecord_BuildCarriesFields(t *testing.T) {
	r := fwdref.NewRecord(nil, 7)
	r.SetType(event.ZGCCycle)
	r.SetStart(event.NewUptime(1.5))
	r.SetDuration(0.25)
	r.SetLoad([]float64{1.1, 0.9, 0.5})
	r.SetMMU("2ms", 0)
	r.SetMMU("5ms", 48.6)
	r.SetHeapCell("Used", "Mark Start", 96<<20)
	assert.False(t, r.SetHeapCell("Used", "Mark Start", 1))
	r.SetZMetaspace(4<<20, 4<<20, 1<<30)
	r.AddRegion(event.RegionSummary{Name: "Eden", Before: 24, After: 0, Capacity: 150})
	assert.False(t, r.AddRegion(event.RegionSummary{Name: "Eden"}))

	ev, err := r.Build()
	require.NoError(t, err)
	assert.Equal(t, 7, ev.GCID)
	assert.Equal(t, 0.25, ev.Duration)
	require.NotNil(t, ev.ZGC)
	assert.Equal(t, []float64{1.1, 0.9, 0.5}, ev.ZGC.Load)
	assert.Equal(t, 48.6, ev.ZGC.MMU["5ms"])
	assert.Equal(t, int64(96<<20), ev.ZGC.Heap["Used"]["Mark Start"])
	assert.Equal(t, int64(1<<30), ev.ZGC.MetaspaceReserved)
	assert.Len(t, ev.Regions, 1)
	assert.Nil(t, ev.Heap)
}

func TestRecord_Tenuring(t *testing.T) {
	r := fwdref.NewRecord(nil, -1)
	r.SetTenuring(&event.TenuringDistribution{DesiredSurvivorSize: 1048576, CalculatedThreshold: 1, MaxThreshold: 15})
	assert.True(t, r.AddAge(event.AgeBucket{Age: 1, Bytes: 2202656, Total: 2202656}))
	assert.False(t, r.AddAge(event.AgeBucket{Age: 1, Bytes: 1, Total: 1}))
	r.SetType(event.SurvivorRecord)
	r.SetStart(event.NewUptime(2.382))

	ev, err := r.Build()
	require.NoError(t, err)
	require.NotNil(t, ev.Tenuring)
	assert.Equal(t, 15, ev.Tenuring.MaxThreshold)
	assert.Equal(t, []event.AgeBucket{{Age: 1, Bytes: 2202656, Total: 2202656}}, ev.Tenuring.Ages)
}

func TestRecord_Discard(t *testing.T) {
	var buf bytes.Buffer
	r := fwdref.NewRecord(newLogger(&buf), 3)
	r.SetType(event.G1Remark)
	r.Discard("end of data")
	assert.Contains(t, buf.String(), "discarding unbuilt event")
	assert.Contains(t, buf.String(), "type=g1_remark")
}

func TestArena(t *testing.T) {
	a := fwdref.NewArena[fwdref.Record]()
	mk := func(id int) func() *fwdref.Record {
		return func() *fwdref.Record { return fwdref.NewRecord(nil, id) }
	}

	r3 := a.Open(3, mk(3))
	r4 := a.Open(4, mk(4))
	assert.Same(t, r3, a.Open(3, mk(3)))
	assert.Equal(t, 2, a.Len())

	got, ok := a.Remove(3)
	require.True(t, ok)
	assert.Same(t, r3, got)
	_, ok = a.Get(3)
	assert.False(t, ok)

	// the freed slot is reused but creation order is kept
	r5 := a.Open(5, mk(5))
	assert.Equal(t, []int{4, 5}, a.IDs())

	drained := a.Drain()
	assert.Equal(t, []*fwdref.Record{r4, r5}, drained)
	assert.Equal(t, 0, a.Len())
	_, ok = a.Remove(4)
	assert.False(t, ok)
}
