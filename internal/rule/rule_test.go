package rule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const k = 1024

var (
	initialMark = rule.New("cms initial mark",
		rule.Stamp()+`\[GC ?`+rule.Cause()+`\[1 CMS-initial-mark: `+rule.Occupancy("tenured")+`\] `+
			rule.Occupancy("heap")+`, `+rule.Pause("pause")+`\]`)

	parNew = rule.New("parnew",
		rule.Stamp()+`\[GC `+rule.Cause()+`(?:`+rule.UptimeRE+`: )?\[ParNew: `+rule.Pool("young")+`, `+
			rule.Pause("ypause")+`\] `+rule.Pool("heap")+`, `+rule.Pause("pause")+`\]`)

	times = rule.New("times", rule.Times())

	g1Heap = rule.New("g1 heap",
		`\[Eden: `+rule.SizedPool("eden")+` Survivors: `+rule.Mem("surv_b")+`->`+rule.Mem("surv_a")+
			` Heap: `+rule.SizedPool("heap")+`\]`)

	fullGC = rule.New("full gc", rule.Stamp()+`\[Full GC `+rule.Cause()+`\[PSYoungGen: `+rule.Pool("young")+`\]`)

	unifiedPause = rule.New("unified pause",
		rule.GCID()+`Pause Young `+rule.Opt(`\(`+rule.Group("kind", `Normal|Concurrent Start|Prepare Mixed|Mixed`)+`\) `)+
			rule.Cause()+rule.Pool("heap")+` `+rule.Duration("pause"))
)

func TestRule_InitialMark(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		cause event.Cause
	}{
		{
			name: "no cause",
			line: "12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]",
		},
		{
			name:  "cause",
			line:  "2.345: [GC (CMS Initial Mark) [1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs] [Times: user=0.00 sys=0.00, real=0.00 secs]",
			cause: event.CauseCMSInitialMark,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := initialMark.Parse(tt.line)
			require.NotNil(t, tr)

			tenured, err := tr.Occupancy("tenured")
			require.NoError(t, err)
			assert.Equal(t, int64(33532*k), tenured.OccupancyBefore)
			assert.Equal(t, int64(62656*k), tenured.SizeAfter)

			heap, err := tr.Occupancy("heap")
			require.NoError(t, err)
			assert.Equal(t, int64(49652*k), heap.OccupancyBefore)

			pause, err := tr.Duration("pause")
			require.NoError(t, err)
			assert.InDelta(t, 0.0014191, pause, 1e-12)
			assert.Equal(t, tt.cause, tr.Cause())
		})
	}
}

func TestRule_NoMatch(t *testing.T) {
	assert.Nil(t, initialMark.Parse("27.538: [CMS-concurrent-mark-start]"))
	assert.False(t, parNew.Matches(""))
}

func TestRule_ParNewAndTimes(t *testing.T) {
	line := "2.382: [GC (Allocation Failure) 2.382: [ParNew: 17472K->2176K(19648K), 0.0123 secs] 17472K->5003K(63360K), 0.0124 secs] [Times: user=0.03 sys=0.01, real=0.01 secs]"

	tr := parNew.Parse(line)
	require.NotNil(t, tr)
	ts, ok, err := tr.Stamp()
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.382, ts.Uptime, 1e-9)
	assert.False(t, ts.HasWall())
	assert.Equal(t, event.CauseAllocationFailure, tr.Cause())

	young, err := tr.Pool("young")
	require.NoError(t, err)
	assert.Equal(t, &event.MemoryPoolSummary{
		OccupancyBefore: 17472 * k, SizeBefore: 19648 * k,
		OccupancyAfter: 2176 * k, SizeAfter: 19648 * k,
	}, young)

	heap, err := tr.Pool("heap")
	require.NoError(t, err)
	assert.Equal(t, int64(5003*k), heap.OccupancyAfter)

	cpu, err := times.Parse(line).CPU()
	require.NoError(t, err)
	assert.Equal(t, &event.CPUSummary{User: 0.03, Sys: 0.01, Real: 0.01}, cpu)
}

func TestRule_DateStamp(t *testing.T) {
	line := "2018-04-04T09:10:00.586-0100: 12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]"
	tr := initialMark.Parse(line)
	require.NotNil(t, tr)

	ts, ok, err := tr.Stamp()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ts.Wall.Equal(time.Date(2018, 4, 4, 10, 10, 0, 586_000_000, time.UTC)))
	assert.InDelta(t, 12.986, ts.Uptime, 1e-9)
}

func TestRule_SizedPool(t *testing.T) {
	line := "[Eden: 24.0M(24.0M)->0.0B(13.0M) Survivors: 0.0B->3072.0K Heap: 24.0M(256.0M)->6930.1K(256.0M)]"
	tr := g1Heap.Parse(line)
	require.NotNil(t, tr)

	eden, err := tr.Pool("eden")
	require.NoError(t, err)
	assert.Equal(t, &event.MemoryPoolSummary{
		OccupancyBefore: 24 << 20, SizeBefore: 24 << 20,
		OccupancyAfter: 0, SizeAfter: 13 << 20,
	}, eden)

	heap, err := tr.Pool("heap")
	require.NoError(t, err)
	assert.Equal(t, int64(7096422), heap.OccupancyAfter)

	surv, err := tr.Bytes("surv_a")
	require.NoError(t, err)
	assert.Equal(t, int64(3072*k), surv)
}

func TestRule_NestedCause(t *testing.T) {
	line := "5.109: [Full GC (System.gc()) [PSYoungGen: 2208K->0K(38400K)] [ParOldGen: 8K->2042K(87552K)] 2216K->2042K(125952K), [Metaspace: 2671K->2671K(1056768K)], 0.0145 secs]"
	tr := fullGC.Parse(line)
	require.NotNil(t, tr)
	assert.Equal(t, event.CauseSystemGC, tr.Cause())
	assert.True(t, tr.Cause().IsSystemGC())
}

func TestRule_UnifiedPause(t *testing.T) {
	line := "GC(5) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.514ms"
	tr := unifiedPause.Parse(line)
	require.NotNil(t, tr)

	id, err := tr.Int("gcid")
	require.NoError(t, err)
	assert.Equal(t, 5, id)
	assert.Equal(t, "Normal", tr.Group("kind"))
	assert.Equal(t, event.CauseG1EvacuationPause, tr.Cause())

	d, err := tr.Duration("pause")
	require.NoError(t, err)
	assert.InDelta(t, 0.003514, d, 1e-12)
}

func TestTrace_Duration(t *testing.T) {
	r := rule.New("duration", `took `+rule.Duration("d"))
	tests := []struct {
		line string
		want float64
	}{
		{"took 0.088 secs", 0.088},
		{"took 12.345ms", 0.012345},
		{"took 250us", 0.00025},
		{"took 1500ns", 0.0000015},
		{"took 1.5s", 1.5},
		{"took 0,0014191 secs", 0.0014191},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tr := r.Parse(tt.line)
			require.NotNil(t, tr)
			got, err := tr.Duration("d")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestTrace_SecondsAbsent(t *testing.T) {
	r := rule.New("optional", `Pause Remark`+rule.Opt(` `+rule.Duration("d")))
	tr := r.Parse("Pause Remark")
	require.NotNil(t, tr)
	got, err := tr.Seconds("d")
	require.NoError(t, err)
	assert.Equal(t, event.UnknownDuration, got)
}

func TestTrace_ValueError(t *testing.T) {
	r := rule.New("counter", `count=`+rule.Int("n"))
	tr := r.Parse("count=99999999999999999999")
	require.NotNil(t, tr)

	_, err := tr.Int("n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rule.ErrBadValue))

	var ve *rule.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "counter", ve.Rule)
	assert.Equal(t, "n", ve.Group)
}

func TestTrace_PoolAbsent(t *testing.T) {
	r := rule.New("maybe pool", `heap`+rule.Opt(` `+rule.Pool("heap")))
	tr := r.Parse("heap")
	require.NotNil(t, tr)
	p, err := tr.Pool("heap")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0B", 0},
		{"512B", 512},
		{"1024K", 1 << 20},
		{"255M", 255 << 20},
		{"1.5G", 3 << 29},
		{"6930,1K", 7096422},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := rule.ParseBytes(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := rule.ParseBytes("1024")
	assert.Error(t, err)
	_, err = rule.ParseBytes("")
	assert.Error(t, err)
}

func TestParseAll(t *testing.T) {
	r := rule.New("pool", rule.Pool("p"))
	all := r.ParseAll("[PSYoungGen: 2208K->0K(38400K)] [ParOldGen: 8K->2042K(87552K)] 2216K->2042K(125952K)")
	assert.Len(t, all, 3)
}

func TestFirst(t *testing.T) {
	line := "27.538: [CMS-concurrent-mark-start]"
	start := rule.New("start", `\[CMS-concurrent-`+rule.Group("phase", `[a-z-]+`)+`-start\]`)
	assert.Nil(t, rule.First(line, initialMark, parNew))
	tr := rule.First(line, initialMark, start)
	require.NotNil(t, tr)
	assert.Equal(t, "mark", tr.Group("phase"))
	assert.Equal(t, "start", tr.Rule().Name())
}

func FuzzParseBytes(f *testing.F) {
	for _, s := range []string{"0B", "33532K", "1.5G", "6930,1K", "", "K", "1e9M"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		_, _ = rule.ParseBytes(s)
	})
}
