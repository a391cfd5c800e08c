package rule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gclog/gclog-go/internal/rule"
)

func TestParseDecorators(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		uptime  float64
		wall    time.Time
		level   string
		tags    string
		gcid    int
		body    string
		message string
	}{
		{
			name:    "uptime level tags",
			line:    "[0.019s][info][gc,init] Using G1",
			uptime:  0.019,
			level:   "info",
			tags:    "gc,init",
			gcid:    -1,
			body:    "Using G1",
			message: "Using G1",
		},
		{
			name:    "padded level and tags",
			line:    "[4.352s][info   ][gc,start     ] GC(3) Pause Remark",
			uptime:  4.352,
			level:   "info",
			tags:    "gc,start",
			gcid:    3,
			body:    "Pause Remark",
			message: "GC(3) Pause Remark",
		},
		{
			name:    "time and uptime",
			line:    "[2020-03-27T11:33:16.211+0100][0.402s][info][gc] GC(0) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.514ms",
			uptime:  0.402,
			wall:    time.Date(2020, 3, 27, 10, 33, 16, 211_000_000, time.UTC),
			level:   "info",
			tags:    "gc",
			gcid:    0,
			body:    "Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.514ms",
			message: "GC(0) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.514ms",
		},
		{
			name:    "timemillis and uptimemillis",
			line:    "[1585305196211ms][402ms][info][gc,heap] GC(0) Eden regions: 24->0(150)",
			uptime:  0.402,
			wall:    time.UnixMilli(1585305196211).UTC(),
			level:   "info",
			tags:    "gc,heap",
			gcid:    0,
			body:    "Eden regions: 24->0(150)",
			message: "GC(0) Eden regions: 24->0(150)",
		},
		{
			name:    "uptimenanos with pid and tid",
			line:    "[402000000ns][12345][12346][info][safepoint] Safepoint \"G1CollectForAllocation\"",
			uptime:  0.402,
			level:   "info",
			tags:    "safepoint",
			gcid:    -1,
			body:    "Safepoint \"G1CollectForAllocation\"",
			message: "Safepoint \"G1CollectForAllocation\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := rule.ParseDecorators(tt.line)
			require.True(t, ok)
			assert.InDelta(t, tt.uptime, d.Uptime, 1e-9)
			assert.True(t, tt.wall.Equal(d.Wall), "wall %v", d.Wall)
			assert.Equal(t, tt.level, d.Level)
			assert.Equal(t, tt.tags, d.TagSet())
			assert.Equal(t, tt.gcid, d.GCID())
			assert.Equal(t, tt.body, d.Body())
			assert.Equal(t, tt.message, d.Message())
		})
	}
}

func TestParseDecorators_Undecorated(t *testing.T) {
	lines := []string{
		"12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]",
		"[Times: user=0.01 sys=0.00, real=0.00 secs]",
		"[Eden: 24.0M(24.0M)->0.0B(13.0M) Survivors: 0.0B->3072.0K Heap: 24.0M(256.0M)->6930.1K(256.0M)]",
		"[Parallel Time: 3.5 ms, GC Workers: 4]",
		"",
	}
	for _, line := range lines {
		_, ok := rule.ParseDecorators(line)
		assert.False(t, ok, line)
	}
}

func TestDecorators_HasTag(t *testing.T) {
	d, ok := rule.ParseDecorators("[0.402s][info][gc,phases,start] GC(0) Phase 1: Mark live objects")
	require.True(t, ok)
	assert.True(t, d.HasTag("phases"))
	assert.False(t, d.HasTag("heap"))
	assert.InDelta(t, 0.402, d.Stamp().Uptime, 1e-9)
}

func FuzzParseDecorators(f *testing.F) {
	f.Add("[0.019s][info][gc,init] Using G1")
	f.Add("[2020-03-27T11:33:16.211+0100][0.402s][info][gc] GC(0) Pause Young")
	f.Add("[info][gc] GC(")
	f.Add("[")
	f.Fuzz(func(t *testing.T, line string) {
		d, ok := rule.ParseDecorators(line)
		if !ok {
			return
		}
		_ = d.GCID()
		_ = d.Body()
	})
}
