package diary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gclog/gclog-go/pkg/gclog/diary"
)

func TestBuilder_FirstAssignmentWins(t *testing.T) {
	b := diary.NewBuilder(false)

	assert.True(t, b.Set(diary.GCCause, true))
	assert.False(t, b.Set(diary.GCCause, false))
	assert.False(t, b.Set(diary.GCCause, true))

	d := b.Build()
	assert.Equal(t, diary.True, d.State(diary.GCCause))
	assert.Equal(t, diary.Unknown, d.State(diary.TenuringDistribution))
}

func TestBuilder_BuildIsSnapshot(t *testing.T) {
	b := diary.NewBuilder(false)
	d := b.Build()
	b.Set(diary.G1GC, true)

	assert.False(t, d.IsG1())
	assert.True(t, b.Build().IsG1())
}

func TestDiary_Complete(t *testing.T) {
	b := diary.NewBuilder(false)
	for i, f := range diary.Flags() {
		assert.False(t, b.Complete(), "complete before flag %d", i)
		b.Set(f, i%2 == 0)
	}
	assert.True(t, b.Complete())
}

func TestDiary_GenerationalKnown(t *testing.T) {
	t.Run("legacy counts g1", func(t *testing.T) {
		b := diary.NewBuilder(false)
		b.SetTrue(diary.G1GC)
		assert.True(t, b.Build().GenerationalKnown())
	})
	t.Run("strict ignores g1", func(t *testing.T) {
		b := diary.NewBuilder(true)
		b.SetTrue(diary.G1GC)
		assert.False(t, b.Build().GenerationalKnown())
	})
	t.Run("young collector", func(t *testing.T) {
		b := diary.NewBuilder(true)
		b.SetTrue(diary.ParNew)
		assert.True(t, b.Build().GenerationalKnown())
	})
	t.Run("all young collectors ruled out", func(t *testing.T) {
		b := diary.NewBuilder(true)
		b.SetFalse(diary.YoungCollectors...)
		assert.True(t, b.Build().GenerationalKnown())
	})
}

func TestFlag_String(t *testing.T) {
	assert.Equal(t, "g1gc", diary.G1GC.String())
	assert.Equal(t, "flag(999)", diary.Flag(999).String())
}
