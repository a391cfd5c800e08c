package pattern

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkRegexParser_SinglePattern(b *testing.B) {
	parser, err := NewRegexParser(&PatternFile{
		Version:  1,
		Patterns: []Pattern{{ID: "dump", EventType: "heap_dump", Regex: `Heap dump file created \[(?P<bytes>\d+) bytes`}},
	})
	if err != nil {
		b.Fatalf("Failed to create parser: %v", err)
	}

	line := "12.345: Heap dump file created [1048576 bytes in 0.120 secs]"
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = parser.ParseLine(ctx, line)
	}
}

func BenchmarkRegexParser_NoMatch(b *testing.B) {
	patterns := make([]Pattern, 20)
	for i := range patterns {
		patterns[i] = Pattern{ID: fmt.Sprintf("p%d", i), EventType: fmt.Sprintf("custom_%d", i), Regex: fmt.Sprintf(`marker %d: (?P<v>\w+)`, i)}
	}
	parser, err := NewRegexParser(&PatternFile{Version: 1, Patterns: patterns})
	if err != nil {
		b.Fatalf("Failed to create parser: %v", err)
	}

	line := "2018-04-04T09:10:01.382-0100: 13.782: [GC (Allocation Failure) 13.782: [ParNew: 17472K->2176K(19648K), 0.0123 secs] 51004K->38511K(82304K), 0.0124 secs]"
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = parser.ParseLine(ctx, line)
	}
}
