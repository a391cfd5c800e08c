package pattern_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/pattern"
)

// ExampleLoad demonstrates loading and validating a pattern file.
func ExampleLoad() {
	pf, err := pattern.Load("testdata/valid.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Version: %d\n", pf.Version)
	fmt.Printf("Patterns: %d\n", len(pf.Patterns))
	fmt.Printf("First pattern ID: %s\n", pf.Patterns[0].ID)

	// Output:
	// Version: 1
	// Patterns: 2
	// First pattern ID: heap_dump
}

// ExampleRegexParser_withEngine runs custom patterns next to the collector
// parsers.
func ExampleRegexParser_withEngine() {
	pf, err := pattern.LoadBytes([]byte(`version: 1
patterns:
  - id: heap_dump
    event_type: heap_dump
    regex: 'Heap dump file created \[(?P<bytes>\d+) bytes'
`))
	if err != nil {
		log.Fatal(err)
	}
	parser, err := pattern.NewRegexParser(pf)
	if err != nil {
		log.Fatal(err)
	}

	gcLog := `12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]
13.100: Heap dump file created [1048576 bytes in 0.120 secs]`

	for ev, err := range gclog.ParseReader(context.Background(), strings.NewReader(gcLog), gclog.WithParser(parser)) {
		if err != nil {
			log.Fatal(err)
		}
		if ev.Data != nil {
			fmt.Printf("%s (%s) bytes=%s\n", ev.Type, ev.Category, ev.Data["bytes"])
			continue
		}
		fmt.Printf("%s (%s)\n", ev.Type, ev.Category)
	}
	// Output:
	// cms_initial_mark (tenured)
	// heap_dump (custom) bytes=1048576
	// jvm_termination (jvm)
}
