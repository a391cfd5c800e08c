package collector_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gclog/gclog-go/internal/collector"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const (
	K = int64(1) << 10
	M = int64(1) << 20
)

func diaryOf(flags ...diary.Flag) *diary.Diary {
	b := diary.NewBuilder(false)
	b.SetTrue(flags...)
	return b.Build()
}

// run feeds every non-blank line of log and then the sentinel through ps.
func run(t *testing.T, ps []collector.Parser, log string) []event.Event {
	t.Helper()
	chain := &collector.Chain{Parsers: ps}
	var out []event.Event
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		res, err := chain.ParseLine(context.Background(), line)
		require.NoError(t, err)
		out = append(out, res.Events...)
	}
	res, err := chain.ParseLine(context.Background(), collector.EndOfData)
	require.NoError(t, err)
	return append(out, res.Events...)
}

func capture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func ofType(events []event.Event, t event.Type) []event.Event {
	var out []event.Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func types(events []event.Event) []event.Type {
	out := make([]event.Type, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}
