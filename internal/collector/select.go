package collector

import (
	"log/slog"

	"github.com/gclog/gclog-go/pkg/gclog/diary"
)

// Select returns the parsers for the log d describes, in the order they
// see each line. When the collector could not be identified the parsers of
// the dialect are tried in turn under a ChainFirst chain, so a line is
// claimed by one parser at most. The survivor and runtime parsers see every
// line, and the runtime parser is always last so that its termination event
// follows every collector event.
func Select(d *diary.Diary, log *slog.Logger) []Parser {
	var ps []Parser
	if d.IsUnified() {
		ps = selectUnified(d, log)
	} else {
		ps = selectUndecorated(d, log)
	}
	if d.State(diary.TenuringDistribution) != diary.False {
		ps = append(ps, NewSurvivor(log))
	}
	return append(ps, NewJVM(log))
}

func selectUnified(d *diary.Diary, log *slog.Logger) []Parser {
	switch {
	case d.IsG1():
		return []Parser{NewUnifiedG1(log)}
	case d.IsZGC():
		return []Parser{NewZGC(log)}
	case d.IsShenandoah():
		return []Parser{NewShenandoah(log)}
	case d.CollectorKnown():
		return []Parser{NewUnifiedGenerational(d, log)}
	}
	return []Parser{claimFirst(
		NewUnifiedGenerational(d, log),
		NewUnifiedG1(log),
		NewZGC(log),
		NewShenandoah(log),
	)}
}

func selectUndecorated(d *diary.Diary, log *slog.Logger) []Parser {
	if !d.CollectorKnown() {
		return []Parser{claimFirst(
			NewGenerational(d, log),
			NewCMSTenured(log),
			NewG1(d, log),
			NewShenandoah(log),
		)}
	}
	var ps []Parser
	regional := d.IsG1() || d.IsShenandoah()
	if d.GenerationalKnown() || !regional {
		ps = append(ps, NewGenerational(d, log))
	}
	if d.IsCMS() {
		ps = append(ps, NewCMSTenured(log))
	}
	if d.IsG1() {
		ps = append(ps, NewG1(d, log))
	}
	if d.IsShenandoah() {
		ps = append(ps, NewShenandoah(log))
	}
	return ps
}

func claimFirst(ps ...Parser) *Chain {
	return &Chain{Mode: ChainFirst, Parsers: ps}
}
