package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

var (
	// Matches: "Desired survivor size 1048576 bytes, new threshold 7 (max 15)"
	// Matches: "Desired survivor size 1048576 bytes, new threshold 7 (max threshold 15)"
	desiredRule = rule.New("desired survivor size",
		`Desired survivor size `+rule.Int("desired")+` bytes, new threshold `+rule.Int("threshold")+
			` \(max (?:threshold )?`+rule.Int("max")+`\)`)

	// Matches: "Age table with threshold 7 (max threshold 15)"
	ageTableRule = rule.New("age table", `^Age table with threshold \d+`)

	// Matches: "- age   1:     524288 bytes,     524288 total"
	ageRule = rule.New("age",
		`^- age\s+`+rule.Int("age")+`:\s+`+rule.Int("bytes")+` bytes,\s+`+rule.Int("total")+` total`)
)

// Survivor reads the tenuring distribution printed with each young
// collection. The table opens at its "Desired survivor size" line and is
// emitted at the first line that is not part of it.
type Survivor struct {
	base
	clock clock
	cur   *fwdref.Record
}

// NewSurvivor returns a tenuring distribution parser.
func NewSurvivor(log *slog.Logger) *Survivor {
	return &Survivor{base: newBase(log, "survivor")}
}

var _ Parser = (*Survivor)(nil)

// ParseLine implements Parser.
func (p *Survivor) ParseLine(_ context.Context, line string) (Result, error) {
	if line == EndOfData {
		return result(p.flush(nil), false), nil
	}
	p.clock.observe(line)

	body, id, ts := line, -1, p.clock.now()
	if dl, ok := decorate(line); ok {
		body, id, ts = dl.body, dl.id, dl.ts
	}

	tr := rule.First(body, ageRule, ageTableRule, desiredRule)
	if tr == nil {
		return result(p.flush(nil), false), nil
	}

	var out []event.Event
	switch tr.Rule() {
	case desiredRule:
		out = p.flush(out)
		f := read(tr)
		td := &event.TenuringDistribution{
			DesiredSurvivorSize: f.long("desired"),
			CalculatedThreshold: f.integer("threshold"),
			MaxThreshold:        f.integer("max"),
		}
		if f.err != nil {
			p.malformed(line, f.err)
			break
		}
		p.cur = p.record(id)
		p.cur.SetType(event.SurvivorRecord)
		p.cur.SetStart(ts)
		p.cur.SetTenuring(td)
	case ageRule:
		if p.cur == nil {
			break
		}
		f := read(tr)
		a := event.AgeBucket{Age: f.integer("age"), Bytes: f.long("bytes"), Total: f.long("total")}
		if f.err != nil {
			p.malformed(line, f.err)
			p.cur.Discard(f.err.Error())
			p.cur = nil
			break
		}
		p.cur.AddAge(a)
	}
	return result(out, true), nil
}

func (p *Survivor) flush(out []event.Event) []event.Event {
	if p.cur == nil {
		return out
	}
	out = p.build(out, p.cur)
	p.cur = nil
	return out
}
