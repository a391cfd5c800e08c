package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const zCycleRE = `Garbage Collection|Major Collection|Minor Collection`

// ZGC cycle lines. Rules apply to the message body after its GC(n) prefix.
var (
	// Matches: "Garbage Collection (Warmup)"
	// Matches: "Garbage Collection (Warmup) 16M(0%)->14M(0%)"
	// Captures: cause, used_b, pct_b, used_a, pct_a
	zCycleRule = rule.New("zgc cycle",
		`^(?:`+zCycleRE+`) `+parenCause+
			rule.Opt(` `+rule.Mem("used_b")+`\(`+rule.Percent("pct_b")+`\)->`+
				rule.Mem("used_a")+`\(`+rule.Percent("pct_a")+`\)`)+`$`)

	// Matches: "Pause Mark Start 0.039ms"
	// Matches: "Concurrent Process Non-Strong References 0.196ms"
	zPhaseRule = rule.New("zgc phase",
		`^`+rule.Group("name", `(?:Pause|Concurrent|Subphase) [A-Za-z][A-Za-z -]*?`)+` `+rule.Duration("d")+`$`)

	// Matches: "Load: 0.42/0.35/0.23"
	zLoadRule = rule.New("zgc load",
		`^Load: `+rule.Real("l1")+`/`+rule.Real("l5")+`/`+rule.Real("l15")+`$`)

	// Matches: "MMU: 2ms/97.9%, 5ms/99.2%, 10ms/99.6%"
	zMMURule = rule.New("zgc mmu", `^MMU: `+rule.Group("windows", `.+`)+`$`)

	// Matches: "2ms/97.9%"
	zWindowRule = rule.New("zgc mmu window", rule.Group("w", rule.RealRE+`ms`)+`/`+rule.Percent("p"))

	// Matches: "Metaspace: 8M used, 8M committed, 1056M reserved"
	// Matches: "Metaspace: 4M used, 4M capacity, 5M committed, 8M reserved"
	zMetaspaceRule = rule.New("zgc metaspace",
		`^Metaspace: `+rule.Mem("used")+` used, `+rule.Opt(rule.MemRE+` capacity, `)+
			rule.Mem("committed")+` committed, `+rule.Mem("reserved")+` reserved$`)

	// Matches: "Relocation: Successful, 6M relocated"
	zRelocationRule = rule.New("zgc relocation",
		`^Relocation: [A-Za-z]+, `+rule.Mem("moved")+` relocated$`)

	// Matches: "Mark Start          Mark End        Relocate Start      Relocate End           High               Low"
	zHeaderRule = rule.New("zgc heap header", `^Mark Start\s.*$`)

	// Matches: "Mark Start"
	zColumnRule = rule.New("zgc heap column", `[A-Z][a-z]+(?: [A-Z][a-z]+)*`)

	// Matches: "Capacity:      114M (1%)          114M (1%)          -"
	zRowRule = rule.New("zgc heap row",
		`^`+rule.Group("row", `Capacity|Reserve|Free|Used|Live|Allocated|Garbage|Reclaimed|Compacted|Promoted`)+
			`:\s+`+rule.Group("cells", `.*`)+`$`)

	// Matches: "114M (1%)", "-"
	zCellRule = rule.New("zgc heap cell", `-|`+rule.Mem("mem")+` \(`+rule.Percent("pct")+`\)`)

	// Matches: "Allocation Stall (main) 0.204ms"
	zStallRule = rule.New("zgc allocation stall",
		`^Allocation Stall \(`+rule.Group("thread", `[^()]+`)+`\) `+rule.Duration("d")+`$`)
)

// capacityColumn is the heap table cell used as the heap size. Without a
// heap table the size is implied by the occupancy percentage.
const capacityColumn = "Mark Start"

// ZGC reads ZGC cycles from decorated logs. A cycle opens at its
// "Garbage Collection (cause)" line and is emitted at the repeated line
// that carries the heap occupancy; everything logged under the same GC id
// in between enriches it.
type ZGC struct {
	base
	open     *fwdref.Arena[fwdref.Record]
	columns  map[int][]string
	capacity map[int]int64
}

// NewZGC returns a ZGC parser.
func NewZGC(log *slog.Logger) *ZGC {
	return &ZGC{
		base:     newBase(log, "zgc"),
		open:     fwdref.NewArena[fwdref.Record](),
		columns:  make(map[int][]string),
		capacity: make(map[int]int64),
	}
}

var _ Parser = (*ZGC)(nil)

// ParseLine implements Parser.
func (p *ZGC) ParseLine(_ context.Context, line string) (Result, error) {
	var out []event.Event
	if line == EndOfData {
		for _, r := range p.open.Drain() {
			r.Discard("end of data")
		}
		clear(p.columns)
		clear(p.capacity)
		return Result{}, nil
	}
	dl, ok := decorate(line)
	if !ok {
		return Result{}, nil
	}
	if tr := zStallRule.Parse(dl.body); tr != nil {
		stalled, err := p.stall(out, dl, tr)
		if err != nil {
			p.malformed(line, err)
		}
		return result(stalled, true), nil
	}
	if dl.id < 0 {
		return Result{}, nil
	}

	tr := rule.First(dl.body, zCycleRule, zPhaseRule, zLoadRule, zMMURule, zMetaspaceRule,
		zRelocationRule, zHeaderRule, zRowRule)
	if tr == nil {
		return Result{}, nil
	}

	var err error
	if tr.Rule() == zCycleRule {
		out, err = p.cycle(out, dl, tr)
	} else if r, ok := p.open.Get(dl.id); ok {
		err = p.detail(r, dl.id, tr)
	}
	if err != nil {
		p.malformed(line, err)
		if r, ok := p.open.Remove(dl.id); ok {
			r.Discard(err.Error())
		}
		p.forget(dl.id)
	}
	return result(out, true), nil
}

// cycle opens the cycle on its first line and emits it on the second.
func (p *ZGC) cycle(out []event.Event, dl decorated, tr *rule.Trace) ([]event.Event, error) {
	if !tr.Has("used_b") {
		r := p.open.Open(dl.id, func() *fwdref.Record { return p.record(dl.id) })
		r.SetType(event.ZGCCycle)
		r.SetStart(dl.ts)
		r.SetCause(tr.Cause())
		return out, nil
	}

	r, ok := p.open.Remove(dl.id)
	size, sized := p.capacity[dl.id]
	p.forget(dl.id)
	if !ok {
		p.log.Debug("cycle summary without a start line", slog.Int("gc_id", dl.id))
		return out, nil
	}
	f := read(tr)
	before, after := f.bytes("used_b"), f.bytes("used_a")
	pct := f.float("pct_b")
	if f.err != nil {
		r.Discard(f.err.Error())
		return out, f.err
	}
	if start, ok := r.Start(); ok {
		r.SetDuration(dl.ts.Sub(start))
	}
	if !sized {
		size = before
		if pct > 0 {
			size = int64(float64(before) * 100 / pct)
		}
	}
	r.SetPool(fwdref.Heap, event.NewPool(before, after, size))
	return p.build(out, r), nil
}

func (p *ZGC) forget(id int) {
	delete(p.columns, id)
	delete(p.capacity, id)
}

func (p *ZGC) detail(r *fwdref.Record, id int, tr *rule.Trace) error {
	f := read(tr)
	switch tr.Rule() {
	case zPhaseRule:
		d, err := tr.Duration("d")
		if err != nil {
			return err
		}
		r.SetPhase(tr.Group("name"), d)
	case zLoadRule:
		load := []float64{f.float("l1"), f.float("l5"), f.float("l15")}
		if f.err != nil {
			return f.err
		}
		r.SetLoad(load)
	case zMMURule:
		for _, w := range zWindowRule.ParseAll(tr.Group("windows")) {
			pct, err := w.Float("p")
			if err != nil {
				return err
			}
			r.SetMMU(w.Group("w"), pct)
		}
	case zMetaspaceRule:
		used, committed, reserved := f.bytes("used"), f.bytes("committed"), f.bytes("reserved")
		if f.err != nil {
			return f.err
		}
		r.SetZMetaspace(used, committed, reserved)
	case zRelocationRule:
		moved := f.bytes("moved")
		if f.err != nil {
			return f.err
		}
		r.SetRelocated(moved)
	case zHeaderRule:
		var cols []string
		for _, c := range zColumnRule.ParseAll(tr.Line()) {
			cols = append(cols, c.Text())
		}
		p.columns[id] = cols
	case zRowRule:
		cols := p.columns[id]
		if cols == nil {
			return nil
		}
		row := tr.Group("row")
		for i, c := range zCellRule.ParseAll(tr.Group("cells")) {
			if i >= len(cols) {
				break
			}
			if !c.Has("mem") {
				continue
			}
			v, err := c.Bytes("mem")
			if err != nil {
				return err
			}
			r.SetHeapCell(row, cols[i], v)
			if row == "Capacity" && cols[i] == capacityColumn {
				p.capacity[id] = v
			}
		}
	}
	return nil
}

// stall emits an allocation stall. The line is logged when the stall ends.
func (p *ZGC) stall(out []event.Event, dl decorated, tr *rule.Trace) ([]event.Event, error) {
	d, err := tr.Duration("d")
	if err != nil {
		return out, err
	}
	r := p.record(dl.id)
	r.SetType(event.ZGCAllocationStall)
	r.SetStart(dl.ts.Add(-d))
	r.SetDuration(d)
	r.SetData("thread", tr.Group("thread"))
	return p.build(out, r), nil
}
