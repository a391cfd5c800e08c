package diarizer

import (
	"regexp"
	"strings"

	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
)

var all = []diary.Flag{
	diary.DefNew, diary.ParNew, diary.PSYoungGen, diary.SerialOld, diary.PSOldGen,
	diary.ParOldGen, diary.CMS, diary.ICMS, diary.G1GC, diary.ZGC, diary.Shenandoah,
}

func except(flags ...diary.Flag) []diary.Flag {
	out := make([]diary.Flag, 0, len(all))
	for _, f := range all {
		keep := true
		for _, x := range flags {
			if f == x {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, f)
		}
	}
	return out
}

// exclusions maps a collector to the collectors that cannot run alongside it.
var exclusions = map[diary.Flag][]diary.Flag{
	diary.DefNew:     except(diary.DefNew, diary.SerialOld, diary.CMS, diary.ICMS),
	diary.ParNew:     except(diary.ParNew, diary.SerialOld, diary.CMS, diary.ICMS),
	diary.PSYoungGen: except(diary.PSYoungGen, diary.PSOldGen, diary.ParOldGen),
	diary.SerialOld:  except(diary.SerialOld, diary.DefNew, diary.ParNew),
	diary.PSOldGen:   except(diary.PSOldGen, diary.PSYoungGen),
	diary.ParOldGen:  except(diary.ParOldGen, diary.PSYoungGen),
	diary.CMS:        except(diary.CMS, diary.ICMS, diary.DefNew, diary.ParNew),
	diary.G1GC:       except(diary.G1GC),
	diary.ZGC:        except(diary.ZGC),
	diary.Shenandoah: except(diary.Shenandoah),
}

var (
	resolvedAfterFirst = []diary.Flag{
		diary.GCDetails, diary.GCCause, diary.DateStamps, diary.TimeStamps,
		diary.ReferenceGC, diary.AdaptiveSizing, diary.PrintHeapAtGC,
	}
	resolvedAfterSecond = []diary.Flag{
		diary.CPUTimes, diary.TenuringDistribution, diary.ICMS, diary.PermGen,
	}
	// printed after a collection record, so resolved one collection later
	resolvedAfterThird = []diary.Flag{
		diary.ApplicationStoppedTime, diary.ApplicationConcurrentTime, diary.Safepoint,
	}
)

// Undecorated evidence.
var (
	// Matches: "2018-04-04T09:10:00.586-0100: 12.986: [GC"
	dateStampPrefix = regexp.MustCompile(`^` + rule.DateRE + `: `)

	// Matches: "12.986: [GC"
	// Matches: "2018-04-04T09:10:00.586-0100: 12.986: [GC"
	uptimePrefix = regexp.MustCompile(`^(?:` + rule.DateRE + `: )?` + rule.UptimeRE + `: `)

	// Matches: "[GC (Allocation Failure) ..." at line start
	// Excludes: "[GC Worker Start (ms): ..."
	bareRecord = regexp.MustCompile(`^\[(?:Full )?GC(?: \(| ?\d| ?\[| pause)`)

	// Matches: "2018-04-04T09:10:00.586-0100: [GC"
	dateOnlyPrefix = regexp.MustCompile(`^` + rule.DateRE + `: \[`)

	// Matches: ", 0.0014191 secs]"
	pauseEnd = regexp.MustCompile(`, ` + rule.RealRE + ` secs\]`)

	// Matches: "[GC (Allocation Failure) ", "[Full GC (System.gc()) "
	// Matches: "[GC pause (G1 Evacuation Pause) (young)"
	causePrinted = regexp.MustCompile(`\[(?:Full )?GC \(|GC pause \([^)]+\) \(`)

	// Matches: "[GC 1234K->", "[GC[1 CMS-initial-mark", "[GC pause (young)"
	causeAbsent = regexp.MustCompile(`\[(?:Full )?GC ?[\d\[]|GC pause \((?:young|mixed)\)`)

	// Matches: "[GC (Allocation Failure) 2.382: [ParNew: 17472K->"
	youngRecord = regexp.MustCompile(`\[GC.*\[(?:DefNew|ParNew|PSYoungGen): \d`)
)

var detailMarkers = []string{
	"[DefNew", "[ParNew", "[PSYoungGen", "[Tenured", "[CMS", "[ParOldGen", "[PSOldGen",
	"[Eden:", "[Parallel Time", "[GC Worker", "[Times:",
}

var g1Markers = []string{
	"GC pause (", "[GC remark", "[GC cleanup", "[GC concurrent-", "G1Ergonomics", "garbage-first heap", "[Eden: ",
}

var permMarkers = []string{"[PSPermGen", "[Perm", "[CMS Perm", "[PS Perm"}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (d *Diarizer) detectPreUnified(line string) {
	b := d.b

	switch {
	case dateStampPrefix.MatchString(line):
		b.Set(diary.DateStamps, true)
	case uptimePrefix.MatchString(line), bareRecord.MatchString(line):
		b.Set(diary.DateStamps, false)
	}
	switch {
	case uptimePrefix.MatchString(line):
		b.Set(diary.TimeStamps, true)
	case dateOnlyPrefix.MatchString(line), bareRecord.MatchString(line):
		b.Set(diary.TimeStamps, false)
	}

	switch {
	case strings.Contains(line, "[DefNew"):
		d.collectorFound(diary.DefNew)
	case strings.Contains(line, "[ParNew"):
		d.collectorFound(diary.ParNew)
	case strings.Contains(line, "[PSYoungGen"):
		d.collectorFound(diary.PSYoungGen)
	}
	switch {
	case strings.Contains(line, "[ParOldGen"):
		d.collectorFound(diary.ParOldGen)
	case strings.Contains(line, "[PSOldGen"):
		d.collectorFound(diary.PSOldGen)
	case strings.Contains(line, "[Tenured"):
		d.collectorFound(diary.SerialOld)
	}
	if strings.Contains(line, "icms_dc=") {
		d.collectorFound(diary.CMS)
		b.Set(diary.ICMS, true)
	} else if strings.Contains(line, "CMS-") || strings.Contains(line, "[CMS") {
		d.collectorFound(diary.CMS)
	}
	if containsAny(line, g1Markers) {
		d.collectorFound(diary.G1GC)
	}
	if strings.Contains(line, "Pause Init Mark") || strings.Contains(line, "Concurrent evacuation") {
		d.collectorFound(diary.Shenandoah)
	}

	if containsAny(line, detailMarkers) {
		b.Set(diary.GCDetails, true)
	}
	switch {
	case causePrinted.MatchString(line):
		b.Set(diary.GCCause, true)
	case causeAbsent.MatchString(line):
		b.Set(diary.GCCause, false)
	}
	switch {
	case strings.Contains(line, "Desired survivor size"):
		b.Set(diary.TenuringDistribution, true)
	case youngRecord.MatchString(line):
		b.Set(diary.TenuringDistribution, false)
	}
	switch {
	case containsAny(line, permMarkers):
		b.Set(diary.PermGen, true)
	case strings.Contains(line, "Metaspace"):
		b.Set(diary.PermGen, false)
	}
	d.detectCommon(line)
	if strings.Contains(line, "SoftReference") {
		b.Set(diary.ReferenceGC, true)
	}
	if strings.Contains(line, "AdaptiveSize") || strings.Contains(line, "G1Ergonomics") {
		b.Set(diary.AdaptiveSizing, true)
	}
	if strings.Contains(line, "[Times: user") {
		b.Set(diary.CPUTimes, true)
	}
	if strings.Contains(line, "vmop") && strings.Contains(line, "[threads:") {
		b.Set(diary.Safepoint, true)
	}
	if pauseEnd.MatchString(line) {
		d.collectionSeen()
	}
}

// Decorated evidence.
var (
	// Matches: "Using G1", "Using The Z Garbage Collector"
	// Captures: (1) collector name
	usingCollector = regexp.MustCompile(
		`^Using (Serial|Parallel|Concurrent Mark Sweep|G1|The Z Garbage Collector|Shenandoah)`,
	)

	// Matches: "GC(3) Pause Remark 40M->40M(250M) 1.212ms"
	unifiedPauseEnd = regexp.MustCompile(`Pause [A-Z].* ` + rule.RealRE + `ms$`)
)

var g1UnifiedMarkers = []string{
	"Pause Young (Normal)", "Pause Young (Concurrent Start)", "Pause Young (Prepare Mixed)",
	"Pause Young (Mixed)", "Eden regions:", "G1 Evacuation Pause", "G1 Humongous Allocation",
}

var zgcUnifiedMarkers = []string{"Pause Mark Start", "Pause Relocate Start", "Allocation Stall"}

var shenandoahUnifiedMarkers = []string{"Pause Init Mark", "Concurrent evacuation", "Trigger: ", "Pause Final Mark"}

func (d *Diarizer) detectUnified(line string) {
	b := d.b
	dec, ok := rule.ParseDecorators(line)
	if !ok {
		return
	}
	body := dec.Body()

	// decided by the first decorated line
	b.Set(diary.DateStamps, !dec.Wall.IsZero())
	b.Set(diary.TimeStamps, dec.Stamp().HasUptime())

	if m := usingCollector.FindStringSubmatch(body); m != nil {
		switch m[1] {
		case "Serial":
			d.collectorFound(diary.DefNew)
			d.collectorFound(diary.SerialOld)
		case "Parallel":
			d.collectorFound(diary.PSYoungGen)
			d.collectorFound(diary.ParOldGen)
		case "Concurrent Mark Sweep":
			d.collectorFound(diary.ParNew)
			d.collectorFound(diary.CMS)
		case "G1":
			d.collectorFound(diary.G1GC)
		case "The Z Garbage Collector":
			d.collectorFound(diary.ZGC)
		case "Shenandoah":
			d.collectorFound(diary.Shenandoah)
		}
	}
	switch {
	case containsAny(body, g1UnifiedMarkers):
		d.collectorFound(diary.G1GC)
	case containsAny(body, zgcUnifiedMarkers):
		d.collectorFound(diary.ZGC)
	case containsAny(body, shenandoahUnifiedMarkers):
		d.collectorFound(diary.Shenandoah)
	case strings.HasPrefix(body, "DefNew:"):
		d.collectorFound(diary.DefNew)
	case strings.HasPrefix(body, "ParNew:"):
		d.collectorFound(diary.ParNew)
	case strings.HasPrefix(body, "PSYoungGen:"):
		d.collectorFound(diary.PSYoungGen)
	case strings.HasPrefix(body, "ParOldGen:"):
		d.collectorFound(diary.ParOldGen)
	case strings.HasPrefix(body, "PSOldGen:"):
		d.collectorFound(diary.PSOldGen)
	case strings.HasPrefix(body, "Tenured:"):
		d.collectorFound(diary.SerialOld)
	case strings.HasPrefix(body, "CMS:"), strings.Contains(body, "Concurrent Mark Sweep"):
		d.collectorFound(diary.CMS)
	}

	if len(dec.Tags) > 1 && dec.HasTag("gc") {
		b.Set(diary.GCDetails, true)
	}
	if dec.HasTag("age") {
		b.Set(diary.TenuringDistribution, true)
	}
	if dec.HasTag("ref") {
		b.Set(diary.ReferenceGC, true)
	}
	if dec.HasTag("ergo") {
		b.Set(diary.AdaptiveSizing, true)
	}
	if dec.HasTag("safepoint") {
		b.Set(diary.Safepoint, true)
	}
	if strings.Contains(body, "User=") {
		b.Set(diary.CPUTimes, true)
	}
	d.detectCommon(body)
	if dec.HasTag("gc") && unifiedPauseEnd.MatchString(body) {
		d.collectionSeen()
	}
}

// detectCommon handles evidence worded the same in both dialects.
func (d *Diarizer) detectCommon(text string) {
	if strings.Contains(text, "Total time for which application threads were stopped") {
		d.b.Set(diary.ApplicationStoppedTime, true)
	}
	if strings.Contains(text, "Application time:") {
		d.b.Set(diary.ApplicationConcurrentTime, true)
	}
	if strings.Contains(text, "Heap before GC invocations") || strings.Contains(text, "Heap after GC invocations") {
		d.b.Set(diary.PrintHeapAtGC, true)
	}
}
