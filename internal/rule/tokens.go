package rule

// Primitive fragments. None of them capture; capturing fragments are built
// with the helper functions below so that every group in a rule is named.
const (
	IntRE     = `\d+`
	RealRE    = `\d+(?:[.,]\d+)?`
	MemRE     = `\d+(?:[.,]\d+)?[BKMGT]`
	UptimeRE  = `\d+[.,]\d+`
	DateRE    = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[.,]\d{3}(?:[+-]\d{2}:?\d{2}|Z)`
	HexRE     = `0x[0-9a-fA-F]+`
	UnitRE    = `secs|sec|ms|us|ns|s`
	PercentRE = RealRE + `%`
)

// Group wraps re in a capture group called name.
func Group(name, re string) string {
	return "(?P<" + name + ">" + re + ")"
}

// Opt makes re optional.
func Opt(re string) string {
	return "(?:" + re + ")?"
}

// Int captures a counter.
func Int(name string) string {
	return Group(name, IntRE)
}

// Real captures a decimal number using either separator.
func Real(name string) string {
	return Group(name, RealRE)
}

// Mem captures a memory size with a unit suffix, e.g. "33532K" or "1.5G".
func Mem(name string) string {
	return Group(name, MemRE)
}

// Percent captures a percentage without the sign.
func Percent(name string) string {
	return Group(name, RealRE) + `%`
}

// Stamp captures the embedded timestamp of an undecorated line: an optional
// date stamp followed by an optional uptime, each followed by ": ".
// Groups: date, uptime.
//
// Matches: "2018-04-04T09:10:00.586-0100: 12.986: "
// Matches: "12.986: "
func Stamp() string {
	return Opt(Group("date", DateRE)+`: `) + Opt(Group("uptime", UptimeRE)+`: `)
}

// Pool captures "before->after(size)". Groups: name_b, name_a, name_s.
//
// Matches: "17472K->2176K(19648K)"
func Pool(name string) string {
	return Mem(name+"_b") + `->` + Mem(name+"_a") + `\(` + Mem(name+"_s") + `\)`
}

// SizedPool captures "before(size)->after(size)".
// Groups: name_b, name_sb, name_a, name_s.
//
// Matches: "24.0M(24.0M)->0.0B(13.0M)"
func SizedPool(name string) string {
	return Mem(name+"_b") + `\(` + Mem(name+"_sb") + `\)->` + Mem(name+"_a") + `\(` + Mem(name+"_s") + `\)`
}

// FlexPool captures a pool in either the Pool or the SizedPool shape; the
// before size is optional. Groups: name_b, name_sb, name_a, name_s.
//
// Matches: "4416K->512K(4928K)"
// Matches: "4416K(4928K)->512K(4928K)"
func FlexPool(name string) string {
	return Mem(name+"_b") + Opt(`\(`+Mem(name+"_sb")+`\)`) + `->` + Mem(name+"_a") + `\(` + Mem(name+"_s") + `\)`
}

// Occupancy captures "occupancy(size)". Groups: name_a, name_s.
//
// Matches: "33532K(62656K)"
func Occupancy(name string) string {
	return Mem(name+"_a") + `\(` + Mem(name+"_s") + `\)`
}

// Pause captures a pause reported in seconds: "0.0014191 secs".
func Pause(name string) string {
	return Real(name) + ` secs`
}

// Duration captures a number followed by a time unit. Groups: name,
// name_unit.
//
// Matches: "0.088 secs", "12.345ms", "0.5us"
func Duration(name string) string {
	return Real(name) + ` ?` + Group(name+"_unit", UnitRE)
}

// Cause captures an optional parenthesized cause clause followed by a
// space. One level of nested parentheses is accepted so that
// "(System.gc())" is read whole. Group: cause.
func Cause() string {
	return `(?:\(` + Group("cause", `(?:[^()]|\([^()]*\))*`) + `\) ?)?`
}

// Times captures the pre-unified CPU summary. Groups: user, sys, real.
//
// Matches: "[Times: user=0.01 sys=0.00, real=0.00 secs]"
func Times() string {
	return `\[Times: user=` + Real("user") + ` sys=` + Real("sys") + `, real=` + Real("real") + ` secs ?\]`
}

// UnifiedCPU captures the decorated CPU summary. Groups: user, sys, real.
//
// Matches: "User=0.01s Sys=0.00s Real=0.01s"
func UnifiedCPU() string {
	return `User=` + Real("user") + `s Sys=` + Real("sys") + `s Real=` + Real("real") + `s`
}

// GCID captures the cycle id of a decorated message. Group: gcid.
//
// Matches: "GC(12) "
func GCID() string {
	return `GC\(` + Int("gcid") + `\) `
}
