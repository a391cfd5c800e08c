// Package diarizer classifies a GC log from a bounded prefix of its lines.
//
// It decides the dialect first (decorated or undecorated) from the first
// non-blank lines, then feeds lines to independent feature detectors until
// every flag is known or the line budget is spent.
package diarizer

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
)

// Defaults.
const (
	DefaultProbeLines = 25
	DefaultThreshold  = 1
	DefaultLineBudget = 10_000
)

// ErrNoContent is returned by Finish when no non-blank line was fed.
var ErrNoContent = errors.New("log has no content lines")

// Config controls a Diarizer. Zero values select the defaults.
type Config struct {
	// ProbeLines is the number of non-blank lines examined for the dialect.
	ProbeLines int
	// Threshold is the number of decorated lines among the probe lines
	// needed to classify the log as decorated.
	Threshold int
	// LineBudget caps the lines fed to the feature detectors.
	LineBudget int
	// StrictGenerational is passed to the diary builder.
	StrictGenerational bool
	Logger             *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.ProbeLines <= 0 {
		c.ProbeLines = DefaultProbeLines
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.LineBudget <= 0 {
		c.LineBudget = DefaultLineBudget
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Diarizer accumulates evidence about one log. It is not safe for
// concurrent use.
type Diarizer struct {
	cfg Config
	b   *diary.Builder

	dialectKnown bool
	unified      bool
	probed       int
	decorated    int
	pending      []string

	examined    int
	collections int
	done        bool
}

// New returns a Diarizer.
func New(cfg Config) *Diarizer {
	cfg.applyDefaults()
	return &Diarizer{cfg: cfg, b: diary.NewBuilder(cfg.StrictGenerational)}
}

// Feed examines one line and reports whether the diarizer needs no more
// input.
func (d *Diarizer) Feed(line string) bool {
	if d.done {
		return true
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !d.dialectKnown {
		d.probe(line)
		if !d.dialectKnown {
			d.pending = append(d.pending, line)
			return false
		}
		pending := d.pending
		d.pending = nil
		for _, p := range pending {
			if d.detect(p) {
				return true
			}
		}
	}
	return d.detect(line)
}

// Finish decides the dialect if the probe was inconclusive, drains any
// lines held back by the probe and returns the diary.
func (d *Diarizer) Finish() (*diary.Diary, error) {
	if d.probed == 0 {
		return nil, ErrNoContent
	}
	if !d.dialectKnown {
		d.decide(false)
		pending := d.pending
		d.pending = nil
		for _, p := range pending {
			if d.detect(p) {
				break
			}
		}
	}
	out := d.b.Build()
	d.cfg.Logger.Debug("diary built",
		slog.Bool("unified", out.IsUnified()),
		slog.Bool("complete", out.Complete()),
		slog.Int("lines", out.LinesExamined()))
	return out, nil
}

// Unified reports the dialect decision. It is meaningful only after the
// probe has concluded.
func (d *Diarizer) Unified() bool {
	return d.unified
}

func (d *Diarizer) probe(line string) {
	d.probed++
	if rule.Decorated.MatchString(line) {
		d.decorated++
	}
	switch {
	case d.decorated >= d.cfg.Threshold:
		d.decide(true)
	case d.probed >= d.cfg.ProbeLines:
		d.decide(false)
	}
}

func (d *Diarizer) decide(unified bool) {
	d.dialectKnown = true
	d.unified = unified
	d.b.Set(diary.UnifiedLogging, unified)
	if unified {
		// flags that cannot occur in decorated logs
		d.b.SetFalse(diary.PermGen, diary.ICMS)
		d.b.SetTrue(diary.GCCause)
	}
	d.cfg.Logger.Debug("dialect detected", slog.Bool("unified", unified), slog.Int("probed", d.probed))
}

func (d *Diarizer) detect(line string) bool {
	d.examined++
	d.b.Examined()
	if d.unified {
		d.detectUnified(line)
	} else {
		d.detectPreUnified(line)
	}
	if d.b.Complete() || d.examined >= d.cfg.LineBudget {
		d.done = true
	}
	return d.done
}

// collectorFound records c and rules out every collector that cannot
// coexist with it.
func (d *Diarizer) collectorFound(c diary.Flag) {
	d.b.SetTrue(c)
	if excl, ok := exclusions[c]; ok {
		d.b.SetFalse(excl...)
	}
}

// collectionSeen resolves the flags whose evidence would have been printed
// by the end of the first few collections.
func (d *Diarizer) collectionSeen() {
	d.collections++
	switch d.collections {
	case 1:
		d.b.SetFalse(resolvedAfterFirst...)
	case 2:
		d.b.SetFalse(resolvedAfterSecond...)
	case 3:
		d.b.SetFalse(resolvedAfterThird...)
	}
}
