// Package engine runs the full normalization pipeline: segment the
// document, build the canonical registry, resolve and rewrite citation
// marks, re-render reference sections, and audit what is left.
package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/refmark/internal/audit"
	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/marks"
	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/registry"
	"github.com/matsen/refmark/internal/verify"
)

// Options configure a run.
type Options struct {
	// Verify enables the context-overlap check on resolved citations.
	Verify bool
	// VerifyParams tune it; zero values fall back to defaults.
	VerifyParams verify.Params
	// NoCollapse leaves adjacent repeats of one source in place instead of
	// folding them into the first mark. Repeats are still reported.
	NoCollapse bool
}

// Engine ties the pipeline stages together.
type Engine struct {
	log      *zap.Logger
	renderer metadata.Renderer
	opts     Options
}

// New builds an engine. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.VerifyParams == (verify.Params{}) {
		opts.VerifyParams = verify.DefaultParams()
	}
	return &Engine{log: logger, renderer: metadata.PlainRenderer{}, opts: opts}
}

// Result is what one run produced. Output is only set by Process.
type Result struct {
	Doc       *document.Document `json:"-"`
	Registry  *registry.Registry `json:"-"`
	Citations []audit.Citation   `json:"citations"`
	Report    *audit.Report      `json:"report"`
	Output    string             `json:"-"`
	Changed   bool               `json:"changed"`
}

// Audit analyzes a document without touching it.
func (g *Engine) Audit(text string) *Result {
	res, _, _, _ := g.analyze(text)
	return res
}

// Process analyzes a document and returns the normalized text: citation
// marks rewritten to stable footnote labels, reference entries re-rendered
// as footnote definitions, duplicates consolidated.
func (g *Engine) Process(text string) *Result {
	res, all, kept, drops := g.analyze(text)

	rewrite := kept
	repls := drops
	if g.opts.NoCollapse {
		rewrite = all
		repls = nil
	}
	for _, rm := range rewrite {
		if allDirect(rm) {
			continue
		}
		txt := replacementText(rm)
		if txt == "" || txt == rm.mark.Raw {
			continue
		}
		repls = append(repls, marks.Replacement{Mark: rm.mark, Text: txt})
	}

	lines := marks.Rewrite(res.Doc.Lines, repls)
	lines = applyEdits(lines, sectionEdits(res.Doc, res.Registry, g.renderer))

	res.Output = strings.Join(lines, "\n")
	res.Changed = res.Output != text
	g.log.Info("processed document",
		zap.Int("rewrites", len(repls)),
		zap.Bool("changed", res.Changed),
		zap.Int("health", res.Report.Health))
	return res
}

// analyze runs the shared read-only stages.
func (g *Engine) analyze(text string) (*Result, []resolvedMark, []resolvedMark, []marks.Replacement) {
	doc := document.Segment(text)
	b := registry.NewBuilder()
	b.AddDocument(doc)
	reg := b.Build()

	ms := marks.Scan(doc)
	rms := resolveMarks(doc, reg, ms)
	kept, drops, runs := collapseRuns(doc, rms)

	cites := flatten(kept)
	g.log.Debug("analyzed document",
		zap.Int("sections", len(doc.Sections)),
		zap.Int("canons", len(reg.Canons())),
		zap.Int("marks", len(ms)),
		zap.Int("collapsed_runs", len(runs)))

	var mismatches []verify.Mismatch
	if g.opts.Verify {
		v := verify.NewVerifier(doc, reg, g.opts.VerifyParams)
		mismatches = v.Verify(targets(cites))
	}

	report := audit.NewDetector(reg).Report(cites, runs, mismatches)
	return &Result{
		Doc:       doc,
		Registry:  reg,
		Citations: cites,
		Report:    report,
	}, rms, kept, drops
}

// flatten expands resolved marks into per-id citations for the audit.
func flatten(rms []resolvedMark) []audit.Citation {
	var cites []audit.Citation
	for _, rm := range rms {
		for _, rid := range rm.ids {
			c := audit.Citation{
				Mark:    rm.mark,
				ID:      rid.id,
				Section: rm.section,
				Status:  rid.status,
			}
			if rid.canon != nil {
				c.Key = rid.canon.Key
				c.Label = rid.canon.Label
			}
			cites = append(cites, c)
		}
	}
	return cites
}

// targets picks the resolved citations worth context-checking.
func targets(cites []audit.Citation) []verify.Target {
	var out []verify.Target
	for _, c := range cites {
		if c.Status != audit.StatusResolved {
			continue
		}
		out = append(out, verify.Target{Line: c.Mark.Line, Key: c.Key, Label: c.Label})
	}
	return out
}

// allDirect reports whether every id of a mark already carries its final
// label, leaving nothing to rewrite.
func allDirect(rm resolvedMark) bool {
	for _, rid := range rm.ids {
		if !rid.labelDirect {
			return false
		}
	}
	return len(rm.ids) > 0
}
