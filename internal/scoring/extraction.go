package scoring

import (
	"math"
	"sort"

	"github.com/lexeval/lexeval/internal/schema"
)

// ScoreExtraction scores predicted spans, numeric values and dates against
// the gold extraction, matched per section id. Condition, exception and
// definition spans feed the span metric family; evidence spans feed the
// separate attribution family, since an extraction can be numerically
// correct yet point to unsupported text.
func ScoreExtraction(gold schema.GoldScenario, pred schema.Extraction, cfg Config) Result {
	var res Result
	em := newEmitter(gold.Scenario, &res)

	var pooled spanCounts
	for _, kind := range schema.MatchKinds {
		counts := matchSpans(gold.Extraction, pred, kind, cfg.SpanOverlap)
		emitSpanFamily(em, string(kind)+"_"+MetricSpanPrecision, string(kind)+"_"+MetricSpanRecall,
			string(kind)+"_"+MetricSpanF1, counts)
		pooled.add(counts)
	}
	emitSpanFamily(em, MetricSpanPrecision, MetricSpanRecall, MetricSpanF1, pooled)

	evidence := matchSpans(gold.Extraction, pred, schema.SpanEvidence, cfg.SpanOverlap)
	emitSpanFamily(em, MetricAttributionPrecision, MetricAttributionRecall, MetricAttributionF1, evidence)

	scoreNumerics(em, gold.Extraction, pred, cfg.NumericTolerance)
	scoreDates(em, gold.Extraction, pred)

	return res
}

type spanCounts struct {
	matched int
	gold    int
	pred    int
}

func (c *spanCounts) add(other spanCounts) {
	c.matched += other.matched
	c.gold += other.gold
	c.pred += other.pred
}

// emitSpanFamily emits precision/recall/F1 for one span family. When neither
// side annotated anything the family is undefined and excluded; a one-sided
// empty set scores the defined side as a miss.
func emitSpanFamily(em emitter, precisionName, recallName, f1Name string, c spanCounts) {
	if c.gold == 0 && c.pred == 0 {
		em.exclude(f1Name, "no spans of this kind in gold or prediction")
		return
	}

	precision := 0.0
	if c.pred > 0 {
		precision = float64(c.matched) / float64(c.pred)
	}
	recall := 0.0
	if c.gold > 0 {
		recall = float64(c.matched) / float64(c.gold)
	}

	if c.pred > 0 {
		em.value(precisionName, precision)
	} else {
		em.exclude(precisionName, "no predicted spans of this kind")
	}
	if c.gold > 0 {
		em.value(recallName, recall)
	} else {
		em.exclude(recallName, "no gold spans of this kind")
	}
	em.value(f1Name, f1(precision, recall))
}

// overlapRatio is intersection over union of two [start, end) ranges.
func overlapRatio(a, b schema.Span) float64 {
	interStart := a.Start
	if b.Start > interStart {
		interStart = b.Start
	}
	interEnd := a.End
	if b.End < interEnd {
		interEnd = b.End
	}
	if interEnd <= interStart {
		return 0
	}
	inter := interEnd - interStart
	union := a.Length() + b.Length() - inter
	return float64(inter) / float64(union)
}

type spanPair struct {
	section string
	goldIdx int
	predIdx int
	overlap float64
}

// matchSpans runs the greedy maximum-overlap bipartite assignment for one
// span kind. Candidate pairs at or above the threshold are committed in
// descending overlap order; this ordering is the tie-break policy, so each
// gold span matches at most one predicted span and vice versa.
func matchSpans(gold, pred schema.Extraction, kind schema.SpanKind, threshold float64) spanCounts {
	var counts spanCounts
	var pairs []spanPair

	sections := make([]string, 0, len(gold.Sections))
	for id := range gold.Sections {
		sections = append(sections, id)
	}
	sort.Strings(sections)

	predOnly := make(map[string]bool)
	for id := range pred.Sections {
		if _, ok := gold.Sections[id]; !ok {
			predOnly[id] = true
		}
	}

	for _, sectionID := range sections {
		goldSpans := spansOfKind(gold.Sections[sectionID].Spans, kind)
		predSpans := spansOfKind(pred.Sections[sectionID].Spans, kind)
		counts.gold += len(goldSpans)
		counts.pred += len(predSpans)

		for gi, gs := range goldSpans {
			for pi, ps := range predSpans {
				if ratio := overlapRatio(gs, ps); ratio >= threshold {
					pairs = append(pairs, spanPair{section: sectionID, goldIdx: gi, predIdx: pi, overlap: ratio})
				}
			}
		}
	}

	// Predicted spans in sections the gold never annotated still count
	// against precision.
	for id := range predOnly {
		counts.pred += len(spansOfKind(pred.Sections[id].Spans, kind))
	}

	// Highest-overlap pairs are committed first; remaining order is fixed
	// by section and span position for determinism.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].overlap != pairs[j].overlap {
			return pairs[i].overlap > pairs[j].overlap
		}
		if pairs[i].section != pairs[j].section {
			return pairs[i].section < pairs[j].section
		}
		if pairs[i].goldIdx != pairs[j].goldIdx {
			return pairs[i].goldIdx < pairs[j].goldIdx
		}
		return pairs[i].predIdx < pairs[j].predIdx
	})

	type key struct {
		section string
		idx     int
	}
	usedGold := make(map[key]bool)
	usedPred := make(map[key]bool)
	for _, p := range pairs {
		gk := key{p.section, p.goldIdx}
		pk := key{p.section, p.predIdx}
		if usedGold[gk] || usedPred[pk] {
			continue
		}
		usedGold[gk] = true
		usedPred[pk] = true
		counts.matched++
	}

	return counts
}

func spansOfKind(spans []schema.Span, kind schema.SpanKind) []schema.Span {
	var out []schema.Span
	for _, s := range spans {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// scoreNumerics matches predicted numeric values to gold values within each
// section. A pair is a candidate only when unit and period are exactly
// equal; candidates are committed in ascending relative-error order and
// accepted within the configured tolerance.
func scoreNumerics(em emitter, gold, pred schema.Extraction, tolerance float64) {
	goldTotal := 0
	matched := 0
	unitMatched := 0
	var absErrors []float64

	sections := make([]string, 0, len(gold.Sections))
	for id := range gold.Sections {
		sections = append(sections, id)
	}
	sort.Strings(sections)

	for _, sectionID := range sections {
		goldVals := gold.Sections[sectionID].Numerics
		predVals := pred.Sections[sectionID].Numerics
		goldTotal += len(goldVals)

		type cand struct {
			gi, pi int
			relErr float64
		}
		var cands []cand
		for gi, gv := range goldVals {
			for pi, pv := range predVals {
				if gv.Unit != pv.Unit || gv.Period != pv.Period {
					continue
				}
				relErr := math.Abs(pv.Value-gv.Value) / math.Max(1, math.Abs(gv.Value))
				cands = append(cands, cand{gi: gi, pi: pi, relErr: relErr})
			}
		}
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].relErr != cands[j].relErr {
				return cands[i].relErr < cands[j].relErr
			}
			if cands[i].gi != cands[j].gi {
				return cands[i].gi < cands[j].gi
			}
			return cands[i].pi < cands[j].pi
		})

		usedGold := make(map[int]bool)
		usedPred := make(map[int]bool)
		for _, c := range cands {
			if usedGold[c.gi] || usedPred[c.pi] {
				continue
			}
			usedGold[c.gi] = true
			usedPred[c.pi] = true
			// Unit and period already agreed; tolerance decides the match.
			unitMatched++
			if c.relErr <= tolerance {
				matched++
				absErrors = append(absErrors, math.Abs(predVals[c.pi].Value-goldVals[c.gi].Value))
			}
		}
	}

	if goldTotal == 0 {
		em.exclude(MetricNumericAccuracy, "no gold numeric values")
		return
	}

	em.value(MetricNumericAccuracy, float64(matched)/float64(goldTotal))
	em.value(MetricUnitAccuracy, float64(unitMatched)/float64(goldTotal))

	if len(absErrors) == 0 {
		em.exclude(MetricNumericMAE, "no matched numeric pairs")
		return
	}
	sum := 0.0
	for _, e := range absErrors {
		sum += e
	}
	em.value(MetricNumericMAE, sum/float64(len(absErrors)))
}

// scoreDates gives full credit for an exact ISO date match and half credit
// when year and month agree but the day differs: a correct period with the
// wrong day is a partially useful extraction, not a full miss.
func scoreDates(em emitter, gold, pred schema.Extraction) {
	goldTotal := 0
	credit := 0.0
	exact := 0

	sections := make([]string, 0, len(gold.Sections))
	for id := range gold.Sections {
		sections = append(sections, id)
	}
	sort.Strings(sections)

	for _, sectionID := range sections {
		goldDates := gold.Sections[sectionID].Dates
		predDates := pred.Sections[sectionID].Dates
		goldTotal += len(goldDates)

		type cand struct {
			gi, pi int
			credit float64
		}
		var cands []cand
		for gi, gd := range goldDates {
			for pi, pd := range predDates {
				c := dateCredit(gd.Date, pd.Date)
				if c > 0 {
					cands = append(cands, cand{gi: gi, pi: pi, credit: c})
				}
			}
		}
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].credit != cands[j].credit {
				return cands[i].credit > cands[j].credit
			}
			if cands[i].gi != cands[j].gi {
				return cands[i].gi < cands[j].gi
			}
			return cands[i].pi < cands[j].pi
		})

		usedGold := make(map[int]bool)
		usedPred := make(map[int]bool)
		for _, c := range cands {
			if usedGold[c.gi] || usedPred[c.pi] {
				continue
			}
			usedGold[c.gi] = true
			usedPred[c.pi] = true
			credit += c.credit
			if c.credit == 1.0 {
				exact++
			}
		}
	}

	if goldTotal == 0 {
		em.exclude(MetricDateAccuracy, "no gold dates")
		return
	}

	em.value(MetricDateAccuracy, credit/float64(goldTotal))
	em.value(MetricDateExact, float64(exact)/float64(goldTotal))
}

func dateCredit(gold, pred string) float64 {
	if gold == pred {
		return 1.0
	}
	// ISO dates are validated upstream, so YYYY-MM is the first 7 bytes.
	if len(gold) >= 7 && len(pred) >= 7 && gold[:7] == pred[:7] {
		return 0.5
	}
	return 0
}
