package scoring

import (
	"math"
	"sort"

	"github.com/lexeval/lexeval/internal/schema"
)

// ScoreRetrieval scores one scenario's predicted ranking against its gold
// retrieval entry. The predicted order is the caller's own ordering; it is
// never re-sorted here, so an unstable caller order yields unstable metrics.
// A nil ranking scores as a full miss wherever the gold defines a target.
func ScoreRetrieval(gold schema.GoldScenario, ranking []string, cfg Config) Result {
	var res Result
	em := newEmitter(gold.Scenario, &res)

	grades := make(map[string]int, len(gold.Retrieval.Sections))
	var mandatory []string
	controlling := ""
	for _, sec := range gold.Retrieval.Sections {
		grades[sec.SectionID] = sec.Grade
		if sec.Mandatory {
			mandatory = append(mandatory, sec.SectionID)
		}
		if sec.Controlling {
			controlling = sec.SectionID
		}
	}

	for _, k := range cfg.KValues {
		scoreRecallAtK(em, ranking, grades, k)
		em.value(AtK(MetricNDCG, k), ndcgAtK(ranking, grades, k))
		scoreNoMissAtK(em, ranking, mandatory, k)
	}

	scoreMRR(em, ranking, grades, controlling)

	return res
}

// scoreRecallAtK emits the fraction of gold-relevant sections in the top k.
// A scenario with no relevant sections is excluded, not scored as 0 or 1:
// an undefined metric must not bias the mean.
func scoreRecallAtK(em emitter, ranking []string, grades map[string]int, k int) {
	if len(grades) == 0 {
		em.exclude(AtK(MetricRecall, k), "no gold-relevant sections")
		return
	}

	found := 0
	for i := 0; i < minInt(k, len(ranking)); i++ {
		if _, ok := grades[ranking[i]]; ok {
			found++
		}
	}
	em.value(AtK(MetricRecall, k), float64(found)/float64(len(grades)))
}

// ndcgAtK computes normalized discounted cumulative gain with gain 2^grade-1
// and a log2(rank+1) discount, rank 1-indexed. When IDCG is zero there is
// nothing to find and the scenario takes no penalty: nDCG is 1.0.
func ndcgAtK(ranking []string, grades map[string]int, k int) float64 {
	dcg := 0.0
	for i := 0; i < minInt(k, len(ranking)); i++ {
		grade := grades[ranking[i]]
		dcg += gain(grade) / math.Log2(float64(i+2))
	}

	sorted := make([]int, 0, len(grades))
	for _, g := range grades {
		sorted = append(sorted, g)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	idcg := 0.0
	for i := 0; i < minInt(k, len(sorted)); i++ {
		idcg += gain(sorted[i]) / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 1.0
	}
	return dcg / idcg
}

func gain(grade int) float64 {
	if grade <= 0 {
		return 0
	}
	return math.Exp2(float64(grade)) - 1
}

// scoreMRR emits the reciprocal rank of the first hit on the controlling
// section when one is marked, else on any relevant section. The full
// predicted list is scanned; MRR is not capped by k.
func scoreMRR(em emitter, ranking []string, grades map[string]int, controlling string) {
	if len(grades) == 0 {
		em.exclude(MetricMRR, "no gold-relevant sections")
		return
	}

	hit := func(id string) bool {
		if controlling != "" {
			return id == controlling
		}
		_, ok := grades[id]
		return ok
	}

	for i, id := range ranking {
		if hit(id) {
			em.value(MetricMRR, 1.0/float64(i+1))
			return
		}
	}
	em.value(MetricMRR, 0)
}

// scoreNoMissAtK emits 1 when every mandatory section appears in the top k,
// else 0. Scenarios without declared mandatory sections are excluded.
func scoreNoMissAtK(em emitter, ranking []string, mandatory []string, k int) {
	if len(mandatory) == 0 {
		em.exclude(AtK(MetricNoMiss, k), "no mandatory sections declared")
		return
	}

	topK := make(map[string]bool, minInt(k, len(ranking)))
	for i := 0; i < minInt(k, len(ranking)); i++ {
		topK[ranking[i]] = true
	}

	for _, id := range mandatory {
		if !topK[id] {
			em.value(AtK(MetricNoMiss, k), 0)
			return
		}
	}
	em.value(AtK(MetricNoMiss, k), 1)
}
