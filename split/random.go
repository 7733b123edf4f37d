package split

import (
	"math"
	"math/rand"
	"sort"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/index"
	"gonum.org/v1/gonum/stat"
)

// A Part is one named share of the patients.
type Part struct {
	Name     string  `yaml:"name"`
	Fraction float64 `yaml:"fraction"`
}

// DefaultParts is a 70/15/15 TRAIN/VAL/TEST split.
func DefaultParts() []Part {
	return []Part{{"TRAIN", 0.70}, {"VAL", 0.15}, {"TEST", 0.15}}
}

// ValidateParts checks that parts are uniquely named, non-negative and sum
// to 1.
func ValidateParts(parts []Part) error {
	if len(parts) == 0 {
		return tkvseg.NewConfigurationError("split.parts", "no partitions defined")
	}

	total := 0.0
	seen := make(map[string]struct{})
	for _, p := range parts {
		if p.Fraction < 0 {
			return tkvseg.NewConfigurationError("split.parts", "partition %q has a negative fraction", p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return tkvseg.NewConfigurationError("split.parts", "partition %q is listed twice", p.Name)
		}
		seen[p.Name] = struct{}{}
		total += p.Fraction
	}

	if math.Abs(total-1) > 1e-6 {
		return tkvseg.NewConfigurationError("split.parts", "fractions sum to %v, not 1", total)
	}

	return nil
}

// assign deals ids, already in their final order, into parts. Each part
// gets round(fraction·n) ids and the last part takes the remainder.
func assign(ids []string, parts []Part, out Split) {
	n := len(ids)
	start := 0
	for i, p := range parts {
		end := start + int(math.Round(p.Fraction*float64(n)))
		if end > n || i == len(parts)-1 {
			end = n
		}
		out[p.Name] = append(out[p.Name], ids[start:end]...)
		start = end
	}
}

func shuffled(patients []string, rng *rand.Rand) []string {
	ids := append([]string(nil), patients...)
	sort.Strings(ids)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

// RandomSplitter shuffles patients with a fixed seed and deals them into
// Parts. The same seed and patient set always give the same split,
// whatever order the patients arrive in.
type RandomSplitter struct {
	Parts []Part
	Seed  int64
}

func (r RandomSplitter) Split(patients []string) (Split, error) {
	if err := ValidateParts(r.Parts); err != nil {
		return nil, err
	}

	out := make(Split, len(r.Parts))
	for _, p := range r.Parts {
		out[p.Name] = []string{}
	}

	assign(shuffled(patients, rand.New(rand.NewSource(r.Seed))), r.Parts, out)

	return out, nil
}

// StratifiedSplitter bins patients by quantiles of Values (for example study
// TKV) and splits each bin like RandomSplitter, so that every partition
// spans the value range. Patients without a value count as 0.
type StratifiedSplitter struct {
	Parts  []Part
	Seed   int64
	Bins   int
	Values map[string]float64
}

func (s StratifiedSplitter) Split(patients []string) (Split, error) {
	if err := ValidateParts(s.Parts); err != nil {
		return nil, err
	}
	if s.Bins < 1 {
		return nil, tkvseg.NewConfigurationError("split.bins", "need at least 1 bin, got %d", s.Bins)
	}

	out := make(Split, len(s.Parts))
	for _, p := range s.Parts {
		out[p.Name] = []string{}
	}
	if len(patients) == 0 {
		return out, nil
	}

	values := make([]float64, 0, len(patients))
	for _, p := range patients {
		values = append(values, s.Values[p])
	}
	sort.Float64s(values)

	edges := make([]float64, 0, s.Bins-1)
	for b := 1; b < s.Bins; b++ {
		edges = append(edges, stat.Quantile(float64(b)/float64(s.Bins), stat.Empirical, values, nil))
	}

	bins := make([][]string, s.Bins)
	for _, p := range patients {
		b := sort.SearchFloat64s(edges, s.Values[p])
		bins[b] = append(bins[b], p)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	for _, members := range bins {
		assign(shuffled(members, rng), s.Parts, out)
	}

	return out, nil
}

// ByAttribute reduces a numeric file attribute (by JSON name, e.g.
// "study_tkv") to one value per patient: the mean over the patient's files.
func ByAttribute(idx *index.Index, name string) map[string]float64 {
	out := make(map[string]float64, len(idx.Order))
	for _, p := range idx.Order {
		var vals []float64
		for _, path := range idx.Patients[p] {
			if v, ok := idx.Files[path].Numeric(name); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			out[p] = stat.Mean(vals, nil)
		}
	}
	return out
}
