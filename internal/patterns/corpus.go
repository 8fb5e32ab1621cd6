package patterns

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultCorpusYAML []byte

// Spec is one corpus entry: a generator pattern plus the verdict the
// detector is expected to reach on strings it produces.
type Spec struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
	Expect      string `yaml:"expect"` // "flag" or "pass"
}

// Corpus is a set of specs with a default seed for reproducible runs.
type Corpus struct {
	Seed     int64  `yaml:"seed"`
	Patterns []Spec `yaml:"patterns"`
}

// DefaultCorpus returns the bundled corpus.
func DefaultCorpus() (Corpus, error) {
	return parseCorpus(defaultCorpusYAML)
}

// LoadCorpus reads a corpus from a YAML file.
func LoadCorpus(path string) (Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Corpus{}, err
	}
	return parseCorpus(raw)
}

func parseCorpus(raw []byte) (Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Corpus{}, fmt.Errorf("patterns: parse corpus: %w", err)
	}
	return c, nil
}

// Result is the outcome for one corpus entry.
type Result struct {
	Spec
	Example string
	Flagged bool
	Correct bool
	Verdict Verdict
}

// Summary aggregates a run against expectations.
type Summary struct {
	Total          int
	Correct        int
	Accuracy       float64
	Flagged        int
	ExpectedFlags  int
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	Precision      float64
	Recall         float64
}

// Report is a full reproducible run.
type Report struct {
	Seed    int64
	Results []Result
	Summary Summary
}

// Run generates one example per corpus entry and checks it against the
// detector. A negative seed selects the corpus default. Results come back
// flagged-first, unexcepted-first, then by descending entropy.
func Run(corpus Corpus, seed int64) (Report, error) {
	if seed < 0 {
		seed = corpus.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	report := Report{Seed: seed}
	for _, spec := range corpus.Patterns {
		example, err := Generate(spec.Pattern, rng)
		if err != nil {
			return Report{}, fmt.Errorf("entry %q: %w", spec.ID, err)
		}
		v := Check(example, DefaultMinLength, DefaultEntropyThreshold)
		expectFlag := spec.Expect == "flag"
		report.Results = append(report.Results, Result{
			Spec:    spec,
			Example: example,
			Flagged: v.Flagged,
			Correct: v.Flagged == expectFlag,
			Verdict: v,
		})
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.Flagged != b.Flagged {
			return a.Flagged
		}
		if (a.Verdict.Exception == "") != (b.Verdict.Exception == "") {
			return a.Verdict.Exception == ""
		}
		return a.Verdict.Entropy > b.Verdict.Entropy
	})

	s := &report.Summary
	s.Total = len(report.Results)
	for _, r := range report.Results {
		if r.Correct {
			s.Correct++
		}
		if r.Flagged {
			s.Flagged++
		}
		expectFlag := r.Expect == "flag"
		if expectFlag {
			s.ExpectedFlags++
		}
		switch {
		case r.Flagged && expectFlag:
			s.TruePositives++
		case r.Flagged && !expectFlag:
			s.FalsePositives++
		case !r.Flagged && expectFlag:
			s.FalseNegatives++
		default:
			s.TrueNegatives++
		}
	}
	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
	}
	if n := s.TruePositives + s.FalsePositives; n > 0 {
		s.Precision = float64(s.TruePositives) / float64(n)
	}
	if n := s.TruePositives + s.FalseNegatives; n > 0 {
		s.Recall = float64(s.TruePositives) / float64(n)
	}
	return report, nil
}
