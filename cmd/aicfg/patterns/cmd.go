// Package patternscmd implements the `aicfg patterns` command group for
// testing secret-detection patterns.
package patternscmd

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/patterns"
)

// Command implements the `aicfg patterns` group.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	seed       int64
	corpusPath string
	verbose    bool
	ignorePath string
}

// New creates the patterns command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "patterns",
		Short: "Test secret-detection patterns against generated examples",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	test := &cobra.Command{
		Use:   "test",
		Short: "Generate one example per pattern and score the detector",
		Args:  cobra.NoArgs,
		RunE:  c.runTest,
	}
	f := test.Flags()
	f.Int64Var(&c.seed, "seed", -1, "Random seed (default: corpus seed)")
	f.StringVar(&c.corpusPath, "corpus", "", "Path to a corpus YAML file (default: bundled corpus)")
	f.BoolVar(&c.verbose, "show-examples", false, "Print the generated example strings")

	redact := &cobra.Command{
		Use:   "redact <file>",
		Short: "Print a file with known secret shapes replaced by [REDACTED]",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRedact,
	}
	redact.Flags().StringVar(&c.ignorePath, "ignore-file", "", "Extra patterns file, one regexp per line")

	c.cmd.AddCommand(test, redact)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runTest(cmd *cobra.Command, _ []string) error {
	corpus, err := c.loadCorpus()
	if err != nil {
		return err
	}

	report, err := patterns.Run(corpus, c.seed)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seed: %d\n\n", report.Seed)
	for _, r := range report.Results {
		mark := "ok  "
		if !r.Correct {
			mark = "FAIL"
		}
		verdict := "pass"
		if r.Flagged {
			verdict = "flag"
		}
		fmt.Fprintf(out, "%s %-20s %-4s %s\n", mark, r.ID, verdict, r.Verdict.Reason)
		if c.verbose {
			fmt.Fprintf(out, "       example: %s\n", r.Example)
		}
	}

	s := report.Summary
	fmt.Fprintf(out, "\n%d/%d correct (accuracy %.2f)\n", s.Correct, s.Total, s.Accuracy)
	fmt.Fprintf(out, "precision %.2f, recall %.2f (tp=%d fp=%d tn=%d fn=%d)\n",
		s.Precision, s.Recall, s.TruePositives, s.FalsePositives, s.TrueNegatives, s.FalseNegatives)
	return nil
}

func (c *Command) runRedact(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var extra []*regexp.Regexp
	if c.ignorePath != "" {
		if extra, err = patterns.LoadIgnoreFile(c.ignorePath); err != nil {
			return err
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), patterns.Redact(string(data), extra))
	return nil
}

func (c *Command) loadCorpus() (patterns.Corpus, error) {
	if c.corpusPath != "" {
		return patterns.LoadCorpus(c.corpusPath)
	}
	return patterns.DefaultCorpus()
}
