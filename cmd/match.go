package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wo-matcher/internal/export"
	"github.com/sells-group/wo-matcher/internal/matcher"
	"github.com/sells-group/wo-matcher/internal/model"
	"github.com/sells-group/wo-matcher/internal/sanitize"
)

var (
	matchText     string
	matchFile     string
	matchExpected int
	matchAll      bool
	matchSimple   bool
	matchInspect  bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match one billing text against the work orders",
	Long:  "Reads billing text from --text, --file or stdin and prints the matching result as JSON. With --inspect it only prints what the sanitizer sees.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		text, err := readText(matchText, matchFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		if matchInspect {
			return inspectText(cmd.OutOrStdout(), sanitizeOptions(cfg), text)
		}
		if matchSimple {
			cfg.Matching.SimplePrompt = true
		}

		env, err := initMatchEnv(ctx, "match")
		if err != nil {
			return err
		}

		threshold := cfg.Matching.ConfidenceThreshold
		if matchAll {
			threshold = 0
		}
		return runMatch(ctx, env.Engine, env.Orders, text, matchExpected, threshold, cmd.OutOrStdout())
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchText, "text", "", "billing text")
	matchCmd.Flags().StringVar(&matchFile, "file", "", "file holding the billing text (- for stdin)")
	matchCmd.Flags().IntVar(&matchExpected, "expected", 0, "expected number of matches (0 = detect)")
	matchCmd.Flags().BoolVar(&matchAll, "all", false, "include matches below the confidence threshold")
	matchCmd.Flags().BoolVar(&matchSimple, "simple", false, "send only the detected billing lines with the short instruction")
	matchCmd.Flags().BoolVar(&matchInspect, "inspect", false, "print sanitizer stats and detected billing lines without calling the provider")
	rootCmd.AddCommand(matchCmd)
}

// readText picks the billing text from the flag, a file, or stdin.
func readText(text, file string, stdin io.Reader) (string, error) {
	switch {
	case text != "":
		return text, nil
	case file != "" && file != "-":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", eris.Wrap(err, "read billing text file")
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "read billing text from stdin")
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", eris.New("no billing text: use --text, --file or stdin")
		}
		return string(data), nil
	}
}

// runMatch runs one pass and writes the exported result to w. A failed run
// is still written before its error is returned.
func runMatch(ctx context.Context, eng *matcher.Engine, orders []model.WorkOrder, text string, expected, threshold int, w io.Writer) error {
	res, err := eng.Match(ctx, text, orders, expected)
	if err != nil {
		return eris.Wrap(err, "match")
	}

	res = applyThreshold(res, threshold)
	data, err := export.Encode(res)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "write result")
	}

	if !res.Success {
		return eris.Errorf("matching failed: %s", res.Error)
	}
	return nil
}

// applyThreshold returns a copy of res keeping only matches at or above
// minConfidence.
func applyThreshold(res *model.MatchingResult, minConfidence int) *model.MatchingResult {
	if minConfidence <= 0 || !res.Success {
		return res
	}
	out := *res
	out.Matches = res.AboveThreshold(minConfidence)
	return &out
}

// inputReport is what --inspect prints.
type inputReport struct {
	OriginalLength  int             `json:"original_length"`
	SanitizedLength int             `json:"sanitized_length"`
	Truncated       bool            `json:"truncated"`
	Warnings        []string        `json:"warnings"`
	Stats           sanitize.Stats  `json:"stats"`
	Items           []sanitize.Item `json:"items"`
}

// inspectText sanitizes text and writes the report. Rejected input is
// returned as an error.
func inspectText(w io.Writer, opts sanitize.Options, text string) error {
	res, err := sanitize.New(opts).Sanitize(text)
	if err != nil {
		return eris.Wrap(err, "inspect")
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	report := inputReport{
		OriginalLength:  res.OriginalLength,
		SanitizedLength: res.SanitizedLength,
		Truncated:       res.Truncated,
		Warnings:        warnings,
		Stats:           sanitize.ComputeStats(res.Text),
		Items:           sanitize.ExtractItems(res.Text),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(report), "write input report")
}
