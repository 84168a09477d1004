package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/formatter"
	"github.com/clinicops/chartquery/internal/workflow"
)

var (
	flagAskJSON    bool
	flagAskVerbose bool
	flagProvider   string
	flagModel      string
	flagMaxHops    int
)

// asker runs one question to a terminal outcome.
type asker interface {
	Run(ctx context.Context, question string) (*workflow.Result, error)
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about a patient's visit records",
	Long: `Ask runs one natural-language question through the record workflow and
prints the resulting narrative, or a fixed no-data reply when the
question names no known patient or the patient has no stored visits.

The question should name the patient by identifier, for example:

  chartquery ask "What medication is patient A102 taking for the right eye?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&flagAskJSON, "json", false,
		"print the full outcome as JSON")
	askCmd.Flags().BoolVarP(&flagAskVerbose, "verbose", "v", false,
		"show the extraction and query details")
	askCmd.Flags().StringVar(&flagProvider, "provider", "",
		"generation provider (gemini, openai)")
	askCmd.Flags().StringVar(&flagModel, "model", "",
		"generation model name")
	askCmd.Flags().IntVar(&flagMaxHops, "max-hops", 0,
		"state transition bound per question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	repo, catalog, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	engine, err := newEngine(ctx, cfg, catalog, repo)
	if err != nil {
		return err
	}

	return runAskWithEngine(ctx, engine, strings.Join(args, " "), flagAskJSON, flagAskVerbose)
}

// runAskWithEngine runs the question and prints the outcome. The spinner
// writes to stderr so piped stdout stays clean.
func runAskWithEngine(ctx context.Context, engine asker, question string, jsonOut, verbose bool) error {
	var spin *spinner.Spinner
	if !jsonOut {
		spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond,
			spinner.WithWriter(os.Stderr))
		spin.Suffix = " Reading the records..."
		spin.Start()
	}

	result, err := engine.Run(ctx, question)

	if spin != nil {
		spin.Stop()
	}

	if err != nil {
		return err
	}

	if jsonOut {
		return printResultJSON(result)
	}

	form := formatter.FormatShort
	if verbose {
		form = formatter.FormatLong
	}

	fmt.Println(formatter.NewFormatter().FormatAnswer(result, form))

	return nil
}

func printResultJSON(result *workflow.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	fmt.Println(string(data))

	return nil
}
