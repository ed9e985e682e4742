package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/theanmol-raj/qnagen/internal/batch"
	"github.com/theanmol-raj/qnagen/internal/llm"
	"github.com/theanmol-raj/qnagen/internal/prompt"
	"github.com/theanmol-raj/qnagen/internal/sheet"
	"github.com/theanmol-raj/qnagen/internal/ui"
	"github.com/theanmol-raj/qnagen/internal/ui/tui"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a question and answer for every row of a spreadsheet",
	Long: "Reads the Questions and Answers columns of one sheet, sends the rendered\n" +
		"prompt for each row to the selected model and writes the table with two\n" +
		"extra columns, Generated questions and Generated answers.",
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringP("input", "i", "", "Input spreadsheet (.xlsx or .csv)")
	f.StringP("sheet", "s", "", "Sheet to process (default: first sheet)")
	f.StringP("output", "o", sheet.OutputFileName, "Output file (.xlsx or .csv)")
	f.String("provider", "", "Backend: openai, anthropic, google, anthropic-gateway")
	f.String("model", "", "Model name or alias")
	f.String("api-key", "", "API key for the backend")
	f.String("template-file", "", "Prompt template file")
	f.Int("max-tokens", 0, "Output token cap per call")
	f.Duration("timeout", 0, "Per-call timeout")
	f.Bool("strict-placeholders", false, "Fail rows whose text contains {question} or {answer}")
	f.Bool("tui", false, "Show the full-screen progress view")
	f.Bool("dry-run", false, "Use the offline mock backend instead of a real model")
	f.Bool("pick", false, "Choose the model from the catalog interactively")
	_ = generateCmd.MarkFlagRequired("input")
}

// applyGenerateFlags copies explicitly set flags over the loaded config.
func applyGenerateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if v, _ := f.GetString("provider"); v != "" && v != cfg.Provider {
		// Model and key from the config belong to the configured backend.
		cfg.Provider = v
		cfg.Model = ""
		cfg.APIKey = ""
	}
	if v, _ := f.GetString("model"); v != "" {
		cfg.Model = v
	}
	if v, _ := f.GetString("api-key"); v != "" {
		cfg.APIKey = v
	}
	if v, _ := f.GetString("template-file"); v != "" {
		cfg.TemplateFile = v
	}
	if v, _ := f.GetInt("max-tokens"); v > 0 {
		cfg.MaxTokens = v
	}
	if v, _ := f.GetDuration("timeout"); v > 0 {
		cfg.Timeout = v
	}
	if f.Changed("strict-placeholders") {
		cfg.StrictPlaceholders, _ = f.GetBool("strict-placeholders")
	}
	if dry, _ := f.GetBool("dry-run"); dry {
		cfg.Provider = string(llm.KindMock)
		cfg.Model = ""
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applyGenerateFlags(cmd)

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	sheetName, _ := cmd.Flags().GetString("sheet")
	useTUI, _ := cmd.Flags().GetBool("tui")
	pick, _ := cmd.Flags().GetBool("pick")

	if _, err := sheet.FormatOf(output); err != nil {
		return err
	}

	tty := interactive()
	if pick {
		if !tty {
			return errors.New("--pick needs an interactive terminal")
		}
		if err := pickModel(); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	sheetName, err := resolveSheet(input, sheetName, tty)
	if err != nil {
		return err
	}

	table, err := sheet.Read(input, sheetName)
	if err != nil {
		return err
	}

	tmpl, err := prompt.Load(cfg.TemplateFile)
	if err != nil {
		return err
	}

	pc, err := cfg.ProviderConfig()
	if err != nil {
		return err
	}
	if pc.Kind.NeedsAPIKey() && pc.APIKey == "" && tty {
		key, err := tui.PromptSecret(fmt.Sprintf("API key for %s", pc.Kind), llm.APIKeyEnv(pc.Kind))
		if err != nil {
			return err
		}
		pc.APIKey = key
	}

	h := openHistory()
	defer h.close()

	dispatcher := newDispatcher(ctx, h.events, pc.Kind == llm.KindGateway)
	bcfg := batch.Config{
		Template:           tmpl,
		Provider:           pc,
		StrictPlaceholders: cfg.StrictPlaceholders,
		Source:             filepath.Base(input),
		Sheet:              sheetName,
	}
	logger := slog.Default()

	var summary *batch.Summary
	run := func(ctx context.Context, rep batch.Reporter) error {
		r := batch.NewRunner(dispatcher, bcfg,
			batch.WithRunRepo(h.runs),
			batch.WithReporter(rep),
			batch.WithLogger(logger),
		)
		s, err := r.Run(ctx, table)
		summary = s
		return err
	}

	switch {
	case useTUI && tty:
		detail := fmt.Sprintf("%s · %s · %s", filepath.Base(input), pc.Kind, pc.Model)
		err = tui.RunProgress(ctx, "qnagen", detail, func(ctx context.Context, rep tui.Reporter) error {
			return run(ctx, rep)
		})
	case tty:
		err = run(ctx, ui.NewBarReporter(os.Stderr, 40))
	default:
		err = run(ctx, batch.LogReporter{Logger: logger})
	}

	if summary == nil {
		return err
	}

	interrupted := err != nil
	if interrupted && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if werr := sheet.Write(output, table); werr != nil {
		return werr
	}
	printSummary(cmd, summary, output, interrupted)
	return err
}

// resolveSheet returns the sheet to read. An unnamed sheet of a multi-sheet
// workbook is chosen interactively on a terminal, else the first sheet.
func resolveSheet(path, name string, tty bool) (string, error) {
	names, err := sheet.Names(path)
	if err != nil {
		return "", err
	}
	if name != "" || len(names) < 2 || !tty {
		return name, nil
	}
	i, err := tui.Choose("Choose a sheet", names, 0)
	if err != nil {
		return "", err
	}
	return names[i], nil
}

func pickModel() error {
	labels := make([]string, len(llm.Catalog))
	initial := 0
	for i, o := range llm.Catalog {
		labels[i] = o.Label
		if string(o.Kind) == cfg.Provider && o.Model == cfg.Model {
			initial = i
		}
	}
	i, err := tui.Choose("Choose a model", labels, initial)
	if err != nil {
		return err
	}
	opt := llm.Catalog[i]
	if string(opt.Kind) != cfg.Provider {
		cfg.APIKey = ""
	}
	cfg.Provider = string(opt.Kind)
	cfg.Model = opt.Model
	return nil
}

func printSummary(cmd *cobra.Command, s *batch.Summary, output string, interrupted bool) {
	out := cmd.OutOrStdout()
	if interrupted {
		fmt.Fprintf(out, "Interrupted after %d of %d rows.\n", s.Processed, s.Rows)
	}
	fmt.Fprintf(out, "Rows:      %d (%d ok, %d failed)\n", s.Processed, s.Succeeded, s.Failed)
	fmt.Fprintf(out, "Duration:  %s\n", s.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(out, "Output:    %s\n", output)
	if !cfg.NoHistory && s.RunID != "" {
		fmt.Fprintf(out, "Run:       %s\n", s.RunID)
	}
}
