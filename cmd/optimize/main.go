// Command optimize schickt einen einzelnen Optimierungs-Request und gibt die gefilterte Liste aus.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"molgenx/config"
	"molgenx/models"
	"molgenx/providers/optimizer"
	"molgenx/services"
)

var errMalformed = errors.New("optimization service returned an unreadable response")

type options struct {
	protein       string
	apiBase       string
	weights       []string
	sortBy        string
	minLikeliness float64
	maxToxicity   float64
	minBinding    float64
	asJSON        bool
}

func main() {
	if err := newOptimizeCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newOptimizeCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	defaults := models.DefaultFilters()

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize compounds for a protein target",
		Long:  `Sends one optimization request to the backend and prints the filtered, sorted result list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if opts.apiBase != "" {
				cfg.APIBaseURL = strings.TrimRight(opts.apiBase, "/")
			}
			logger, err := newCLILogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runOptimize(cmd.Context(), cfg, opts, out, cmd.ErrOrStderr(), logger)
		},
	}
	cmd.SetOut(out)

	cmd.Flags().StringVar(&opts.protein, "protein", "", "Protein sequence or identifier (required)")
	cmd.Flags().StringVar(&opts.apiBase, "api-base", "", "Base URL of the optimization backend (overrides API_BASE_URL)")
	cmd.Flags().StringArrayVar(&opts.weights, "weight", nil, "Weight override name=value, repeatable (e.g. toxicity=1.0)")
	cmd.Flags().StringVar(&opts.sortBy, "sort", string(defaults.SortBy), "Sort: likeliness|toxicity|binding with -asc or -desc")
	cmd.Flags().Float64Var(&opts.minLikeliness, "min-likeliness", defaults.MinLikeliness, "Minimum likeliness")
	cmd.Flags().Float64Var(&opts.maxToxicity, "max-toxicity", defaults.MaxToxicity, "Maximum toxicity")
	cmd.Flags().Float64Var(&opts.minBinding, "min-binding", defaults.MinBindingAffinity, "Minimum binding affinity")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of a table")
	cmd.MarkFlagRequired("protein")

	return cmd
}

func newCLILogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.Encoding = "console"
	return zcfg.Build()
}

func runOptimize(ctx context.Context, cfg *config.Config, opts *options, out, errOut io.Writer, logger *zap.Logger) error {
	key, err := services.ValidateProteinKey(opts.protein, services.KeyMode(cfg.ProteinKeyMode))
	if err != nil {
		return err
	}
	weights, err := parseWeights(opts.weights)
	if err != nil {
		return err
	}
	filters := models.FilterState{
		MinLikeliness:      opts.minLikeliness,
		MaxToxicity:        opts.maxToxicity,
		MinBindingAffinity: opts.minBinding,
		SortBy:             models.SortKey(opts.sortBy),
	}
	if err := filters.Validate(); err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
	}

	res, err := optimizer.NewFetcher(cfg, logger).RequestOptimization(ctx, key, weights)
	if err != nil {
		return err
	}
	if res.Malformed {
		for _, issue := range res.Issues {
			fmt.Fprintln(errOut, color.YellowString("warning: %s", issue))
		}
		return errMalformed
	}

	view := services.DeriveView(res.Compounds, filters)
	if opts.asJSON {
		return writeJSON(out, key, res, view)
	}
	writeTable(out, key, res, view)
	return nil
}

// parseWeights wendet name=value-Paare auf die Standardgewichte an.
func parseWeights(pairs []string) (models.OptimizationWeights, error) {
	w := models.DefaultWeights()
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return w, services.InvalidInputf("weight %q: expected name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return w, services.InvalidInputf("weight %q: %v", pair, err)
		}
		if err := w.Set(strings.TrimSpace(name), v); err != nil {
			return w, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
		}
	}
	return w, nil
}

type jsonOutput struct {
	Protein             string                     `json:"protein"`
	Explanation         string                     `json:"explanation"`
	Total               int                        `json:"total"`
	Shown               int                        `json:"shown"`
	Compounds           []models.OptimizedCompound `json:"compounds"`
	Variants            []models.OptimizedCompound `json:"variants,omitempty"`
	VariantsExplanation string                     `json:"variants_explanation,omitempty"`
}

func writeJSON(out io.Writer, key string, res *services.OptimizationResult, view []models.OptimizedCompound) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutput{
		Protein:             key,
		Explanation:         res.Explanation,
		Total:               len(res.Compounds),
		Shown:               len(view),
		Compounds:           view,
		Variants:            res.Variants,
		VariantsExplanation: res.VariantsExplanation,
	})
}

func writeTable(out io.Writer, key string, res *services.OptimizationResult, view []models.OptimizedCompound) {
	fmt.Fprintf(out, "\n=== Optimized Compounds for %s ===\n\n", key)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Name", "Formula", "Likeliness", "Toxicity", "Binding", "Weight"})
	for _, c := range view {
		likeliness := fmt.Sprintf("%.2f", c.Likeliness)
		if c.Likeliness >= 0.8 {
			likeliness = color.GreenString("%s", likeliness)
		}
		toxicity := fmt.Sprintf("%.2f", c.Toxicity)
		if c.Toxicity >= 5 {
			toxicity = color.RedString("%s", toxicity)
		}
		table.Append([]string{
			c.ID,
			truncate(c.Name, 30),
			truncate(c.Formula, 40),
			likeliness,
			toxicity,
			fmt.Sprintf("%.2f", c.BindingAffinity),
			fmt.Sprintf("%.2f", c.MolecularWeight),
		})
	}
	table.Render()

	if len(view) == len(res.Compounds) {
		fmt.Fprintf(out, "\nFound %d optimized compounds for your target.\n", len(res.Compounds))
	} else {
		fmt.Fprintf(out, "\nShowing %d of %d compounds.\n", len(view), len(res.Compounds))
	}
	if res.Explanation != "" {
		fmt.Fprintf(out, "\n%s\n", res.Explanation)
	}
}

// truncate kürzt auf n Runes, damit Mehrbyte-Zeichen nicht zerschnitten werden.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
