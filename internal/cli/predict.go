package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/refmodel"
	"github.com/roach88/urioracle/internal/storageuri"
)

// PredictOptions holds flags for the predict command.
type PredictOptions struct {
	*RootOptions
	Dataset  string
	BaseArgs string
	Explain  bool
}

// PredictRecord is one predicted rewrite in JSON output.
type PredictRecord struct {
	ID          int64  `json:"id"`
	Original    string `json:"original"`
	Transformed string `json:"transformed"`
}

// PredictExplanation is the match breakdown of one dataset row.
type PredictExplanation struct {
	ID      int64               `json:"id"`
	URI     string              `json:"uri"`
	Matched bool                `json:"matched"`
	Failed  []refmodel.Dimension `json:"failed,omitempty"`
}

// PredictResult is the JSON payload of the predict command.
type PredictResult struct {
	Args        string               `json:"args"`
	Cloud       string               `json:"cloud"`
	Records     []PredictRecord      `json:"records"`
	Explanation []PredictExplanation `json:"explanation,omitempty"`
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PredictOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Print the report the migration tool should produce",
		Long: `Run the reference model over a dataset without invoking any tool.

Migration fields are given with the tool's own flag names and override the
base arguments file when one is given. The output is the canonical report:
one "id,original,transformed" line per rewritten row, ordered by id.

Examples:
  urioracle predict --typesrc wasb --containersrc bravo --accountsrc gopher \
      --pathsrc '*' --accountdest echo --typedest wasbs
  urioracle predict --base test-resources/mockup-mandatory-arguments --typedest adl \
      --accountdest newadlacct --explain`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dataset, "dataset", filepath.Join(DefaultFixturesDir, migspec.DatasetFile), "newline-delimited URI dataset")
	cmd.Flags().StringVar(&opts.BaseArgs, "base", "", "base arguments file to start from")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "show which match dimensions failed for every row")

	for _, f := range migspec.Fields() {
		cmd.Flags().String(f.Flag(), "", f.DisplayName())
	}

	return cmd
}

// specArgs collects base arguments and every migration flag set on cmd.
func specArgs(opts *PredictOptions, cmd *cobra.Command) (migspec.Args, error) {
	var args migspec.Args
	if opts.BaseArgs != "" {
		base, err := migspec.LoadBaseArgs(opts.BaseArgs)
		if err != nil {
			return nil, err
		}
		args = base
	}
	for _, f := range migspec.Fields() {
		if fl := cmd.Flags().Lookup(f.Flag()); fl != nil && fl.Changed {
			args = args.Set(f.Flag(), fl.Value.String())
		}
	}
	return args, nil
}

func runPredict(opts *PredictOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	args, err := specArgs(opts, cmd)
	if err != nil {
		return commandError(formatter, "E_FIXTURES", "loading base arguments", err)
	}

	dataset, err := migspec.LoadDataset(opts.Dataset)
	if err != nil {
		return commandError(formatter, "E_FIXTURES", "loading dataset", err)
	}

	spec, err := migspec.FromArgs(args)
	if err != nil {
		return commandError(formatter, "E_INVALID_ARGS", "invalid migration arguments", err)
	}
	cloud, err := spec.Cloud()
	if err != nil {
		return commandError(formatter, "E_INVALID_ARGS", "invalid migration arguments", err)
	}

	formatter.VerboseLog("predicting %d row(s) with %s in cloud %s", len(dataset), args, cloud.Name)
	records := refmodel.Predict(dataset, spec, cloud)

	if opts.Format == "json" {
		return formatter.Success(buildPredictResult(dataset, spec, cloud, args, records, opts.Explain))
	}

	w := cmd.OutOrStdout()
	if report := refmodel.Report(records); report != "" {
		fmt.Fprintln(w, report)
	}
	if opts.Explain {
		fmt.Fprintln(w)
		for i, raw := range dataset {
			fmt.Fprintf(w, "%d %s: %s\n", i+1, raw, explain(raw, spec, cloud))
		}
	}
	formatter.VerboseLog("%d of %d row(s) would be rewritten", len(records), len(dataset))
	return nil
}

func explain(raw string, spec migspec.Spec, cloud storageuri.Cloud) string {
	u, err := storageuri.Parse(raw)
	if err != nil {
		return "unparseable"
	}
	return refmodel.Explain(u, spec, cloud.Endpoint).String()
}

func buildPredictResult(dataset migspec.Dataset, spec migspec.Spec, cloud storageuri.Cloud, args migspec.Args, records []refmodel.MatchRecord, withExplanation bool) PredictResult {
	res := PredictResult{
		Args:    args.String(),
		Cloud:   cloud.Name,
		Records: make([]PredictRecord, 0, len(records)),
	}
	for _, r := range records {
		res.Records = append(res.Records, PredictRecord{ID: r.ID, Original: r.OriginalURI, Transformed: r.TransformedURI})
	}
	if !withExplanation {
		return res
	}
	for i, raw := range dataset {
		e := PredictExplanation{ID: int64(i + 1), URI: raw}
		if u, err := storageuri.Parse(raw); err == nil {
			ex := refmodel.Explain(u, spec, cloud.Endpoint)
			e.Matched = ex.Matched()
			e.Failed = ex.Failed()
		}
		res.Explanation = append(res.Explanation, e)
	}
	return res
}
