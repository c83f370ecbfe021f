package batch

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/okian/epocher/internal/config"
	pipeline "github.com/okian/epocher/internal/domain/pipeline"
	"github.com/okian/epocher/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	LogFormat string
}

// NewRootCommand creates the epocher command line.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "epocher",
		Short: "Match stimulus markers with responses in recordings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(opts.LogFormat)); err != nil {
				return err
			}
			if opts.Verbose {
				logger.SetLevel(slog.LevelDebug)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConditionsCommand(opts))

	return cmd
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:   "run <recording.json>...",
		Short: "Match recordings against a condition template",
		Long: `Match every recording against the conditions of a template.

Each recording is a JSON document with its sample rate and event channels.
One result file per recording is written to --out. Conditions that fail or
do not occur in a recording are reported and the run continues.

Example:
  epocher run --template conditions.yaml --out results sub01.json sub02.json
  epocher run --template conditions.yaml -c FreeView -c ImoIOD sub01.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Inputs = args
			cfg.Verbose = rootOpts.Verbose
			stats, err := Run(cmd.Context(), cfg)
			if stats == nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d recordings (%d unreadable, %d aborted), conditions ok=%d skipped=%d failed=%d in %s\n",
				stats.RunID, stats.Recordings, stats.Unreadable, stats.Aborted, stats.OK, stats.Skipped, stats.Failed, stats.Duration)
			if err != nil {
				return err
			}
			if stats.Unreadable > 0 || stats.Aborted > 0 || stats.Failed > 0 {
				return fmt.Errorf("%d recordings unreadable, %d aborted, %d conditions failed", stats.Unreadable, stats.Aborted, stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.TemplatePath, "template", "t", "", "condition template (required)")
	cmd.Flags().StringArrayVarP(&cfg.Conditions, "condition", "c", nil, "condition to run (repeatable; default all)")
	cmd.Flags().StringVarP(&cfg.OutDir, "out", "o", "", "output directory for result files")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", 0, "concurrent recordings (default CPU count)")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

// NewConditionsCommand creates the conditions command.
func NewConditionsCommand(_ *RootOptions) *cobra.Command {
	var (
		templatePath string
		sfreq        float64
	)

	cmd := &cobra.Command{
		Use:           "conditions",
		Short:         "List and resolve the conditions of a template",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := config.LoadTemplate(cmd.Context(), templatePath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var failed int
			for _, name := range tpl.Names() {
				c, err := tpl.Condition(name, sfreq)
				if err != nil {
					failed++
					_, _ = fmt.Fprintf(out, "%s\tinvalid: %v\n", name, err)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\n", name, describe(c))
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d conditions do not resolve", config.ErrInvalidTemplate, failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "condition template (required)")
	cmd.Flags().Float64Var(&sfreq, "sfreq", 1000, "sample rate used to resolve windows given in seconds")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func describe(c *pipeline.Condition) string {
	s := fmt.Sprintf("marker=%s", c.Marker.Channel)
	if c.IOD != nil {
		s += fmt.Sprintf(" iod=%s%s", c.IOD.Response.Channel, stageWindow(c.IOD.Stage))
	}
	if c.Response != nil {
		s += fmt.Sprintf(" response=%s%s", c.Response.Response.Channel, stageWindow(*c.Response))
	}
	if c.IOD == nil && c.Response == nil {
		s += " type_result=" + c.TypeResult.String()
	}
	return s
}

func stageWindow(s pipeline.Stage) string {
	w := s.Config.Window()
	return fmt.Sprintf("[%d,%d] counts=%s", w.Start, w.End, s.Config.Counts())
}
