package main

import (
	"encoding/json"
	"fmt"
	gio "io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"cuisine/pkg"
	"cuisine/pkg/server"
)

// dataFlags are the command line overrides of the config file. A flag only
// overrides the config when it is set explicitly.
type dataFlags struct {
	dataFile  string
	encoding  string
	delimiter string
	preview   int
	trees     int
	testRatio float64
	seed      uint64
	maxDepth  int
	workers   int
	addr      string
}

func addDataFlags(cmd *cobra.Command, f *dataFlags) {
	defaults := pkg.DefaultConfig()
	cmd.Flags().StringVarP(&f.dataFile, "data-file", "i", defaults.DataFile, "name of the restaurant data file")
	cmd.Flags().StringVarP(&f.encoding, "encoding", "e", defaults.Encoding, "text encoding of the data file: utf-8, latin-1 or windows-1252")
	cmd.Flags().StringVarP(&f.delimiter, "delimiter", "d", defaults.Delimiter, "field delimiter of the data file")
}

func addTrainingFlags(cmd *cobra.Command, f *dataFlags) {
	defaults := pkg.DefaultConfig()
	cmd.Flags().IntVarP(&f.trees, "trees", "n", defaults.Trees, "number of trees in the forest")
	cmd.Flags().Float64VarP(&f.testRatio, "test-ratio", "r", defaults.TestRatio, "share of the rows held out for testing")
	cmd.Flags().Uint64VarP(&f.seed, "random-seed", "x", defaults.Seed, "random seed of the split and the forest")
	cmd.Flags().IntVarP(&f.maxDepth, "max-depth", "", defaults.MaxDepth, "maximum tree depth, 0 for unlimited")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", defaults.Workers, "trees fitted concurrently, 0 for one per CPU")
}

// resolveConfig reads the config file, if any, and applies the flags that were set.
func resolveConfig(cmd *cobra.Command, f *dataFlags) (pkg.Config, error) {
	config := pkg.DefaultConfig()
	if configFile != "" {
		var err error
		if config, err = pkg.LoadConfig(configFile); err != nil {
			return config, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("data-file") {
		config.DataFile = f.dataFile
	}
	if flags.Changed("encoding") {
		config.Encoding = f.encoding
	}
	if flags.Changed("delimiter") {
		config.Delimiter = f.delimiter
	}
	if flags.Changed("preview") {
		config.PreviewRows = f.preview
	}
	if flags.Changed("trees") {
		config.Trees = f.trees
	}
	if flags.Changed("test-ratio") {
		config.TestRatio = f.testRatio
	}
	if flags.Changed("random-seed") {
		config.Seed = f.seed
	}
	if flags.Changed("max-depth") {
		config.MaxDepth = f.maxDepth
	}
	if flags.Changed("workers") {
		config.Workers = f.workers
	}
	if flags.Changed("addr") {
		config.Addr = f.addr
	}
	return config, config.Validate()
}

func newPipeline(config pkg.Config) (*pkg.Pipeline, error) {
	return pkg.NewPipeline(config.TableCacheSize, config.ModelCacheSize)
}

func DescribeCommand() *cobra.Command {
	var flags dataFlags

	var cmd = &cobra.Command{
		Use:   "describe [-i dataFile]",
		Short: "Shows the shape, column types, missing values and usable features of the data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			pipeline, err := newPipeline(config)
			if err != nil {
				return err
			}
			dataset, err := pipeline.Describe(config.DataFile, config.LoadOptions(), config.PreviewRows)
			if err != nil {
				return err
			}
			printDataset(cmd.OutOrStdout(), dataset)
			return nil
		},
	}

	addDataFlags(cmd, &flags)
	cmd.Flags().IntVarP(&flags.preview, "preview", "p", pkg.DefaultConfig().PreviewRows, "number of rows to preview")
	return cmd
}

func TrainCommand() *cobra.Command {
	var flags dataFlags

	var cmd = &cobra.Command{
		Use:   "train [-i dataFile] [-n trees] [-r testRatio]",
		Short: "Trains a forest on the data file and reports its accuracy, per-class metrics and feature importances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			pipeline, err := newPipeline(config)
			if err != nil {
				return err
			}
			run, err := pipeline.Run(cmd.Context(), config.Params())
			if err != nil {
				return err
			}
			run.Evaluation.LogMetrics()
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}

	addDataFlags(cmd, &flags)
	addTrainingFlags(cmd, &flags)
	return cmd
}

func PredictCommand() *cobra.Command {
	var flags dataFlags
	var values map[string]string

	var cmd = &cobra.Command{
		Use:   "predict --value 'Votes=120' [--value ...]",
		Short: "Trains a forest on the data file and predicts the cuisine of one restaurant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			pipeline, err := newPipeline(config)
			if err != nil {
				return err
			}
			run, err := pipeline.Run(cmd.Context(), config.Params())
			if err != nil {
				return err
			}
			submitted := make(map[string]interface{}, len(values))
			for name, value := range values {
				submitted[name] = value
			}
			cuisine, err := run.Predict(submitted)
			if err != nil {
				return err
			}
			printPrediction(cmd.OutOrStdout(), run, cuisine)
			return nil
		},
	}

	addDataFlags(cmd, &flags)
	addTrainingFlags(cmd, &flags)
	cmd.Flags().StringToStringVarP(&values, "value", "v", nil, "feature value as name=value, repeatable")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func ServeCommand() *cobra.Command {
	var flags dataFlags

	var cmd = &cobra.Command{
		Use:   "serve [-i dataFile] [--addr :8080]",
		Short: "Serves dataset summaries, model reports and predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			pipeline, err := newPipeline(config)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.NewServer(pipeline, config).ListenAndServe(ctx)
		},
	}

	addDataFlags(cmd, &flags)
	addTrainingFlags(cmd, &flags)
	cmd.Flags().StringVarP(&flags.addr, "addr", "a", pkg.DefaultConfig().Addr, "address to listen on")
	return cmd
}

var logLevel string
var logFormat string
var logFile string
var configFile string

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "cuisine",
		Short:             "Predicts the cuisine of a restaurant from its cost, price range, services and votes",
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	root.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	root.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")
	root.PersistentFlags().StringVarP(&logFile, "log-file", "", "", "Write logs to a rotated file instead of stderr")
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")

	root.AddCommand(DescribeCommand())
	root.AddCommand(TrainCommand())
	root.AddCommand(PredictCommand())
	root.AddCommand(ServeCommand())
	return root
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		return fmt.Errorf("invalid logging level %q", logLevel)
	}

	var out gio.Writer = os.Stderr
	if logFile != "" {
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging(out, logFile == "")
	case "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	return nil
}

func setupPrettyLogging(out gio.Writer, colors bool) {
	writer := zerolog.ConsoleWriter{Out: out, NoColor: !colors}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
