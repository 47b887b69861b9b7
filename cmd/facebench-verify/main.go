// Command facebench-verify runs the verification (1:1) benchmarking
// pipeline: extract descriptors for every template in a list file, then
// match every pair and report ROC.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/chervyakov/facebench"
	"github.com/chervyakov/facebench/internal/binio"
	"github.com/chervyakov/facebench/internal/config"
	"github.com/chervyakov/facebench/internal/engine"
	"github.com/chervyakov/facebench/internal/engine/stub"
	"github.com/chervyakov/facebench/internal/extractor"
	"github.com/chervyakov/facebench/internal/inputlist"
	"github.com/chervyakov/facebench/internal/logging"
	"github.com/chervyakov/facebench/internal/verifdriver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "facebench-verify: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	var configFile string
	var sanityLo, sanityHi float64

	flags := pflag.NewFlagSet("facebench-verify", pflag.ContinueOnError)
	flags.StringVar(&cfg.Split, "split", cfg.Split, "base directory all list-file image paths are relative to")
	flags.StringVar(&cfg.ConfigDir, "config", cfg.ConfigDir, "engine configuration directory")
	flags.StringVar(&cfg.ExtractPrefix, "extract_prefix", cfg.ExtractPrefix, "output file prefix")
	flags.BoolVar(&cfg.Grayscale, "grayscale", cfg.Grayscale, "decode images as 8-bit grayscale instead of 24-bit RGB")
	flags.Uint32Var(&cfg.CountProc, "count_proc", cfg.CountProc, "worker count for extraction")
	flags.Uint32Var(&cfg.DescSize, "desc_size", cfg.DescSize, "descriptor payload size in bytes")
	flags.Uint32Var(&cfg.Percentile, "percentile", cfg.Percentile, "extended timing percentile (0-100)")
	flags.BoolVar(&cfg.DebugInfo, "debug_info", cfg.DebugInfo, "write a debug_info.txt timing log")
	flags.BoolVar(&cfg.ExtractInfo, "extract_info", cfg.ExtractInfo, "write an extract_info.txt eye/quality log")
	flags.BoolVar(&cfg.ExtraTimings, "extra_timings", cfg.ExtraTimings, "retain per-template timing samples")
	flags.StringVar(&cfg.ExtractList, "extract_list", cfg.ExtractList, "list file of templates to extract")
	flags.BoolVar(&cfg.DoExtract, "do_extract", cfg.DoExtract, "run the extraction stage")
	flags.BoolVar(&cfg.DoMatch, "do_match", cfg.DoMatch, "run the all-pairs matching stage")
	flags.BoolVar(&cfg.DoROC, "do_ROC", cfg.DoROC, "compute and print ROC after matching")
	flags.Float64Var(&sanityLo, "sanity_lo", 0, "lower bound of the match-score sanity band")
	flags.Float64Var(&sanityHi, "sanity_hi", 1, "upper bound of the match-score sanity band")
	configFileFlag := flags.String("config_file", "", "optional YAML file seeding defaults for unset flags")
	engineName := flags.String("engine", "stub", "recognition engine to drive (currently only \"stub\")")
	verbosity := flags.CountP("verbose", "v", "increase log verbosity")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	configFile = *configFileFlag

	if configFile != "" {
		changed := map[string]bool{}
		flags.Visit(func(f *pflag.Flag) { changed[f.Name] = true })
		if err := config.MergeFile(configFile, &cfg, changed); err != nil {
			return err
		}
	}

	level := logrus.WarnLevel
	switch {
	case *verbosity >= 2:
		level = logrus.DebugLevel
	case *verbosity == 1:
		level = logrus.InfoLevel
	}
	log := logging.New(level)

	eng, err := buildEngine(*engineName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if code := eng.Initialize(ctx, cfg.ConfigDir); code != engine.Success {
		return &engine.Error{Code: code, Info: "initialize"}
	}

	descPath := cfg.ExtractPrefix + "_desc.bin"

	if cfg.DoExtract {
		if err := doExtract(ctx, log, cfg, eng, descPath); err != nil {
			return err
		}
	}

	if cfg.DoMatch || cfg.DoROC {
		if err := doMatchAndROC(ctx, log, cfg, eng, descPath, sanityLo, sanityHi); err != nil {
			return err
		}
	}
	return nil
}

func buildEngine(name string) (*stub.Engine, error) {
	switch name {
	case "stub", "":
		return stub.New(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

func doExtract(ctx context.Context, log *logrus.Logger, cfg config.Config, eng *stub.Engine, descPath string) error {
	if cfg.ExtractList == "" {
		logging.Stage(log, "extract").Warn("do_extract set but extract_list is empty; skipping extraction")
		return nil
	}
	f, err := os.Open(cfg.ExtractList)
	if err != nil {
		return fmt.Errorf("open extract_list: %w", err)
	}
	defer f.Close()

	templates, err := inputlist.Parse(f)
	if err != nil {
		return fmt.Errorf("parse extract_list: %w", err)
	}
	for i, tmpl := range templates {
		for j, p := range tmpl.ImagePaths {
			if !filepath.IsAbs(p) {
				templates[i].ImagePaths[j] = filepath.Join(cfg.Split, p)
			}
		}
	}

	sdf, err := binio.OpenShared(descPath, len(templates), int(cfg.DescSize))
	if err != nil {
		return err
	}
	defer sdf.Close()

	aux, err := binio.OpenAuxLogger(cfg.ExtractPrefix, cfg.DebugInfo, cfg.ExtractInfo, true)
	if err != nil {
		return err
	}
	defer aux.Close()

	extractCfg := extractor.Config{
		DescSize:   int(cfg.DescSize),
		Role:       facebench.RoleVerification,
		NumWorkers: int(cfg.CountProc),
		Grayscale:  cfg.Grayscale,
		Extended:   cfg.ExtraTimings,
		Percentile: float64(cfg.Percentile) / 100,
	}
	stats, err := extractor.Run(ctx, eng, templates, extractCfg, sdf, aux)
	if err != nil {
		return err
	}
	logging.Stage(log, "extract").WithFields(logrus.Fields{
		"total":   stats.Total,
		"refused": stats.Refused,
		"average": stats.Average,
	}).Info("extraction complete")
	return nil
}

func doMatchAndROC(ctx context.Context, log *logrus.Logger, cfg config.Config, eng *stub.Engine, descPath string, sanityLo, sanityHi float64) error {
	f, err := os.Open(descPath)
	if err != nil {
		return fmt.Errorf("open descriptor file: %w", err)
	}
	defer f.Close()

	band := verifdriver.Band{Lo: sanityLo, Hi: sanityHi}
	result, runErr := verifdriver.Run(ctx, f, int(cfg.DescSize), eng, band, band, cfg.ExtraTimings)

	// Persist both score vectors unconditionally, even on a sanity-band
	// violation, so they are on disk for diagnosing the regression runErr
	// reports.
	trueW, err := os.Create(cfg.ExtractPrefix + "_matches_true.bin")
	if err != nil {
		return err
	}
	defer trueW.Close()
	falseW, err := os.Create(cfg.ExtractPrefix + "_matches_false.bin")
	if err != nil {
		return err
	}
	defer falseW.Close()
	if err := verifdriver.PersistScores(trueW, falseW, result); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	if cfg.DoROC {
		for i, fpr := range verifdriver.DefaultFPRs {
			tpr := "none"
			if result.ROC[i] >= 0 {
				tpr = fmt.Sprintf("%g", result.ROC[i])
			}
			fmt.Printf("-%d %s\n", fpr, tpr)
		}
	}
	logging.Stage(log, "match").WithFields(logrus.Fields{
		"mated":     len(result.MatchesTrue),
		"non_mated": len(result.MatchesFalse),
		"skipped":   result.Skipped,
	}).Info("matching complete")
	return nil
}
