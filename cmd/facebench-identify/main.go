// Command facebench-identify runs the identification (1:N) benchmarking
// pipeline: extract a gallery, finalize it, optionally stress insert/remove
// ids, search it with mate/non-mate queries, and report TPIR.
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
	"github.com/chervyakov/facebench/internal/identdriver"
	"github.com/chervyakov/facebench/internal/inputlist"
	"github.com/chervyakov/facebench/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "facebench-identify: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()

	flags := pflag.NewFlagSet("facebench-identify", pflag.ContinueOnError)
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
	flags.StringVar(&cfg.DBList, "db_list", cfg.DBList, "list file of gallery templates")
	flags.StringVar(&cfg.MateList, "mate_list", cfg.MateList, "list file of mate search probes")
	flags.StringVar(&cfg.NonmateList, "nonmate_list", cfg.NonmateList, "list file of non-mate search probes")
	flags.StringVar(&cfg.InsertList, "insert_list", cfg.InsertList, "list file of templates to stress-insert after finalize")
	flags.StringVar(&cfg.RemoveList, "remove_list", cfg.RemoveList, "newline-delimited list of gallery ids to stress-remove")
	flags.Uint32Var(&cfg.NearestCount, "nearest_count", cfg.NearestCount, "candidates requested per identification search")
	flags.BoolVar(&cfg.SearchInfo, "search_info", cfg.SearchInfo, "accepted for CLI compatibility; no search log is written")
	flags.BoolVar(&cfg.DoGraph, "do_graph", cfg.DoGraph, "extract the gallery and finalize it")
	flags.BoolVar(&cfg.DoInsert, "do_insert", cfg.DoInsert, "run the insert_list stress stage")
	flags.BoolVar(&cfg.DoRemove, "do_remove", cfg.DoRemove, "run the remove_list stress stage")
	flags.BoolVar(&cfg.DoSearch, "do_search", cfg.DoSearch, "run the mate/non-mate search stage")
	flags.BoolVar(&cfg.DoTPIR, "do_tpir", cfg.DoTPIR, "compute and write TPIR reports after search")
	configFileFlag := flags.String("config_file", "", "optional YAML file seeding defaults for unset flags")
	engineName := flags.String("engine", "stub", "recognition engine to drive (currently only \"stub\")")
	verbosity := flags.CountP("verbose", "v", "increase log verbosity")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if configFile := *configFileFlag; configFile != "" {
		changed := map[string]bool{}
		flags.Visit(func(f *pflag.Flag) { changed[f.Name] = true })
		if err := config.MergeFile(configFile, &cfg, changed); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
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
	descPath := cfg.ExtractPrefix + "_gallery_desc.bin"
	manifestPath := cfg.ExtractPrefix + "_gallery_manifest.txt"

	if cfg.DoGraph {
		if err := doGraph(ctx, log, cfg, eng, descPath, manifestPath); err != nil {
			return err
		}
	}

	if code := eng.FinalizeInit(ctx, cfg.ConfigDir, cfg.ConfigDir, descPath, manifestPath); code != engine.Success {
		return &engine.Error{Code: code, Info: "finalizeInit"}
	}
	if code := eng.InitializeIdentification(ctx, cfg.ConfigDir, cfg.ConfigDir); code != engine.Success {
		return &engine.Error{Code: code, Info: "initializeIdentification"}
	}

	if cfg.DoInsert {
		if err := doInsert(ctx, log, cfg, eng, descPath); err != nil {
			return err
		}
	}
	if cfg.DoRemove {
		if err := doRemove(ctx, log, cfg, eng); err != nil {
			return err
		}
	}
	if cfg.DoSearch || cfg.DoTPIR {
		if err := doSearchAndTPIR(ctx, log, cfg, eng); err != nil {
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

// doGraph extracts the db_list gallery and writes its descriptor file and
// manifest, the two inputs FinalizeInit consumes.
func doGraph(ctx context.Context, log *logrus.Logger, cfg config.Config, eng *stub.Engine, descPath, manifestPath string) error {
	if cfg.DBList == "" {
		log.Warn("do_graph set but db_list is empty; skipping gallery extraction")
		return nil
	}
	templates, err := loadTemplates(cfg.DBList, cfg.Split)
	if err != nil {
		return err
	}
	if code := eng.InitializeTemplateCreation(ctx, cfg.ConfigDir, facebench.RoleInitI); code != engine.Success {
		return &engine.Error{Code: code, Info: "initializeTemplateCreation"}
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
		Role:       facebench.RoleInitI,
		NumWorkers: int(cfg.CountProc),
		Grayscale:  cfg.Grayscale,
		Extended:   cfg.ExtraTimings,
		Percentile: float64(cfg.Percentile) / 100,
	}
	stats, err := extractor.Run(ctx, eng, templates, extractCfg, sdf, aux)
	if err != nil {
		return err
	}
	logging.Stage(log, "graph").WithFields(logrus.Fields{"total": stats.Total, "refused": stats.Refused}).Info("gallery extraction complete")

	if err := sdf.Close(); err != nil {
		return err
	}
	descFile, err := os.Open(descPath)
	if err != nil {
		return err
	}
	defer descFile.Close()
	records, _, err := binio.ReadDescriptors(descFile, int(cfg.DescSize))
	if err != nil {
		return err
	}
	manifestW, err := os.Create(manifestPath)
	if err != nil {
		return err
	}
	defer manifestW.Close()
	return binio.WriteManifest(manifestW, records, int(cfg.DescSize))
}

func doInsert(ctx context.Context, log *logrus.Logger, cfg config.Config, eng *stub.Engine, galleryDescPath string) error {
	if cfg.InsertList == "" {
		logging.Stage(log, "insert").Warn("do_insert set but insert_list is empty; skipping")
		return nil
	}
	templates, err := loadTemplates(cfg.InsertList, cfg.Split)
	if err != nil {
		return err
	}

	sdf, err := binio.OpenShared(cfg.ExtractPrefix+"_insert_desc.bin", len(templates), int(cfg.DescSize))
	if err != nil {
		return err
	}
	defer sdf.Close()

	extractCfg := extractor.Config{
		DescSize:   int(cfg.DescSize),
		Role:       facebench.RoleIdentification,
		NumWorkers: int(cfg.CountProc),
		Grayscale:  cfg.Grayscale,
	}
	if _, err := extractor.Run(ctx, eng, templates, extractCfg, sdf, nil); err != nil {
		return err
	}
	if err := sdf.Close(); err != nil {
		return err
	}

	f, err := os.Open(cfg.ExtractPrefix + "_insert_desc.bin")
	if err != nil {
		return err
	}
	defer f.Close()
	records, _, err := binio.ReadDescriptors(f, int(cfg.DescSize))
	if err != nil {
		return err
	}

	dbSize, err := galleryRecordCount(galleryDescPath, int(cfg.DescSize))
	if err != nil {
		return err
	}
	if err := identdriver.InsertStress(ctx, eng, dbSize, records); err != nil {
		return err
	}
	logging.Stage(log, "insert").WithField("count", len(records)).Info("insert stress complete")
	return nil
}

func doRemove(ctx context.Context, log *logrus.Logger, cfg config.Config, eng *stub.Engine) error {
	if cfg.RemoveList == "" {
		logging.Stage(log, "remove").Warn("do_remove set but remove_list is empty; skipping")
		return nil
	}
	ids, err := readLines(cfg.RemoveList)
	if err != nil {
		return err
	}
	if err := identdriver.RemoveStress(ctx, eng, ids); err != nil {
		return err
	}
	logging.Stage(log, "remove").WithField("count", len(ids)).Info("remove stress complete")
	return nil
}

func doSearchAndTPIR(ctx context.Context, log *logrus.Logger, cfg config.Config, eng *stub.Engine) error {
	mates, err := loadQueries(ctx, eng, cfg, cfg.MateList, facebench.RoleIdentification)
	if err != nil {
		return err
	}
	nonmates, err := loadQueries(ctx, eng, cfg, cfg.NonmateList, facebench.RoleIdentification)
	if err != nil {
		return err
	}

	result, err := identdriver.Search(ctx, eng, mates, nonmates, int(cfg.NearestCount))
	if err != nil {
		return err
	}

	falseW, err := os.Create(cfg.ExtractPrefix + "_matches_false.bin")
	if err != nil {
		return err
	}
	defer falseW.Close()
	if err := binio.WriteScores(falseW, result.MatchesFalse); err != nil {
		return err
	}
	for _, r := range append([]int{identdriver.General}, identdriver.Ranks...) {
		path := fmt.Sprintf("%s_matches_true_r%d.bin", cfg.ExtractPrefix, r)
		if r == identdriver.General {
			path = cfg.ExtractPrefix + "_matches_true.bin"
		}
		w, err := os.Create(path)
		if err != nil {
			return err
		}
		err = binio.WriteScores(w, result.MatchesTrueByRank[r])
		w.Close()
		if err != nil {
			return err
		}
	}

	logging.Stage(log, "search").WithFields(logrus.Fields{
		"mates":     len(mates),
		"non_mates": len(nonmates),
	}).Info("search complete")

	if !cfg.DoTPIR {
		return nil
	}

	report, err := os.Create(cfg.ExtractPrefix + "_tpir.txt")
	if err != nil {
		return err
	}
	defer report.Close()
	if err := identdriver.WriteTPIRReport(report, identdriver.General, result.MatchesTrueByRank[identdriver.General], result.MatchesFalse); err != nil {
		return err
	}
	for _, r := range identdriver.Ranks {
		if err := identdriver.WriteTPIRReport(report, r, result.MatchesTrueByRank[r], result.MatchesFalse); err != nil {
			return err
		}
	}
	return nil
}

// loadQueries extracts every template in listPath into the intermediate
// descriptor file <prefix>_query_desc.bin, reads it back, and converts each
// record into an identdriver.Query, keeping its refusal-aware label.
func loadQueries(ctx context.Context, eng *stub.Engine, cfg config.Config, listPath string, role facebench.TemplateRole) ([]identdriver.Query, error) {
	if listPath == "" {
		return nil, nil
	}
	templates, err := loadTemplates(listPath, cfg.Split)
	if err != nil {
		return nil, err
	}

	sdf, err := binio.OpenShared(cfg.ExtractPrefix+"_query_desc.bin", len(templates), int(cfg.DescSize))
	if err != nil {
		return nil, err
	}
	defer sdf.Close()

	extractCfg := extractor.Config{
		DescSize:   int(cfg.DescSize),
		Role:       role,
		NumWorkers: int(cfg.CountProc),
		Grayscale:  cfg.Grayscale,
	}
	if _, err := extractor.Run(ctx, eng, templates, extractCfg, sdf, nil); err != nil {
		return nil, err
	}
	if err := sdf.Close(); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.ExtractPrefix + "_query_desc.bin")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, _, err := binio.ReadDescriptors(f, int(cfg.DescSize))
	if err != nil {
		return nil, err
	}

	queries := make([]identdriver.Query, len(records))
	for i, rec := range records {
		queries[i] = identdriver.Query{Label: rec.Label, ClassID: rec.ClassID(), Template: rec.Payload}
	}
	return queries, nil
}

func loadTemplates(listPath, split string) ([]inputlist.Template, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", listPath, err)
	}
	defer f.Close()
	templates, err := inputlist.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", listPath, err)
	}
	for i, tmpl := range templates {
		for j, p := range tmpl.ImagePaths {
			if !filepath.IsAbs(p) {
				templates[i].ImagePaths[j] = filepath.Join(split, p)
			}
		}
	}
	return templates, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if line := trimCR(data[start:i]); len(line) > 0 {
				lines = append(lines, string(line))
			}
			start = i + 1
		}
	}
	if line := trimCR(data[start:]); len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines, nil
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}

func galleryRecordCount(descPath string, descSize int) (int, error) {
	info, err := os.Stat(descPath)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", descPath, err)
	}
	return int(info.Size() / binio.RecordSize(descSize)), nil
}
