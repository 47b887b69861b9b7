// Package config holds the harness's flag-driven configuration and the
// optional YAML config file that seeds defaults for it. Keys mirror the CLI
// flags 1:1; any flag explicitly set on the command line overrides the
// corresponding YAML key.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the full flag set shared by both the verification and
// identification CLIs. Each tool only reads the fields relevant to it.
type Config struct {
	Split         string `yaml:"split"`
	ConfigDir     string `yaml:"config"`
	ExtractPrefix string `yaml:"extract_prefix"`
	Grayscale     bool   `yaml:"grayscale"`
	CountProc     uint32 `yaml:"count_proc"`
	DescSize      uint32 `yaml:"desc_size"`
	Percentile    uint32 `yaml:"percentile"`
	DebugInfo     bool   `yaml:"debug_info"`
	ExtractInfo   bool   `yaml:"extract_info"`
	ExtraTimings  bool   `yaml:"extra_timings"`

	// Verification-specific.
	ExtractList string `yaml:"extract_list"`
	DoExtract   bool   `yaml:"do_extract"`
	DoMatch     bool   `yaml:"do_match"`
	DoROC       bool   `yaml:"do_ROC"`

	// Identification-specific.
	DBList       string `yaml:"db_list"`
	MateList     string `yaml:"mate_list"`
	NonmateList  string `yaml:"nonmate_list"`
	InsertList   string `yaml:"insert_list"`
	RemoveList   string `yaml:"remove_list"`
	NearestCount uint32 `yaml:"nearest_count"`
	SearchInfo   bool   `yaml:"search_info"`
	DoGraph      bool   `yaml:"do_graph"`
	DoInsert     bool   `yaml:"do_insert"`
	DoRemove     bool   `yaml:"do_remove"`
	DoSearch     bool   `yaml:"do_search"`
	DoTPIR       bool   `yaml:"do_tpir"`
}

// Default returns the flag defaults named in the harness's CLI surface.
func Default() Config {
	return Config{
		CountProc:    uint32(runtime.GOMAXPROCS(0)),
		DescSize:     512,
		Percentile:   90,
		NearestCount: 100,
	}
}

// MergeFile reads the YAML config file at path and overwrites every field in
// cfg whose name is present in changedFlags' complement — i.e. every field
// NOT already set explicitly on the command line. changedFlags is expected
// to come from a pflag.FlagSet's Visit (flags the user actually passed).
func MergeFile(path string, cfg *Config, changedFlags map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	merge(cfg, &file, changedFlags)
	return nil
}

// merge overwrites each field of cfg with the corresponding field of file,
// skipping any field whose YAML key is in changedFlags (the user already
// set it explicitly on the command line, which always wins).
func merge(cfg, file *Config, changedFlags map[string]bool) {
	set := func(key string, apply func()) {
		if changedFlags[key] {
			return
		}
		apply()
	}

	set("split", func() { cfg.Split = orString(file.Split, cfg.Split) })
	set("config", func() { cfg.ConfigDir = orString(file.ConfigDir, cfg.ConfigDir) })
	set("extract_prefix", func() { cfg.ExtractPrefix = orString(file.ExtractPrefix, cfg.ExtractPrefix) })
	set("grayscale", func() { cfg.Grayscale = file.Grayscale })
	set("count_proc", func() { cfg.CountProc = orUint32(file.CountProc, cfg.CountProc) })
	set("desc_size", func() { cfg.DescSize = orUint32(file.DescSize, cfg.DescSize) })
	set("percentile", func() { cfg.Percentile = orUint32(file.Percentile, cfg.Percentile) })
	set("debug_info", func() { cfg.DebugInfo = file.DebugInfo })
	set("extract_info", func() { cfg.ExtractInfo = file.ExtractInfo })
	set("extra_timings", func() { cfg.ExtraTimings = file.ExtraTimings })

	set("extract_list", func() { cfg.ExtractList = orString(file.ExtractList, cfg.ExtractList) })
	set("do_extract", func() { cfg.DoExtract = file.DoExtract })
	set("do_match", func() { cfg.DoMatch = file.DoMatch })
	set("do_ROC", func() { cfg.DoROC = file.DoROC })

	set("db_list", func() { cfg.DBList = orString(file.DBList, cfg.DBList) })
	set("mate_list", func() { cfg.MateList = orString(file.MateList, cfg.MateList) })
	set("nonmate_list", func() { cfg.NonmateList = orString(file.NonmateList, cfg.NonmateList) })
	set("insert_list", func() { cfg.InsertList = orString(file.InsertList, cfg.InsertList) })
	set("remove_list", func() { cfg.RemoveList = orString(file.RemoveList, cfg.RemoveList) })
	set("nearest_count", func() { cfg.NearestCount = orUint32(file.NearestCount, cfg.NearestCount) })
	set("search_info", func() { cfg.SearchInfo = file.SearchInfo })
	set("do_graph", func() { cfg.DoGraph = file.DoGraph })
	set("do_insert", func() { cfg.DoInsert = file.DoInsert })
	set("do_remove", func() { cfg.DoRemove = file.DoRemove })
	set("do_search", func() { cfg.DoSearch = file.DoSearch })
	set("do_tpir", func() { cfg.DoTPIR = file.DoTPIR })
}

func orString(fileVal, defaultVal string) string {
	if fileVal != "" {
		return fileVal
	}
	return defaultVal
}

func orUint32(fileVal, defaultVal uint32) uint32 {
	if fileVal != 0 {
		return fileVal
	}
	return defaultVal
}

// Validate checks nearest_count strictly exceeds every fixed identification
// rank {1, 5, 20}, skipping the check when nearest_count is 0.
func (c Config) Validate() error {
	if c.NearestCount != 0 {
		for _, r := range [...]uint32{1, 5, 20} {
			if c.NearestCount <= r {
				return fmt.Errorf("config: nearest_count (%d) must exceed rank %d", c.NearestCount, r)
			}
		}
	}
	return nil
}
