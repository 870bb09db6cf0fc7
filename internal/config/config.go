package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/setanarut/sensimap"
)

// Config holds the command line settings of sensimap.
type Config struct {
	Inputs     []string
	Method     string
	ModelKind  string
	Layer      string
	ModelPath  string
	Classes    int
	Grid       int
	Seed       uint64
	ClassNames []string
	Label      int
	OutputDir  string
	Plot       bool
	Bench      bool
	WarmUp     bool
	Palette    string
	Threshold  float64
	Options    sensimap.Options
}

// Parse reads the command line flags of fs into a Config.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{Options: sensimap.DefaultOptions()}
	var inputs, names string

	fs.StringVar(&inputs, "input", "", "comma separated image paths")
	fs.StringVar(&cfg.Method, "method", "morris", "attribution method: morris or gradcam")
	fs.StringVar(&cfg.ModelKind, "kind", string(sensimap.KindPooledLinear), "model kind used to pick the Grad-CAM layer")
	fs.StringVar(&cfg.Layer, "layer", "", "Grad-CAM layer, overrides -kind")
	fs.StringVar(&cfg.ModelPath, "model", "", "JSON weights of the pooled linear classifier; random weights when empty")
	fs.IntVar(&cfg.Classes, "classes", 10, "class count of the random classifier")
	fs.IntVar(&cfg.Grid, "grid", 7, "pooling grid of the random classifier")
	fs.Uint64Var(&cfg.Seed, "seed", 1, "seed of the random classifier")
	fs.StringVar(&names, "names", "", "comma separated class names")
	fs.IntVar(&cfg.Label, "label", -1, "ground truth class of the inputs, -1 if unknown")
	fs.StringVar(&cfg.OutputDir, "out", "./", "output directory")
	fs.BoolVar(&cfg.Plot, "plot", false, "also write a heat map plot with legend")
	fs.BoolVar(&cfg.Bench, "bench", false, "report attribution timing across inputs")
	fs.BoolVar(&cfg.WarmUp, "warmup", false, "run one attribution on a random image before timing")
	fs.StringVar(&cfg.Palette, "palette", "dominantcolor", "salient palette method: dominantcolor or kmeans")
	fs.Float64Var(&cfg.Threshold, "threshold", 0.5, "heat threshold for salient palette and hotspots")
	fs.IntVar(&cfg.Options.PatchSize, "patch", cfg.Options.PatchSize, "patch size in pixels")
	fs.IntVar(&cfg.Options.NumSamples, "samples", cfg.Options.NumSamples, "perturbations per patch")
	fs.Float64Var(&cfg.Options.Delta, "delta", cfg.Options.Delta, "additive perturbation")
	fs.IntVar(&cfg.Options.Workers, "workers", cfg.Options.Workers, "concurrent patch workers, -1 for all CPUs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Inputs = splitList(inputs)
	cfg.ClassNames = splitList(names)

	if len(cfg.Inputs) == 0 {
		return nil, fmt.Errorf("at least one -input is required")
	}
	if cfg.Method != "morris" && cfg.Method != "gradcam" {
		return nil, fmt.Errorf("unknown method %q", cfg.Method)
	}
	return cfg, nil
}

// TrueLabel returns the configured ground truth, or nil when unknown.
func (c *Config) TrueLabel() *int {
	if c.Label < 0 {
		return nil
	}
	l := c.Label
	return &l
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
