package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/setanarut/sensimap"
	"github.com/setanarut/sensimap/internal/config"
	"github.com/setanarut/sensimap/labels"
	"github.com/setanarut/sensimap/model"
	"github.com/setanarut/sensimap/utils"
)

const modelName = "pooled-linear"

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	clf, err := loadModel(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.ClassNames) > 0 {
		labels.Register(modelName, cfg.ClassNames)
	}

	attribute := sensimap.MorrisAttribution(cfg.Options)
	if cfg.Method == "gradcam" {
		attribute = sensimap.GradCAMAttribution(sensimap.ModelKind(cfg.ModelKind), cfg.Layer)
	}
	method, err := utils.ParsePaletteMethod(cfg.Palette)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.WarmUp {
		if err := sensimap.WarmUp(clf, attribute, nil); err != nil {
			log.Fatalf("warm-up: %v", err)
		}
	}

	samples := make([]sensimap.Sample, 0, len(cfg.Inputs))
	for _, path := range cfg.Inputs {
		img, err := utils.ReadImage(path)
		if err != nil {
			log.Fatal(err)
		}
		tensor := utils.ImageToTensor(img)
		samples = append(samples, sensimap.Sample{Image: tensor, Label: cfg.Label})

		class, _, err := sensimap.Classify(clf, tensor)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		heat, err := attribute(tensor, class, clf)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}

		predicted, truth := labels.Mapping(modelName, class, cfg.TrueLabel(), cfg.ClassNames)
		log.Printf("Model: %s, Predicted Class: %s, True Class: %s", modelName, predicted, truth)

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.png", base, cfg.Method))
		if _, err := utils.Visualize(utils.TensorToImage(tensor), heat, predicted, truth, out); err != nil {
			log.Fatal(err)
		}
		heatPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s_heat.png", base, cfg.Method))
		if err := utils.SaveImage(utils.ColorizeHeatmap(heat), heatPath); err != nil {
			log.Fatal(err)
		}
		if cfg.Plot {
			plotPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s_plot.png", base, cfg.Method))
			if err := utils.PlotHeatmap(heat, fmt.Sprintf("%s: %s", cfg.Method, predicted), plotPath); err != nil {
				log.Fatal(err)
			}
		}

		spots, err := utils.Hotspots(heat, cfg.Threshold, 3)
		if err != nil {
			log.Fatal(err)
		}
		for _, s := range spots {
			log.Printf("hotspot at %v: %d px, mean heat %.3f", s.Center, s.Pixels, s.Heat)
		}
		pal, err := utils.SalientPalette(img, heat, cfg.Threshold, 5, method)
		if err != nil {
			log.Fatal(err)
		}
		if len(pal) > 0 {
			palPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s_palette.png", base, cfg.Method))
			if err := utils.SavePalette(pal, 32, palPath); err != nil {
				log.Fatal(err)
			}
		}
	}
	log.Printf("saved %d visualizations", utils.SaveCount())

	if cfg.Bench {
		timing, err := sensimap.MeasureAverageTime(samples, clf, attribute)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("average %s time: %v over %d images\n", cfg.Method, timing.Mean, len(timing.Times))
		for i, d := range timing.Times {
			fmt.Printf("  %s: %v\n", cfg.Inputs[i], d)
		}
	}
}

func loadModel(cfg *config.Config) (*model.PooledLinear, error) {
	if cfg.ModelPath != "" {
		return model.Load(cfg.ModelPath)
	}
	return model.NewRandom(cfg.Classes, 3, cfg.Grid, cfg.Seed), nil
}
