package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/tracelib/spine"
)

const (
	plotWidth  = "900px"
	plotHeight = "500px"
)

// writeLayerPlot renders the spine's layer occupancy as a bar chart: one
// bar per layer, geometric capacity growth made visible.
func writeLayerPlot(stats []spine.LayerStat, path string) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Spine layer occupancy",
			Subtitle: "Accounted updates per layer after the demo run",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  plotWidth,
			Height: plotHeight,
		}),
	)

	labels := make([]string, len(stats))
	data := make([]opts.BarData, len(stats))

	for i, stat := range stats {
		labels[i] = strconv.Itoa(i)
		data[i] = opts.BarData{
			Value: stat.Len,
			Name:  stat.State,
		}
	}

	bar.SetXAxis(labels).AddSeries("updates", data)

	out, createErr := os.Create(path) //nolint:gosec // caller-supplied output path
	if createErr != nil {
		return fmt.Errorf("create plot file: %w", createErr)
	}

	defer out.Close()

	if err := bar.Render(out); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}
