package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/batch"
	"github.com/Sumatoshi-tech/tracelib/batcher"
	"github.com/Sumatoshi-tech/tracelib/lattice"
	"github.com/Sumatoshi-tech/tracelib/pkg/safeconv"
	"github.com/Sumatoshi-tech/tracelib/spine"
	"github.com/Sumatoshi-tech/tracelib/traceconfig"
	"github.com/Sumatoshi-tech/tracelib/tracemetrics"
)

const (
	// timeHorizon is how far beyond the current round a synthetic update's
	// time may land, so every Extract retains a realistic remainder.
	timeHorizon = 4

	// snapshotFilePerm is the file mode for --snapshot output.
	snapshotFilePerm = 0o600

	// maxTableRows caps the merged-collection table for readable output.
	maxTableRows = 20
)

type runParams struct {
	configPath string
	rounds     int
	keys       int
	updates    int
	seed       int64
	plotPath   string
	snapPath   string
}

func runCmd() *cobra.Command {
	var params runParams

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Feed synthetic updates through batcher and spine, then report",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDemo(params)
		},
	}

	cmd.Flags().StringVar(&params.configPath, "config", "", "path to a .tracelib.yaml config file")
	cmd.Flags().IntVar(&params.rounds, "rounds", 64, "number of frontier advances to simulate")
	cmd.Flags().IntVar(&params.keys, "keys", 16, "number of distinct data keys")
	cmd.Flags().IntVar(&params.updates, "updates", 32, "updates pushed per round")
	cmd.Flags().Int64Var(&params.seed, "seed", 1, "random seed for the synthetic stream")
	cmd.Flags().StringVar(&params.plotPath, "plot", "", "write a layer-occupancy bar chart to this HTML file")
	cmd.Flags().StringVar(&params.snapPath, "snapshot", "", "write a compressed spine snapshot to this file")

	return cmd
}

// demoActivator counts re-scheduling requests the spine issues via Exert.
type demoActivator struct {
	activations int
}

func (a *demoActivator) Activate() { a.activations++ }

func runDemo(params runParams) error {
	cfg, cfgErr := loadConfig(params.configPath)
	if cfgErr != nil {
		return cfgErr
	}

	providers, initErr := tracemetrics.Init(tracemetrics.Config{
		ServiceName:  "tracedemo",
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		LogJSON:      cfg.Telemetry.LogJSON,
	})
	if initErr != nil {
		return fmt.Errorf("init telemetry: %w", initErr)
	}

	defer func() {
		_ = providers.Shutdown(context.Background())
	}()

	metrics, metricsErr := tracemetrics.NewSpineMetrics(providers.Meter)
	if metricsErr != nil {
		return fmt.Errorf("create metrics: %w", metricsErr)
	}

	activator := &demoActivator{}
	logger := tracemetrics.NewObservedLogger(providers.Logger, metrics)

	sp := spine.WithEffort[tracelib.String, lattice.IntTime, *tracelib.IntDiff](
		cfg.Spine.Effort,
		tracelib.OperatorInfo{GlobalID: 1, Name: "tracedemo"},
		logger,
		activator,
	)

	reg, regErr := tracemetrics.RegisterLayerOccupancy(providers.Meter, 1, sp.Describe)
	if regErr != nil {
		return fmt.Errorf("register layer gauge: %w", regErr)
	}

	defer func() {
		_ = reg.Unregister()
	}()

	chunkBytes, chunkErr := cfg.Batcher.ChunkCapacityBytes()
	if chunkErr != nil {
		return chunkErr
	}

	bt := batcher.New[tracelib.String, lattice.IntTime, *tracelib.IntDiff](chunkBytes)
	rng := rand.New(rand.NewSource(params.seed)) //nolint:gosec // synthetic demo data

	ingest(sp, bt, rng, params)

	// Drain whatever merge work remains, the way an idle operator would
	// keep being re-scheduled until its trace is reduced.
	for range params.rounds {
		effort := cfg.Spine.Effort
		effortInt := safeconv.MustUintToInt(effort)
		sp.Exert(&effortInt)
	}

	report(sp, params, activator)

	if params.snapPath != "" {
		if err := writeSnapshot(sp, params.snapPath); err != nil {
			return err
		}
	}

	if params.plotPath != "" {
		if err := writeLayerPlot(sp.Describe(), params.plotPath); err != nil {
			return err
		}
	}

	return nil
}

func loadConfig(path string) (*traceconfig.Config, error) {
	if path != "" {
		if err := traceconfig.ValidateFile(path); err != nil {
			return nil, err
		}
	}

	cfg, err := traceconfig.Load(path)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func ingest(
	sp *spine.Spine[tracelib.String, lattice.IntTime, *tracelib.IntDiff],
	bt *batcher.Batcher[tracelib.String, lattice.IntTime, *tracelib.IntDiff],
	rng *rand.Rand,
	params runParams,
) {
	prevUpper := lattice.NewAntichain(lattice.IntTime(0))

	for round := range params.rounds {
		chunk := make([]tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff], 0, params.updates)

		for range params.updates {
			sign := int64(1)
			if rng.Intn(2) == 0 {
				sign = -1
			}

			d := tracelib.IntDiff(sign)
			chunk = append(chunk, tracelib.Update[tracelib.String, lattice.IntTime, *tracelib.IntDiff]{
				Data: tracelib.String(fmt.Sprintf("key-%03d", rng.Intn(params.keys))),
				Time: lattice.IntTime(int64(round) + rng.Int63n(timeHorizon)),
				Diff: &d,
			})
		}

		bt.PushChunk(chunk)

		upper := lattice.NewAntichain(lattice.IntTime(int64(round) + 1))

		ready, _, _ := bt.Extract(upper)

		builder := batch.NewBuilder[tracelib.String, lattice.IntTime, *tracelib.IntDiff]()
		for _, e := range ready {
			builder.Push(e.Data, e.Time, e.Diff)
		}

		sp.Insert(builder.Done(prevUpper, upper, sp.AdvanceFrontier()))
		sp.AdvanceBy(upper)
		sp.DistinguishSince(upper)

		prevUpper = upper
	}
}

func report(
	sp *spine.Spine[tracelib.String, lattice.IntTime, *tracelib.IntDiff],
	params runParams,
	activator *demoActivator,
) {
	bold := color.New(color.Bold)
	bold.Println("Spine layers")

	layerTbl := table.NewWriter()
	layerTbl.SetOutputMirror(os.Stdout)
	layerTbl.SetStyle(table.StyleLight)
	layerTbl.AppendHeader(table.Row{"Layer", "State", "Updates"})

	total := 0

	for i, stat := range sp.Describe() {
		layerTbl.AppendRow(table.Row{i, stat.State, stat.Len})
		total += stat.Len
	}

	layerTbl.AppendFooter(table.Row{"", "total", total})
	layerTbl.Render()

	bold.Println("Merged collection (head)")

	finalUpper := lattice.NewAntichain(lattice.IntTime(int64(params.rounds)))

	cur, _, ready := sp.CursorThrough(finalUpper)
	if !ready {
		color.Yellow("cursor not available through %v", finalUpper)

		return
	}

	rowTbl := table.NewWriter()
	rowTbl.SetOutputMirror(os.Stdout)
	rowTbl.SetStyle(table.StyleLight)
	rowTbl.AppendHeader(table.Row{"Data", "Time", "Diff"})

	rows := 0
	for cur.Valid() && rows < maxTableRows {
		data, tm := cur.Key()
		rowTbl.AppendRow(table.Row{string(data), int64(tm), int64(*cur.Value())})
		cur.Advance()
		rows++
	}

	rowTbl.Render()

	color.Green("rounds=%d keys=%d activations=%d", params.rounds, params.keys, activator.activations)
}

func writeSnapshot(
	sp *spine.Spine[tracelib.String, lattice.IntTime, *tracelib.IntDiff], path string,
) error {
	data, err := sp.SnapshotBytes()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, snapshotFilePerm); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}

	return nil
}
