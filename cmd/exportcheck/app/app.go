package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/healthsink/healthsink/internal/export"
)

// Run parses the export file and prints what an upload of it would look
// like to the server: category counts, optionally every populated metric,
// and the first workout's headline numbers. It exists to inspect dumped
// payloads before replaying them against a real deployment.
func Run(config *Config, out io.Writer) error {
	b, err := os.ReadFile(config.ExportFile)
	if err != nil {
		return fmt.Errorf("reading export file: %w", err)
	}

	data, err := export.Parse(b)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s)\n\n", config.ExportFile, humanize.Bytes(uint64(len(b))))
	fmt.Fprintf(out, "metrics:        %d (%d populated, %s samples)\n",
		len(data.Metrics), len(data.PopulatedMetrics()), humanize.Comma(int64(data.TotalSamples())))
	fmt.Fprintf(out, "workouts:       %d\n", len(data.Workouts))
	fmt.Fprintf(out, "state of mind:  %d\n", len(data.StateOfMind))
	fmt.Fprintf(out, "ecg recordings: %d\n", len(data.ECG))

	if config.ListMetrics {
		fmt.Fprintln(out)
		for _, m := range data.PopulatedMetrics() {
			fmt.Fprintf(out, "  %-48s %-12s %s samples\n",
				fmt.Sprintf("%s [%s]", m.Name, export.LookupMetricType(m.Name)),
				m.Units, humanize.Comma(int64(len(m.Samples))))
		}
	}

	if len(data.Workouts) > 0 {
		printWorkout(out, data.Workouts[0])
	}

	return nil
}

// printWorkout renders the first workout, the record operators most often
// eyeball when a payload looks off.
func printWorkout(out io.Writer, w export.Workout) {
	fmt.Fprintf(out, "\nfirst workout: %q", w.Name)
	if w.Location != "" {
		fmt.Fprintf(out, " at %q", w.Location)
	}
	if w.ID != "" {
		fmt.Fprintf(out, " (id %s)", w.ID)
	}
	fmt.Fprintln(out)

	if w.Start != nil && w.End != nil {
		fmt.Fprintf(out, "  from %s to %s\n", w.Start, w.End)
	}
	if w.Duration > 0 {
		fmt.Fprintf(out, "  duration: %s\n", time.Duration(w.Duration*float64(time.Second)).Round(time.Second))
	}
	if q := w.ActiveEnergyBurned; q.Qty != 0 {
		fmt.Fprintf(out, "  active energy: %g %s\n", q.Qty, q.Units)
	} else if len(w.ActiveEnergy) > 0 {
		fmt.Fprintf(out, "  active energy: %g %s (first of %d entries)\n",
			w.ActiveEnergy[0].Qty, w.ActiveEnergy[0].Units, len(w.ActiveEnergy))
	}
	if q := w.Distance; q.Qty != 0 {
		fmt.Fprintf(out, "  distance: %g %s\n", q.Qty, q.Units)
	}
	if q := w.ElevationUp; q.Qty != 0 {
		fmt.Fprintf(out, "  elevation up: %g %s\n", q.Qty, q.Units)
	}
	fmt.Fprintf(out, "  route points: %d, heart rate entries: %d, step entries: %d\n",
		len(w.Route), len(w.HeartRateData), len(w.StepCount))
}
