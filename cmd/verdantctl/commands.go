package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"verdant/internal/health"
	"verdant/internal/narrative"
	"verdant/internal/observation"
	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// observationView is the structured form of one observation.
type observationView struct {
	types.Observation
	Reading    types.Reading     `json:"reading"`
	Assessment health.Assessment `json:"assessment"`
}

func viewOf(s observation.Sample) observationView {
	return observationView{
		Observation: s.Observation,
		Reading:     s.Reading,
		Assessment:  health.Assess(s.Reading),
	}
}

func newTimelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "Print every observation with its health score",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			samples := a.generator().Timeline()
			views := make([]observationView, len(samples))
			for i, s := range samples {
				views[i] = viewOf(s)
			}

			return a.emit(views, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tTIME\tEXPERIMENT\tSCORE\tMOOD\tTEMP\tHUMIDITY\tLIGHT\tSOIL\tPH\tLEAF")
				for _, v := range views {
					r := v.Reading
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%s\t%.1f\t%.1f\t%.0f\t%.1f\t%.2f\t%s\n",
						v.Date, v.Time, v.ExperimentID, v.Assessment.Score, v.Assessment.Mood,
						r.Temperature, r.Humidity, r.LightIntensity, r.SoilMoisture, r.SoilPh, r.LeafColor)
				}
				return tw.Flush()
			})
		},
	}
}

func newObserveCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "observe <date>",
		Short: "Print one observation, its reading and its assessment",
		Long: "Print one observation. Dates outside the catalog resolve to 2024-06-09 " +
			"unless --strict is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			gen := a.generator()

			var sample observation.Sample
			if strict {
				obs, err := observation.Lookup(args[0])
				if err != nil {
					return fmt.Errorf("%w (known dates: %s)", err, strings.Join(observation.Dates(), ", "))
				}
				sample = observation.Sample{Observation: obs, Reading: gen.ReadingAt(obs.Index)}
			} else {
				sample = gen.Observe(args[0])
			}
			v := viewOf(sample)

			return a.emit(v, func(w io.Writer) error {
				writeHeader(w, v.Observation)
				writeReading(w, v.Reading)
				fmt.Fprintln(w)
				writeAssessment(w, v.Assessment)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on dates outside the catalog")
	return cmd
}

func newAssessCmd(a *app) *cobra.Command {
	var r types.Reading
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score a reading supplied on the command line",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			result := health.Assess(r)
			return a.emit(result, func(w io.Writer) error {
				writeAssessment(w, result)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&r.Temperature, "temperature", 0, "air temperature in °C")
	f.Float64Var(&r.Humidity, "humidity", 0, "relative humidity in %")
	f.Float64Var(&r.LightIntensity, "light", 0, "light intensity in lux")
	f.Float64Var(&r.SoilMoisture, "soil-moisture", 0, "soil moisture in %")
	f.Float64Var(&r.SoilPh, "ph", 0, "soil pH")
	f.Float64Var(&r.AirQuality, "air-quality", 0, "air quality in % (displayed, not scored)")
	for _, name := range []string{"temperature", "humidity", "light", "soil-moisture", "ph"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// analysisView is the structured form of a finished analysis.
type analysisView struct {
	Kind        narrative.Kind    `json:"kind"`
	Observation types.Observation `json:"observation"`
	Reading     types.Reading     `json:"reading"`
	Phases      []string          `json:"phases"`
	Result      any               `json:"result"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var agentNames []string
	cmd := &cobra.Command{
		Use:       "analyze <dialogue|debate|meta> [date]",
		Short:     "Play a staged analysis of one observation with real pacing",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{string(narrative.KindDialogue), string(narrative.KindDebate), string(narrative.KindMeta)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := narrative.Kind(args[0])
			if !kind.Valid() || kind == narrative.KindConversation {
				return fmt.Errorf("unknown analysis %q (want dialogue, debate or meta)", args[0])
			}
			var date string
			if len(args) == 2 {
				date = args[1]
			}

			var agents []narrative.Agent
			if cmd.Flags().Changed("agents") {
				agents = []narrative.Agent{}
				if len(agentNames) > 0 {
					parsed, err := narrative.ParseAgents(agentNames)
					if err != nil {
						return err
					}
					agents = parsed
				}
			}

			src := a.source()
			sample := observation.NewGenerator(src).Observe(date)
			t := a.timings()
			result, plan, err := narrative.Build(kind, sample.Reading, src, t, agents)
			if err != nil {
				return err
			}
			return a.play(cmd.Context(), kind, sample, result, plan, t.Typewriter)
		},
	}
	cmd.Flags().StringSliceVar(&agentNames, "agents", nil, "debate agents: physiological, environmental, validation")
	return cmd
}

// play runs plan on the app clock. Text output shows each phase as it fires;
// structured output waits and prints the finished analysis.
func (a *app) play(ctx context.Context, kind narrative.Kind, s observation.Sample, result any, plan []sequencer.Step, typeInterval time.Duration) error {
	text := a.output == outputText
	if text {
		writeHeader(a.out, s.Observation)
		fmt.Fprintf(a.out, "running %s analysis\n", kind)
	}

	var emitted []string
	run := sequencer.Start(a.clock, plan, func(i int, step sequencer.Step) {
		emitted = append(emitted, step.Label)
		if text {
			fmt.Fprintf(a.out, "[%d/%d] %s\n", i+1, len(plan), step.Label)
		}
	})
	if err := run.Wait(ctx); err != nil {
		run.Cancel()
		return fmt.Errorf("analysis cancelled after %d of %d phases", len(run.Emitted()), len(plan))
	}

	if !text {
		return a.emit(analysisView{
			Kind:        kind,
			Observation: s.Observation,
			Reading:     s.Reading,
			Phases:      emitted,
			Result:      result,
		}, nil)
	}

	if p, ok := result.(narrative.Persona); ok {
		fmt.Fprintln(a.out)
		if err := a.typewrite(ctx, p.Dialogue, typeInterval); err != nil {
			return err
		}
	}
	writeResult(a.out, result)
	return nil
}

// typewrite reveals line one rune at a time.
func (a *app) typewrite(ctx context.Context, line string, interval time.Duration) error {
	if interval <= 0 {
		fmt.Fprintln(a.out, line)
		return nil
	}
	printed := 0
	run := sequencer.Typewriter(a.clock, line, interval, func(prefix string) {
		fmt.Fprint(a.out, prefix[printed:])
		printed = len(prefix)
	})
	if err := run.Wait(ctx); err != nil {
		run.Cancel()
		fmt.Fprintln(a.out)
		return errors.New("analysis cancelled")
	}
	fmt.Fprintln(a.out)
	return nil
}

func writeHeader(w io.Writer, o types.Observation) {
	fmt.Fprintf(w, "%s  %s %s  %s\n", o.ExperimentID, o.Date, o.Time, o.Coordinates)
}
