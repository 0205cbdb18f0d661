package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"verdant/internal/narrative"
	"verdant/internal/observation"
	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// app carries the persistent flags and the injectable clock shared by every
// subcommand.
type app struct {
	out    io.Writer
	clock  sequencer.Clock
	output string
	seed   uint64
	pace   float64
}

func (a *app) source() types.RandSource {
	return observation.SourceFor(a.seed)
}

func (a *app) generator() *observation.Generator {
	return observation.NewGenerator(a.source())
}

// timings returns the default pacing scaled by --pace. Zero pace plays every
// phase immediately.
func (a *app) timings() narrative.Timings {
	t := narrative.DefaultTimings()
	scale := func(d time.Duration) time.Duration { return time.Duration(float64(d) * a.pace) }
	t.DialoguePhase = scale(t.DialoguePhase)
	t.DebateTurn = scale(t.DebateTurn)
	t.MetaStep = scale(t.MetaStep)
	t.ConversationPhase = scale(t.ConversationPhase)
	t.ReplyDelay = scale(t.ReplyDelay)
	t.Typewriter = scale(t.Typewriter)
	return t
}

func newRootCmd(out io.Writer) *cobra.Command {
	return newRootCmdFor(&app{out: out, clock: sequencer.RealClock()})
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "verdantctl",
		Short:         "Explore the plant observation simulation from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch a.output {
			case outputText, outputJSON, outputYAML:
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", a.output)
			}
			if a.pace < 0 {
				return fmt.Errorf("--pace must not be negative")
			}
			if !cmd.Flags().Changed("seed") {
				if raw := os.Getenv("VERDANT_SEED"); raw != "" {
					seed, err := strconv.ParseUint(raw, 10, 64)
					if err != nil {
						return fmt.Errorf("VERDANT_SEED: %w", err)
					}
					a.seed = seed
				}
			}
			return nil
		},
	}
	root.SetOut(a.out)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.output, "output", "o", outputText, "output format: text, json or yaml")
	pf.Uint64Var(&a.seed, "seed", 0, "fix the noise source for reproducible readings (0 = random)")
	pf.Float64Var(&a.pace, "pace", 1, "narrative speed multiplier; 0 plays every phase at once")

	root.AddCommand(
		newTimelineCmd(a),
		newObserveCmd(a),
		newAssessCmd(a),
		newAnalyzeCmd(a),
	)
	return root
}
