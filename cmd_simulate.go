package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stsysd/dosesim/chart"
	"github.com/stsysd/dosesim/model"
	"github.com/stsysd/dosesim/pkpd"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulation against a stored substance",
		Example: `  dosesim simulate --substance Caffeine --dose 200 --weight 70 --age 30
  dosesim simulate --substance Alcohol --dose 14000 --doses 3 --interval 1 --svg alcohol.svg`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}
	cmd.Flags().String("substance", "", "Substance name (required)")
	cmd.Flags().Float64("dose", 0, "Amount per administration in mg (required)")
	cmd.Flags().Int("doses", 1, "Number of administrations")
	cmd.Flags().Float64("interval", 0, "Hours between administrations")
	cmd.Flags().Float64("duration", pkpd.DefaultDuration, "Simulated hours")
	cmd.Flags().Float64("weight", pkpd.ReferenceWeight, "Body weight in kg")
	cmd.Flags().Float64("age", 30, "Age in years")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	cmd.Flags().Bool("save", false, "Store the simulation")
	cmd.Flags().String("png", "", "Write the chart as PNG to this path")
	cmd.Flags().String("svg", "", "Write the chart as SVG to this path")
	cmd.MarkFlagRequired("substance")
	cmd.MarkFlagRequired("dose")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	name, _ := flags.GetString("substance")
	dose, _ := flags.GetFloat64("dose")
	doses, _ := flags.GetInt("doses")
	interval, _ := flags.GetFloat64("interval")
	duration, _ := flags.GetFloat64("duration")
	weight, _ := flags.GetFloat64("weight")
	age, _ := flags.GetFloat64("age")

	regimen, err := model.NewRegimen(model.RegimenInput{
		Dose:     &dose,
		Doses:    &doses,
		Interval: &interval,
		Duration: &duration,
	}, e.cfg.MaxDurationHours)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sub, err := st.GetSubstanceByName(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if w, replaced := pkpd.EffectiveWeight(weight); replaced {
		e.logger.Warn("Non-positive weight replaced by reference weight", "weight", weight, "reference", w)
		weight = w
	}
	res, err := pkpd.Simulate(regimen.Params(sub, weight, age))
	if err != nil {
		return err
	}

	if save, _ := flags.GetBool("save"); save {
		banding, err := model.ParseRiskBanding(e.cfg.RiskBanding)
		if err != nil {
			return err
		}
		sim, err := model.NewSimulation(sub, weight, age, *regimen, res, banding)
		if err != nil {
			return err
		}
		if err := st.CreateSimulation(ctx, sim); err != nil {
			return err
		}
		e.logger.Info("Simulation saved", "simulation_id", sim.ID)
	}

	opts := &chart.Options{Title: sub.Name, Subtitle: fmt.Sprintf("%d × %g mg every %g h", regimen.Doses, regimen.Dose, regimen.Interval)}
	if path, _ := flags.GetString("svg"); path != "" {
		if err := os.WriteFile(path, []byte(chart.RenderSVG(res, opts)), 0o644); err != nil {
			return fmt.Errorf("failed to write SVG chart: %w", err)
		}
	}
	if path, _ := flags.GetString("png"); path != "" {
		data, err := chart.RenderPNG(res, opts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write PNG chart: %w", err)
		}
	}

	if jsonOut, _ := flags.GetBool("json"); jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printStats(cmd.OutOrStdout(), sub, regimen, res)
	return nil
}

func printStats(w io.Writer, sub *model.Substance, regimen *model.Regimen, res *pkpd.Result) {
	fmt.Fprintf(w, "Substance:             %s (%s)\n", sub.Name, sub.Type)
	fmt.Fprintf(w, "Regimen:               %d × %g mg every %g h over %g h\n", regimen.Doses, regimen.Dose, regimen.Interval, regimen.Duration)
	fmt.Fprintf(w, "Peak concentration:    %.3f mg/L at %g h\n", res.Stats.MaxConcentration, res.PeakTime())
	fmt.Fprintf(w, "Total exposure:        %.2f mg·h/L\n", res.Stats.TotalExposure)
	fmt.Fprintf(w, "Risk score:            %.1f\n", res.Stats.RiskScore)
	fmt.Fprintf(w, "Metabolism efficiency: %.0f%%\n", res.Stats.MetabolismEfficiency)
}
