package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/healthpal-ng/healthpal/internal/demo"
	"github.com/healthpal-ng/healthpal/internal/session"
	"github.com/healthpal-ng/healthpal/internal/triage"
)

// EmergencyNumber is the number shown with emergency results
const EmergencyNumber = "112"

// TriageOptions are the triage flags
type TriageOptions struct {
	File     string
	Scenario string
	NoSave   bool
}

// NewTriageCmd creates the triage command
func NewTriageCmd(loader *Loader) *cobra.Command {
	var opts TriageOptions

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Assess your symptoms",
		Long: `Assess your symptoms and get an urgency level with next steps.

The intake form is asked step by step, read from a YAML file with --file,
or prefilled from a demo scenario with --scenario.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loader.Env()
			if err != nil {
				return err
			}
			return runTriage(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the intake form from a YAML file")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "Use a demo scenario (see 'healthpal demo scenarios')")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "Do not keep the result in history")

	return cmd
}

func runTriage(ctx context.Context, env *Env, opts TriageOptions) error {
	user, err := env.requireUser(ctx, session.RouteTriage)
	if err != nil {
		return err
	}

	form, err := loadTriageForm(env, opts)
	if err != nil {
		return err
	}

	req, err := form.ToRequest()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	fmt.Fprintln(env.Out)
	result, err := env.Triage.AnalyzeWithProgress(ctx, req, func(stage string, percent int) {
		fmt.Fprintf(env.Out, "  [%3d%%] %s\n", percent, stage)
	})
	if err != nil {
		return err
	}

	renderResult(env.Out, result, env.Demo.Enabled())

	if opts.NoSave {
		return nil
	}

	store, err := env.History()
	if err != nil {
		env.Logger.Warn().Err(err).Msg("History unavailable, result not saved")
		return nil
	}
	saved, err := store.Save(ctx, user.ID, result)
	if err != nil {
		env.Logger.Warn().Err(err).Msg("Failed to save result")
		return nil
	}
	fmt.Fprintf(env.Out, "\nSaved to history as %s\n", saved.ID)
	return nil
}

func loadTriageForm(env *Env, opts TriageOptions) (*triage.Form, error) {
	switch {
	case opts.File != "":
		return readTriageForm(env.In, opts.File)
	case opts.Scenario != "":
		scenario, ok := demo.FindScenario(opts.Scenario)
		if !ok {
			return nil, fmt.Errorf("unknown demo scenario %q", opts.Scenario)
		}
		fmt.Fprintf(env.Out, "Using demo scenario: %s\n", scenario.Name)
		return triage.FormFromScenario(scenario), nil
	default:
		if s, ok := env.Demo.CurrentScenario(); ok {
			fmt.Fprintf(env.Out, "Using demo scenario: %s\n", s.Name)
			return triage.FormFromScenario(s), nil
		}
		return runTriageWizard(env)
	}
}

// readTriageForm reads a form from YAML. "-" reads stdin.
func readTriageForm(in io.Reader, path string) (*triage.Form, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}

	form := triage.NewForm()
	if err := yaml.Unmarshal(data, form); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	return form, nil
}

// runTriageWizard asks the intake form one step at a time
func runTriageWizard(env *Env) (*triage.Form, error) {
	form := triage.NewForm()
	p := env.Prompt

	steps := []func() error{
		func() error {
			var err error
			if form.Age, err = p.Input("Age", form.Age, fieldValidator(form, "age")); err != nil {
				return err
			}
			genders := []string{"male", "female", "other"}
			i, err := p.Select("Gender", genders)
			if err != nil {
				return err
			}
			form.Gender = genders[i]
			return nil
		},
		func() error {
			var err error
			form.PrimarySymptom, err = p.Input("Describe your main symptom", "", fieldValidator(form, "primarySymptom"))
			if err != nil {
				return err
			}
			labels := make([]string, len(triage.DurationOptions))
			for i, opt := range triage.DurationOptions {
				labels[i] = opt.Label
			}
			i, err := p.Select("How long have you had it?", labels)
			if err != nil {
				return err
			}
			form.SymptomDuration = triage.DurationOptions[i].Value
			form.PainLevel, err = p.Input("Pain level (0-10)", form.PainLevel, fieldValidator(form, "painLevel"))
			return err
		},
		func() error {
			fmt.Fprintf(env.Out, "Common symptoms: %s\n", strings.Join(triage.CommonSymptoms, ", "))
			extra, err := p.Input("Other symptoms (comma separated, optional)", "", nil)
			if err != nil {
				return err
			}
			form.AdditionalSymptoms = splitList(extra)

			if form.HasTemperature, err = p.Confirm("Have you measured your temperature?", false); err != nil {
				return err
			}
			if form.HasTemperature {
				form.Temperature, err = p.Input("Temperature (°C)", "", fieldValidator(form, "temperature"))
			}
			return err
		},
		func() error {
			var err error
			if form.HasChronicConditions, err = p.Confirm("Do you have any chronic conditions?", false); err != nil {
				return err
			}
			if form.HasChronicConditions {
				if form.ChronicConditions, err = p.Input("Which conditions?", "", nil); err != nil {
					return err
				}
			}
			if form.CurrentMedications, err = p.Input("Current medications (optional)", "", nil); err != nil {
				return err
			}
			if form.HasAllergies, err = p.Confirm("Do you have any allergies?", false); err != nil {
				return err
			}
			if form.HasAllergies {
				form.Allergies, err = p.Input("Which allergies?", "", nil)
			}
			return err
		},
		func() error {
			indicators := []struct {
				label  string
				target *bool
			}{
				{"Chest pain or pressure?", &form.HasChestPain},
				{"Difficulty breathing?", &form.HasDifficultyBreathing},
				{"Loss of consciousness?", &form.HasLossOfConsciousness},
				{"Sudden severe headache?", &form.HasSevereHeadache},
				{"Uncontrolled bleeding?", &form.HasUncontrolledBleeding},
			}
			for _, ind := range indicators {
				var err error
				if *ind.target, err = p.Confirm(ind.label, false); err != nil {
					return err
				}
			}
			return nil
		},
	}

	for i, ask := range steps {
		step := i + 1
		fmt.Fprintf(env.Out, "\nStep %d of %d: %s (%d%%)\n", step, triage.TotalSteps, triage.StepTitles[step], triage.StepProgress(step))
		if err := ask(); err != nil {
			return nil, err
		}
		if err := form.ValidateStep(step); err != nil {
			return nil, err
		}
	}

	return form, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func renderResult(w io.Writer, r *triage.Result, demoMode bool) {
	fmt.Fprintln(w)
	if demoMode || r.Source == triage.SourceDemo {
		fmt.Fprintln(w, "[DEMO] This result uses demo data")
	}
	fmt.Fprintf(w, "Urgency: %s\n", r.UrgencyLevel.Label())
	if r.UrgencyLevel == triage.UrgencyEmergency {
		fmt.Fprintf(w, "!! Call %s or go to the nearest emergency room now !!\n", EmergencyNumber)
	}
	if r.EstimatedWaitTime != "" {
		fmt.Fprintf(w, "Seek care: %s\n", r.EstimatedWaitTime)
	}
	if r.Confidence > 0 {
		fmt.Fprintf(w, "Confidence: %.0f%%\n", r.Confidence*100)
	}

	fmt.Fprintf(w, "\n%s\n", r.Recommendation)
	printList(w, "Symptoms", r.Symptoms)
	printList(w, "Possible conditions", r.PossibleConditions)
	printList(w, "Next steps", r.NextSteps)

	if c := r.NearbyClinic; c != nil {
		fmt.Fprintf(w, "\nNearest clinic: %s (%s)\n  %s\n  %s\n", c.Name, c.Distance, c.Address, c.Phone)
	}

	fmt.Fprintf(w, "\n%s\n", r.Disclaimer)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  • %s\n", item)
	}
}
