package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/shubhFreelance/formlogic/config"
	"github.com/shubhFreelance/formlogic/internal/logging"
	"github.com/shubhFreelance/formlogic/logic"
	"github.com/shubhFreelance/formlogic/telemetry"
)

func main() {
	formPath := flag.String("form", "form.yaml", "Path to the form definition file")
	settingsPath := flag.String("settings", "", "Optional path to process settings")
	check := flag.Bool("check", false, "Validate the form configuration and exit")
	responsesPath := flag.String("responses", "", "Evaluate calculations against a responses file")
	fieldID := flag.String("field", "", "Evaluate a single calculated field")
	flag.Parse()

	logger := zerolog.Nop()
	collector := telemetry.Noop()
	if *settingsPath != "" {
		settings, err := config.LoadSettings(*settingsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load settings")
		}
		configured, cleanup, err := logging.Setup(settings.Logging)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to setup logger")
		}
		defer cleanup()
		logger = configured
		log.Logger = configured
		collector, err = newTelemetryCollector(settings.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
			collector = telemetry.Noop()
		}
	}

	form, err := config.Load(*formPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load form definition")
	}

	if *check {
		exitCode := executeCheck(form)
		if exitCode != 0 {
			collector.IncValidationRejected(form.ID)
		}
		os.Exit(exitCode)
	}

	if *responsesPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -check or -responses")
		os.Exit(2)
	}

	responses, err := loadResponses(*responsesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load responses")
	}

	if *fieldID != "" {
		result, err := logic.EvaluateField(form, *fieldID, responses)
		if err != nil {
			log.Fatal().Err(err).Msg("field evaluation failed")
		}
		printResult(*fieldID, result)
		return
	}

	report, err := logic.EvaluateAll(form, responses, logic.WithLogger(logger), logic.WithCollector(collector))
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}
	printEvaluation(form, report, responses)
}

func executeCheck(form *config.Form) int {
	report, err := logic.AnalyzeForm(form)
	if err != nil {
		fmt.Fprintf(os.Stderr, "form configuration invalid: %v\n", err)
		return 1
	}

	if len(report.Calculations) == 0 && len(report.Conditionals) == 0 {
		fmt.Println("No calculated fields or conditional rules configured.")
		return 0
	}

	exitCode := 0
	for _, calc := range report.Calculations {
		fmt.Printf("Calculated field %q\n", calc.FieldID)
		printIndented("Formula", calc.Formula)
		fmt.Println("  Dependencies:")
		if len(calc.Dependencies) == 0 {
			fmt.Println("    <none>")
		}
		for _, dep := range calc.Dependencies {
			notes := make([]string, 0, 3)
			if dep.Declared {
				notes = append(notes, "declared")
			}
			if dep.Parsed {
				notes = append(notes, "parsed")
			}
			if !dep.Resolved {
				notes = append(notes, "unresolved")
			}
			fmt.Printf("    - %s [%s]\n", dep.FieldID, strings.Join(notes, ", "))
		}
		if len(calc.Errors) > 0 {
			exitCode = 1
			fmt.Println("  Errors:")
			for _, msg := range calc.Errors {
				fmt.Printf("    - %s\n", msg)
			}
		} else {
			fmt.Println("  Status: OK")
		}
		fmt.Println()
	}

	for _, cond := range report.Conditionals {
		exitCode = 1
		fmt.Printf("Conditional logic on field %q\n", cond.FieldID)
		fmt.Println("  Errors:")
		for _, msg := range cond.Errors {
			fmt.Printf("    - %s\n", msg)
		}
		fmt.Println()
	}

	for _, msg := range report.OrderErrors {
		exitCode = 1
		fmt.Printf("Ordering: %s\n", msg)
	}

	if exitCode == 0 {
		fmt.Println("Form configuration check completed successfully.")
	} else {
		fmt.Println("Form configuration check completed with errors.")
	}
	return exitCode
}

func printEvaluation(form *config.Form, report *logic.EvaluationReport, responses logic.Responses) {
	fmt.Printf("Calculation order: %s\n\n", strings.Join(report.CalculationOrder, ", "))

	ids := make([]string, 0, len(report.Calculations))
	for id := range report.Calculations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printResult(id, report.Calculations[id])
	}

	visible, err := logic.GetVisibleFields(form, responses)
	if err != nil {
		fmt.Fprintf(os.Stderr, "visibility evaluation failed: %v\n", err)
		return
	}
	fmt.Println("Visible fields:")
	for _, field := range visible {
		label := field.Label
		if label == "" {
			label = string(field.Type)
		}
		fmt.Printf("  - %s (%s)\n", field.ID, label)
	}
}

func printResult(id string, result logic.CalculationResult) {
	fmt.Printf("Field %q\n", id)
	if result.Success {
		fmt.Printf("  Value: %s\n", result.Value)
		fmt.Printf("  Display: %s\n", result.DisplayValue)
	} else {
		fmt.Printf("  Error: %s\n", result.Error)
		if len(result.MissingFields) > 0 {
			fmt.Printf("  Missing: %s\n", strings.Join(result.MissingFields, ", "))
		}
	}
	fmt.Println()
}

func printIndented(label, value string) {
	fmt.Printf("  %s:\n", label)
	if value == "" {
		fmt.Println("    <empty>")
		return
	}
	for _, line := range strings.Split(value, "\n") {
		fmt.Printf("    %s\n", strings.TrimRight(line, " \t"))
	}
}

func loadResponses(path string) (logic.Responses, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses %s: %w", path, err)
	}
	responses := logic.Responses{}
	if err := yaml.Unmarshal(raw, &responses); err != nil {
		return nil, fmt.Errorf("unmarshal responses %s: %w", path, err)
	}
	return responses, nil
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		return telemetry.NewPrometheusCollector(nil)
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}
