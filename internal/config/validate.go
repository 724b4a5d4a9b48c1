// Package config provides configuration models and helpers for the housing
// ETL.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "repair.housing.total_rooms"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// Struct-tag rules (required fields, enumerations, non-negative counts) are
// checked first; the remaining checks cover rules that span fields, such as
// the location a source kind needs or an empty repair range.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	issues = append(issues, structIssues(p)...)
	issues = append(issues, validateSource("sources.housing", p.Sources.Housing)...)
	issues = append(issues, validateSource("sources.income", p.Sources.Income)...)
	issues = append(issues, validateSource("sources.zip", p.Sources.Zip)...)
	issues = append(issues, validateRanges("repair.housing", p.Repair.Housing)...)
	issues = append(issues, validateRanges("repair.income", p.Repair.Income)...)
	issues = append(issues, validateRepair(p.Repair)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func structIssues(p Pipeline) []Issue {
	err := structValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Pipeline.")
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path,
			Message:  ruleMessage(fe),
		})
	}
	return issues
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fe.Value(), fe.Param())
	case "eq":
		return fmt.Sprintf("%q is not supported; want %q", fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

// validateSource checks that a source has the location its kind needs.
func validateSource(path string, s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		u := strings.TrimSpace(s.HTTP.URL)
		if u == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.url",
				Message:  "http source requires a non-empty url",
			})
		} else if strings.HasPrefix(u, "http://") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".http.url",
				Message:  "source is fetched over plain http",
			})
		}
	}
	return issues
}

// validateRanges rejects empty ranges; RandomFill cannot sample from them.
func validateRanges(path string, ranges map[string]Range) []Issue {
	var issues []Issue
	if len(ranges) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path,
			Message:  "no repair ranges configured; corrupt values in these columns will fail the run",
		})
		return issues
	}
	cols := make([]string, 0, len(ranges))
	for c := range ranges {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		r := ranges[c]
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "column name must not be empty"})
			continue
		}
		if r.High <= r.Low {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + "." + c,
				Message:  fmt.Sprintf("high (%d) must be greater than low (%d)", r.High, r.Low),
			})
		}
	}
	return issues
}

func validateRepair(r Repair) []Issue {
	var issues []Issue
	if r.ZipPropagation == PropagatePositional {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "repair.zip_propagation",
			Message:  "positional propagation requires all three extracts to keep identical row order after filtering",
		})
	}
	if !r.StrictResidual {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "repair.strict_residual",
			Message:  "corrupt values left after repair will be loaded",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires a url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires an agent address",
			})
		}
	}
	return issues
}
