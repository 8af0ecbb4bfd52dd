package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks the raw values in g for issues. Returns nil if valid.
// knownProviders lists the provider names the LLM registry accepts,
// including aliases; an empty list skips provider checks.
func Validate(g Getter, knownProviders []string) []ValidationIssue {
	var issues []ValidationIssue

	checkProvider := func(path, name string) {
		if len(knownProviders) == 0 || name == "" {
			return
		}
		if !slices.Contains(knownProviders, name) {
			issues = append(issues, ValidationIssue{
				Path:    path,
				Message: fmt.Sprintf("must be one of %v, got %q", knownProviders, name),
			})
		}
	}

	if v, ok := g.Get(KeyProvider); ok {
		checkProvider(KeyProvider, strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := g.Get(KeyFallbacks); ok {
		for _, name := range splitList(v) {
			checkProvider(KeyFallbacks, name)
		}
	}

	validLogLevels := []string{"silent", "off", "fatal", "error", "warn", "warning", "info", "debug", "trace"}
	if v, ok := g.Get(KeyLogLevel); ok && !slices.Contains(validLogLevels, strings.ToLower(v)) {
		issues = append(issues, ValidationIssue{
			Path:    KeyLogLevel,
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, v),
		})
	}

	if v, ok := g.Get(KeyToolTimeout); ok {
		d, err := parseDuration(v)
		if err != nil || d <= 0 {
			issues = append(issues, ValidationIssue{
				Path:    KeyToolTimeout,
				Message: fmt.Sprintf("must be a positive duration, got %q", v),
			})
		}
	}

	validModes := []string{ClassifierLLM, ClassifierKeyword, ClassifierOff}
	if v, ok := g.Get(KeyClassifier); ok && !slices.Contains(validModes, strings.ToLower(v)) {
		issues = append(issues, ValidationIssue{
			Path:    KeyClassifier,
			Message: fmt.Sprintf("must be one of %v, got %q", validModes, v),
		})
	}

	validEstimators := []string{EstimatorChars, EstimatorTiktoken}
	if v, ok := g.Get(KeyTokenEstimator); ok && !slices.Contains(validEstimators, strings.ToLower(v)) {
		issues = append(issues, ValidationIssue{
			Path:    KeyTokenEstimator,
			Message: fmt.Sprintf("must be one of %v, got %q", validEstimators, v),
		})
	}

	if v, ok := g.Get(KeyMaxToolIterations); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			issues = append(issues, ValidationIssue{
				Path:    KeyMaxToolIterations,
				Message: fmt.Sprintf("must be a positive integer, got %q", v),
			})
		}
	}

	return issues
}
