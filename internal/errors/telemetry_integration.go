// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	telemetryReporter   TelemetryReporter
	telemetryReporterMu sync.RWMutex

	// hasActiveReporting gates the expensive detection work in Build.
	hasActiveReporting atomic.Bool
)

// SetTelemetryReporter installs the reporter used by Build. Passing nil
// disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryReporterMu.Lock()
	defer telemetryReporterMu.Unlock()
	telemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// reportToTelemetry forwards the error to the installed reporter, if any.
func reportToTelemetry(ee *EnhancedError) {
	telemetryReporterMu.RLock()
	reporter := telemetryReporter
	telemetryReporterMu.RUnlock()

	if reporter == nil || !reporter.IsEnabled() {
		return
	}
	reporter.ReportError(ee)
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{
		enabled: enabled,
	}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	enhancedMessage := fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error())
	scrubbedMessage := scrubMessageForPrivacy(enhancedMessage)

	sentry.WithScope(func(scope *sentry.Scope) {
		errorTitle := generateErrorTitle(ee)

		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			scrubbedValue := value
			if strValue, ok := value.(string); ok {
				scrubbedValue = scrubMessageForPrivacy(strValue)
			}
			scope.SetContext(key, map[string]any{"value": scrubbedValue})
		}

		level := getErrorLevel(ee)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbedMessage,
		}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle creates a meaningful error title for Sentry grouping
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}

	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}

	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		titleParts = append(titleParts, titleCase(strings.ReplaceAll(operation, "_", " ")))
	}

	if len(titleParts) == 0 {
		return "FLOW Error"
	}
	return strings.Join(titleParts, ": ")
}

// formatCategoryForTitle converts a category constant to a readable title fragment
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Failure"
	case CategoryConflict:
		return "Conflict"
	case CategoryNotFound:
		return "Not Found"
	case CategoryState:
		return "Invalid State"
	case CategoryConcurrency:
		return "Concurrency Conflict"
	case CategoryDatabase:
		return "Database Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryHTTP:
		return "HTTP Error"
	case CategorySystem:
		return "System Resource Error"
	case CategoryGeneric:
		return "Error"
	default:
		return titleCase(strings.ReplaceAll(string(category), "-", " "))
	}
}

// getErrorLevel maps an error's category and priority to a Sentry level
func getErrorLevel(ee *EnhancedError) sentry.Level {
	switch ee.Priority {
	case PriorityCritical:
		return sentry.LevelFatal
	case PriorityHigh:
		return sentry.LevelError
	case PriorityLow:
		return sentry.LevelInfo
	}

	switch ee.Category {
	case CategoryDatabase, CategorySystem:
		return sentry.LevelError
	case CategoryNotFound, CategoryValidation:
		return sentry.LevelInfo
	default:
		return sentry.LevelWarning
	}
}

var (
	// Patterns for values that must never leave the process in telemetry events.
	dsnPattern      = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s]+`)
	credsPattern    = regexp.MustCompile(`(?i)(password|passwd|secret|token|apikey|api_key)=[^\s&"']+`)
	filePathPattern = regexp.MustCompile(`(?:/[\w.-]+){2,}|(?:[A-Za-z]:\\[\w\\.-]+)`)
)

// scrubMessageForPrivacy removes connection strings, credentials and file
// paths from messages before they are captured.
func scrubMessageForPrivacy(message string) string {
	scrubbed := dsnPattern.ReplaceAllString(message, "[url-redacted]")
	scrubbed = credsPattern.ReplaceAllString(scrubbed, "$1=[redacted]")
	scrubbed = filePathPattern.ReplaceAllString(scrubbed, "[path-redacted]")
	return scrubbed
}

// titleCase capitalizes the first letter of each word
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
