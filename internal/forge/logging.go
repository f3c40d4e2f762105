package forge

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Logger provides structured logging for forge operations, following the
// same enabled/verbose env-gated shape used elsewhere in the ambient
// stack: nothing is logged unless the operator opts in.
type Logger struct {
	enabled bool
	verbose bool
}

// NewLogger creates a new logger instance.
func NewLogger() *Logger {
	return &Logger{
		enabled: os.Getenv("LATTICE_LOG") != "",
		verbose: os.Getenv("LATTICE_VERBOSE") != "",
	}
}

// LogOperation logs a forge operation with timing.
func (l *Logger) LogOperation(operation string, fn func() error) error {
	if !l.enabled {
		return fn()
	}

	start := time.Now()
	l.Infof("Starting: %s", operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.Errorf("Failed: %s (took %v) - %v", operation, duration, err)
	} else {
		l.Infof("Completed: %s (took %v)", operation, duration)
	}

	return err
}

func (l *Logger) Info(msg string) {
	if l.enabled {
		log.Printf("[INFO] %s", msg)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled {
		log.Printf("[INFO] "+format, args...)
	}
}

func (l *Logger) Error(msg string) {
	if l.enabled {
		log.Printf("[ERROR] %s", msg)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled {
		log.Printf("[ERROR] "+format, args...)
	}
}

func (l *Logger) Debug(msg string) {
	if l.enabled && l.verbose {
		log.Printf("[DEBUG] %s", msg)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled && l.verbose {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// defaultLogger is the package-level logger used by the free functions below.
var defaultLogger = NewLogger()

// LogAPICall logs a forge API call for observability.
func LogAPICall(method, endpoint string, statusCode int, duration time.Duration) {
	if !defaultLogger.enabled {
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		defaultLogger.Infof("API %s %s -> %d (%v)", method, endpoint, statusCode, duration)
	} else if statusCode >= 400 {
		defaultLogger.Errorf("API %s %s -> %d (%v)", method, endpoint, statusCode, duration)
	}
}

// LogRetry logs retry attempts for failed forge calls.
func LogRetry(operation string, attempt int, maxAttempts int, err error) {
	if !defaultLogger.enabled {
		return
	}
	defaultLogger.Infof("Retry %d/%d for %s: %v", attempt, maxAttempts, operation, err)
}

// MetricsCollector collects metrics about forge API usage.
type MetricsCollector struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	RateLimitHits   int
	TotalDuration   time.Duration
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordCall records an API call.
func (m *MetricsCollector) RecordCall(statusCode int, duration time.Duration) {
	m.TotalCalls++
	m.TotalDuration += duration

	if statusCode >= 200 && statusCode < 300 {
		m.SuccessfulCalls++
	} else {
		m.FailedCalls++
	}

	if statusCode == 429 {
		m.RateLimitHits++
	}
}

// Report returns a metrics report.
func (m *MetricsCollector) Report() string {
	if m.TotalCalls == 0 {
		return "No API calls made"
	}

	avgDuration := m.TotalDuration / time.Duration(m.TotalCalls)
	successRate := float64(m.SuccessfulCalls) / float64(m.TotalCalls) * 100

	return fmt.Sprintf(
		"API Metrics:\n"+
			"  Total calls: %d\n"+
			"  Successful: %d (%.1f%%)\n"+
			"  Failed: %d\n"+
			"  Rate limit hits: %d\n"+
			"  Avg duration: %v",
		m.TotalCalls,
		m.SuccessfulCalls,
		successRate,
		m.FailedCalls,
		m.RateLimitHits,
		avgDuration,
	)
}
