// Package errors provides centralized error handling with component and
// category metadata for logging and triage.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryModelInit     ErrorCategory = "model-initialization"
	CategoryModelLoad     ErrorCategory = "model-loading"
	CategoryLabelLoad     ErrorCategory = "label-loading"
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryNetwork       ErrorCategory = "network"
	CategoryImageDecode   ErrorCategory = "image-decode"
	CategoryCameraSource  ErrorCategory = "camera-source"
	CategoryDatabase      ErrorCategory = "database"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryAuth          ErrorCategory = "authentication"
	CategoryMQTTConnect   ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish   ErrorCategory = "mqtt-publish"
	CategoryGeneric       ErrorCategory = "generic"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryState         ErrorCategory = "state"
	CategoryInference     ErrorCategory = "inference"
	CategoryWorker        ErrorCategory = "worker-pool"
	CategoryBroadcast     ErrorCategory = "broadcast"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	component string         // Component where error occurred (lazily detected)
	Category  ErrorCategory  // Error category for better grouping
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	mu        sync.RWMutex   // Mutex to protect concurrent access
	detected  bool           // Whether component has been auto-detected
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, detecting it lazily if needed
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()

	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}

	return ee.component
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetPriority returns the explicit priority if set, empty string otherwise
func (ee *EnhancedError) GetPriority() string {
	return ee.Priority
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// GetTimestamp returns when the error occurred
func (ee *EnhancedError) GetTimestamp() time.Time {
	return ee.Timestamp
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error builder wrapping the given error
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: err,
	}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the final enhanced error
func (eb *ErrorBuilder) Build() *EnhancedError {
	category := eb.category
	if category == "" {
		category = CategoryGeneric
	}

	return &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  eb.component != "",
	}
}

// detectComponent derives the component name from the calling package path.
func detectComponent() string {
	const maxDepth = 8
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		fn := frame.Function
		if fn != "" && !strings.Contains(fn, "/internal/errors") {
			if idx := strings.Index(fn, "/internal/"); idx >= 0 {
				rest := fn[idx+len("/internal/"):]
				if dot := strings.IndexByte(rest, '.'); dot >= 0 {
					rest = rest[:dot]
				}
				if slash := strings.IndexByte(rest, '/'); slash >= 0 {
					rest = rest[:slash]
				}
				return rest
			}
		}
		if !more {
			break
		}
	}
	return ""
}

// --- Standard library passthroughs so callers need a single errors import ---

// NewStd creates a plain standard library error without enhancement
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error wrapping the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhanced *EnhancedError
	if stderrors.As(err, &enhanced) {
		return enhanced.Category == category
	}
	return false
}
