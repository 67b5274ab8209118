// internal/errors/service.go - error taxonomy and CLI reporting
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Kind classifies a failure by how the pipeline reacts to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork covers fetch failures and timeouts; recovered per category.
	KindNetwork
	// KindStructural means an expected node is missing; recovered per field.
	KindStructural
	// KindSemantic means a value was found but rejected or unparseable.
	KindSemantic
	// KindFatal aborts the current tour only.
	KindFatal
	KindConfig
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStructural:
		return "structural"
	case KindSemantic:
		return "semantic"
	case KindFatal:
		return "fatal"
	case KindConfig:
		return "config"
	case KindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Error is the classified error carried through the pipeline.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.URL != "" {
		b.WriteString(" ")
		b.WriteString(e.URL)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithURL attaches the page URL the error relates to.
func (e *Error) WithURL(url string) *Error {
	e.URL = url
	return e
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Join is errors.Join re-exported so callers need a single errors import.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// As is errors.As re-exported.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Service isolates failing operations and turns errors into CLI output.
type Service struct {
	showTechnical bool
}

// NewService creates a new error service
func NewService() *Service {
	return &Service{}
}

// WithVerbose enables technical details in CLI output.
func (s *Service) WithVerbose(verbose bool) *Service {
	s.showTechnical = verbose
	return s
}

// Guard runs fn and converts a panic into a structural error so one
// misbehaving step never takes down the caller.
func (s *Service) Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Kind: KindStructural,
				Op:   op,
				Err:  fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	return fn()
}

// GetUserFriendlyError returns a title, message and suggestions for err.
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	switch KindOf(err) {
	case KindConfig:
		return "Configuration Error",
			"The configuration file could not be used.",
			[]string{
				"Run 'tourextract validate <config>' for details",
				"Generate a fresh file with 'tourextract template'",
			}
	case KindOutput:
		return "Output Error",
			"Results could not be written.",
			[]string{
				"Check the output path is writable",
				"Check database or bucket credentials for mirror sinks",
			}
	case KindNetwork:
		return "Network Error",
			"A request to the website failed.",
			[]string{
				"Check your internet connection",
				"Increase request.timeout in the configuration",
			}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "yaml") {
		return "Configuration Error",
			"The configuration file has invalid YAML syntax.",
			[]string{
				"Check YAML indentation (use spaces, not tabs)",
				"Ensure proper quoting of string values",
			}
	}
	if strings.Contains(errStr, "no such file") {
		return "File Not Found",
			"An input file does not exist.",
			[]string{"Check the paths passed on the command line and in the configuration"}
	}

	return "Unexpected Error",
		"An unexpected error occurred during the operation.",
		[]string{
			"Try running the command again",
			"Re-run with --verbose for technical details",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindConfig:
		return 2
	case KindNetwork:
		return 3
	case KindStructural, KindSemantic:
		return 4
	case KindOutput:
		return 5
	case KindFatal:
		return 6
	default:
		return 1
	}
}

// FormatErrorForCLI formats an error for terminal output.
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	output := fmt.Sprintf("Error: %s\n%s\n", title, message)

	if s.showTechnical {
		output += fmt.Sprintf("\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		output += "\nSuggestions:\n"
		for _, suggestion := range suggestions {
			output += fmt.Sprintf("  - %s\n", suggestion)
		}
	}

	return output
}
