package consolereporter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-junit-report/runner"
)

// Reporter mirrors run progress on the build log while the XML report is
// being built. Handlers run synchronously in event order.
type Reporter interface {
	OnSuiteStart(suite *runner.Suite)
	OnOutcome(test *runner.Test, testErr *runner.TestError)
	OnPending(test *runner.Test)
	OnRunEnd(stats runner.Stats)
}

// Factory builds a named console reporter. Options arrive as key=value
// strings from the console_reporter_options input.
type Factory func(logger log.Logger, options []string) (Reporter, error)

var validNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Registry maps console reporter names to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// NewDefaultRegistry returns a registry holding the built in reporters.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.factories[SpecReporterName] = NewSpecReporter
	registry.factories[DotReporterName] = NewDotReporter
	return registry
}

// Register adds a reporter under the given name.
func (r *Registry) Register(name string, factory Factory) error {
	if !validNamePattern.MatchString(name) {
		return fmt.Errorf("invalid console reporter name: %q", name)
	}
	if factory == nil {
		return fmt.Errorf("console reporter %s has no factory", name)
	}
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("console reporter %s is already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// Create builds the named reporter.
func (r *Registry) Create(name string, logger log.Logger, options []string) (Reporter, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown console reporter %q, available reporters: %s", name, strings.Join(r.Names(), ", "))
	}
	return factory(logger, options)
}

// Names lists the registered reporter names in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatDuration(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", ms/1000)
	}
	return fmt.Sprintf("%.0fms", ms)
}
