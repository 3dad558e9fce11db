package config

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// ErrUnknownCampaign is returned when a campaign name is not declared in the document.
var ErrUnknownCampaign = errors.New("unknown campaign")

// Config is a decoded campaign document.
type Config struct {
	Version   string              `yaml:"version"`
	Campaigns map[string]Campaign `yaml:"campaigns"`
}

// Campaign is an ordered list of phases executed one after another.
type Campaign struct {
	Phases []Phase `yaml:"phases"`
}

// Duration is expressed either in milliseconds or in seconds.
type Duration struct {
	Ms *uint64 `yaml:"ms,omitempty"`
	S  *uint64 `yaml:"s,omitempty"`
}

// Millis returns a Duration of n milliseconds.
func Millis(n uint64) Duration { return Duration{Ms: &n} }

// Seconds returns a Duration of n seconds.
func Seconds(n uint64) Duration { return Duration{S: &n} }

// Milliseconds normalizes the duration to milliseconds.
func (d Duration) Milliseconds() uint64 {
	switch {
	case d.Ms != nil:
		return *d.Ms
	case d.S != nil:
		return *d.S * 1000
	default:
		return 0
	}
}

// Std converts the duration to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Milliseconds()) * time.Millisecond
}

func (d Duration) valid() bool {
	return (d.Ms == nil) != (d.S == nil)
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type Phase struct {
	Target    ValueSource  `yaml:"target"`
	Threads   int          `yaml:"threads"`
	Ends      End          `yaml:"ends"`
	Timeout   Duration     `yaml:"timeout"`
	Rate      int          `yaml:"rate,omitempty"`
	Arrival   ArrivalModel `yaml:"arrival,omitempty"`
	Report    Report       `yaml:"report"`
	Spec      Spec         `yaml:"spec"`
	Behaviors Behaviors    `yaml:"behaviors"`
}

// End holds the optional termination conditions of a phase. When both are set
// the first one to trigger wins; when neither is set the phase never ends on its own.
type End struct {
	Requests *uint64   `yaml:"requests,omitempty"`
	Time     *Duration `yaml:"time,omitempty"`
}

type Report struct {
	Interval *Duration `yaml:"interval,omitempty"`
}

// Spec describes the request shape. GET is the only supported kind.
type Spec struct {
	Get *GetSpec `yaml:"get,omitempty"`
}

// Method returns the HTTP method of the request shape.
func (s Spec) Method() string {
	return http.MethodGet
}

type GetSpec struct {
	Header    map[string][]ValueSource `yaml:"header,omitempty"`
	Query     map[string][]ValueSource `yaml:"query,omitempty"`
	Variables map[string]ValueSource   `yaml:"variables,omitempty"`
}

// SourceKind identifies which variant of a ValueSource is set.
type SourceKind int

const (
	SourceInvalid SourceKind = iota
	SourceStatic
	SourceEnv
	SourceIncrement
)

func (k SourceKind) String() string {
	switch k {
	case SourceStatic:
		return "static"
	case SourceEnv:
		return "env"
	case SourceIncrement:
		return "increment"
	default:
		return "invalid"
	}
}

// ValueSource declares where a value comes from. Exactly one field must be set.
type ValueSource struct {
	Static    *string    `yaml:"static,omitempty"`
	Env       *string    `yaml:"env,omitempty"`
	Increment *Increment `yaml:"increment,omitempty"`
}

type Increment struct {
	Start uint64 `yaml:"start"`
	Step  uint64 `yaml:"step"`
}

// StaticValue returns a static ValueSource.
func StaticValue(v string) ValueSource { return ValueSource{Static: &v} }

// EnvValue returns a ValueSource resolved from the named environment variable.
func EnvValue(name string) ValueSource { return ValueSource{Env: &name} }

// IncrementValue returns a counting ValueSource.
func IncrementValue(start, step uint64) ValueSource {
	return ValueSource{Increment: &Increment{Start: start, Step: step}}
}

// Kind reports the variant that is set, or SourceInvalid when zero or several are.
func (v ValueSource) Kind() SourceKind {
	kind := SourceInvalid
	set := 0
	if v.Static != nil {
		kind = SourceStatic
		set++
	}
	if v.Env != nil {
		kind = SourceEnv
		set++
	}
	if v.Increment != nil {
		kind = SourceIncrement
		set++
	}
	if set != 1 {
		return SourceInvalid
	}
	return kind
}

type Mark string

const (
	MarkSuccess Mark = "success"
	MarkError   Mark = "error"
)

type Behaviors struct {
	Ok    []Behavior    `yaml:"ok"`
	Error ErrorBehavior `yaml:"error"`
}

type Behavior struct {
	Match string `yaml:"match"`
	Mark  Mark   `yaml:"mark"`
}

type ErrorBehavior struct {
	Backoff *Duration `yaml:"backoff,omitempty"`
}

// Campaign returns the named campaign.
func (c *Config) Campaign(name string) (Campaign, error) {
	if c == nil {
		return Campaign{}, fmt.Errorf("%w %q", ErrUnknownCampaign, name)
	}
	campaign, ok := c.Campaigns[name]
	if !ok {
		return Campaign{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownCampaign, name, strings.Join(c.CampaignNames(), ", "))
	}
	return campaign, nil
}

// CampaignNames returns the declared campaign names in sorted order.
func (c *Config) CampaignNames() []string {
	names := make([]string, 0, len(c.Campaigns))
	for name := range c.Campaigns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if len(c.Campaigns) == 0 {
		issues = append(issues, "at least one campaign is required")
	}
	for _, name := range c.CampaignNames() {
		campaign := c.Campaigns[name]
		if len(campaign.Phases) == 0 {
			issues = append(issues, fmt.Sprintf("campaigns.%s: at least one phase is required", name))
		}
		for idx, phase := range campaign.Phases {
			prefix := fmt.Sprintf("campaigns.%s.phases[%d]", name, idx)
			issues = append(issues, validatePhase(prefix, phase)...)
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validatePhase(prefix string, p Phase) []string {
	var issues []string

	switch p.Target.Kind() {
	case SourceStatic:
		if strings.TrimSpace(*p.Target.Static) == "" {
			issues = append(issues, prefix+": target must not be empty")
		}
	case SourceEnv:
	case SourceIncrement:
		issues = append(issues, prefix+": target must be static or env")
	default:
		issues = append(issues, prefix+": target must set exactly one of static or env")
	}

	if p.Threads < 1 {
		issues = append(issues, prefix+": threads must be >= 1")
	}
	if p.Ends.Time != nil && !p.Ends.Time.valid() {
		issues = append(issues, prefix+": ends.time must set exactly one of ms or s")
	}
	if !p.Timeout.valid() {
		issues = append(issues, prefix+": timeout must set exactly one of ms or s")
	}
	if p.Report.Interval != nil && !p.Report.Interval.valid() {
		issues = append(issues, prefix+": report.interval must set exactly one of ms or s")
	}
	if p.Rate < 0 {
		issues = append(issues, prefix+": rate must be >= 0")
	}
	switch p.Arrival {
	case "", ArrivalModelUniform, ArrivalModelPoisson:
	default:
		issues = append(issues, fmt.Sprintf("%s: arrival model %q is not supported", prefix, p.Arrival))
	}

	issues = append(issues, validateSpec(prefix+".spec", p.Spec)...)
	issues = append(issues, validateBehaviors(prefix+".behaviors", p.Behaviors)...)
	return issues
}

func validateSpec(prefix string, s Spec) []string {
	if s.Get == nil {
		return []string{prefix + ": get is required"}
	}
	var issues []string
	for name, sources := range s.Get.Header {
		if !httpguts.ValidHeaderFieldName(strings.Trim(name, " \t")) {
			issues = append(issues, fmt.Sprintf("%s.get.header: invalid header name %q", prefix, name))
		}
		for idx, src := range sources {
			switch src.Kind() {
			case SourceStatic, SourceEnv:
			case SourceIncrement:
				issues = append(issues, fmt.Sprintf("%s.get.header.%s[%d]: increment is not allowed in headers", prefix, name, idx))
			default:
				issues = append(issues, fmt.Sprintf("%s.get.header.%s[%d]: exactly one value source is required", prefix, name, idx))
			}
		}
	}
	for name, sources := range s.Get.Query {
		for idx, src := range sources {
			if src.Kind() == SourceInvalid {
				issues = append(issues, fmt.Sprintf("%s.get.query.%s[%d]: exactly one value source is required", prefix, name, idx))
			}
		}
	}
	for name, src := range s.Get.Variables {
		if !variableName.MatchString(name) {
			issues = append(issues, fmt.Sprintf("%s.get.variables: invalid variable name %q", prefix, name))
		}
		if src.Kind() == SourceInvalid {
			issues = append(issues, fmt.Sprintf("%s.get.variables.%s: exactly one value source is required", prefix, name))
		}
	}
	sort.Strings(issues)
	return issues
}

var variableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

func validateBehaviors(prefix string, b Behaviors) []string {
	var issues []string
	for idx, rule := range b.Ok {
		if _, err := regexp.Compile(rule.Match); err != nil {
			issues = append(issues, fmt.Sprintf("%s.ok[%d]: invalid match pattern: %v", prefix, idx, err))
		}
		switch rule.Mark {
		case MarkSuccess, MarkError:
		default:
			issues = append(issues, fmt.Sprintf("%s.ok[%d]: mark must be success or error, got %q", prefix, idx, rule.Mark))
		}
	}
	if b.Error.Backoff != nil && !b.Error.Backoff.valid() {
		issues = append(issues, prefix+".error.backoff: must set exactly one of ms or s")
	}
	return issues
}
