// Package outcome classifies completed HTTP exchanges by status code.
package outcome

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/torosent/viking/internal/config"
)

// Mark is the classification of a completed exchange.
type Mark int

const (
	// MarkNone means no rule matched; the exchange counts toward the total only.
	MarkNone Mark = iota
	MarkSuccess
	MarkError
)

func (m Mark) String() string {
	switch m {
	case MarkSuccess:
		return "success"
	case MarkError:
		return "error"
	default:
		return "none"
	}
}

type rule struct {
	pattern *regexp.Regexp
	mark    Mark
}

// Classifier holds ordered rules. It is immutable and safe for concurrent use.
type Classifier struct {
	rules []rule
}

// Compile builds a Classifier from behavior rules, preserving their order.
func Compile(behaviors []config.Behavior) (*Classifier, error) {
	c := &Classifier{rules: make([]rule, 0, len(behaviors))}
	for idx, b := range behaviors {
		re, err := regexp.Compile(b.Match)
		if err != nil {
			return nil, fmt.Errorf("behavior %d: invalid match %q: %w", idx, b.Match, err)
		}
		var mark Mark
		switch b.Mark {
		case config.MarkSuccess:
			mark = MarkSuccess
		case config.MarkError:
			mark = MarkError
		default:
			return nil, fmt.Errorf("behavior %d: unknown mark %q", idx, b.Mark)
		}
		c.rules = append(c.rules, rule{pattern: re, mark: mark})
	}
	return c, nil
}

// Classify returns the mark of the first rule matching the decimal status code.
func (c *Classifier) Classify(status int) Mark {
	if c == nil {
		return MarkNone
	}
	code := strconv.Itoa(status)
	for _, r := range c.rules {
		if r.pattern.MatchString(code) {
			return r.mark
		}
	}
	return MarkNone
}
