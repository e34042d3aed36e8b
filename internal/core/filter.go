package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// Operator compares a notification field with a condition value.
type Operator string

const (
	OpEqual     Operator = "="
	OpNotEqual  Operator = "!="
	OpContains  Operator = "~"
	OpRegex     Operator = "~="
	OpGreater   Operator = ">"
	OpLess      Operator = "<"
	OpGreaterEq Operator = ">="
	OpLessEq    Operator = "<="
)

// Longest operators first so "!=" is not read as "=".
var operators = []Operator{OpNotEqual, OpGreaterEq, OpLessEq, OpRegex, OpEqual, OpContains, OpGreater, OpLess}

// Condition is a single "field<op>value" test.
type Condition struct {
	Field    string
	Operator Operator
	Value    string

	regex  *regexp.Regexp
	number int
	cutoff time.Time
}

// Selector is a set of conditions that must all match.
type Selector struct {
	Conditions []Condition
}

// ParseSelector parses a comma separated list of conditions, e.g.
// "app=mail,urgency>=normal,summary~backup". An empty string selects all.
//
// Fields: app, summary, body, category, stack_tag, urgency, progress, age.
// The age field takes a duration ("10m", "2d") and compares against now.
func ParseSelector(expr string, now time.Time) (*Selector, error) {
	sel := &Selector{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cond, err := parseCondition(part, now)
		if err != nil {
			return nil, err
		}
		sel.Conditions = append(sel.Conditions, cond)
	}
	return sel, nil
}

func parseCondition(s string, now time.Time) (Condition, error) {
	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx <= 0 {
			continue
		}
		c := Condition{
			Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
			Operator: op,
			Value:    strings.TrimSpace(s[idx+len(op):]),
		}
		if err := c.init(now); err != nil {
			return Condition{}, err
		}
		return c, nil
	}
	return Condition{}, fmt.Errorf("invalid condition %q: missing operator", s)
}

func (c *Condition) init(now time.Time) error {
	switch c.Field {
	case "app", "app_name", "appname":
		c.Field = "app"
	case "summary", "title":
		c.Field = "summary"
	case "body", "message":
		c.Field = "body"
	case "category", "cat":
		c.Field = "category"
	case "stack_tag", "tag":
		c.Field = "stack_tag"
	case "urgency", "priority":
		c.Field = "urgency"
		u, err := ParseUrgency(c.Value)
		if err != nil {
			return err
		}
		c.number = u
	case "progress":
		v, err := strconv.Atoi(strings.TrimSuffix(c.Value, "%"))
		if err != nil {
			return fmt.Errorf("invalid progress %q: %w", c.Value, err)
		}
		c.number = v
	case "age":
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid age: %w", err)
		}
		c.cutoff = now.Add(-d)
	default:
		return fmt.Errorf("unknown field: %s", c.Field)
	}

	if c.Operator == OpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}
	return nil
}

// Match reports whether n satisfies every condition.
func (s *Selector) Match(n *model.Notification) bool {
	for i := range s.Conditions {
		if !s.Conditions[i].Match(n) {
			return false
		}
	}
	return true
}

// Match reports whether n satisfies the condition.
func (c *Condition) Match(n *model.Notification) bool {
	switch c.Field {
	case "app":
		return c.matchString(n.AppName)
	case "summary":
		return c.matchString(n.Summary)
	case "body":
		return c.matchString(n.Body)
	case "category":
		return c.matchString(n.Category)
	case "stack_tag":
		return c.matchString(n.StackTag)
	case "urgency":
		return c.matchInt(n.Urgency)
	case "progress":
		return n.HasProgress() && c.matchInt(n.Progress)
	case "age":
		// Older means a timestamp before the cutoff, so the comparison flips.
		ts := n.TimestampTime()
		switch c.Operator {
		case OpGreater:
			return ts.Before(c.cutoff)
		case OpGreaterEq:
			return !ts.After(c.cutoff)
		case OpLess:
			return ts.After(c.cutoff)
		case OpLessEq:
			return !ts.Before(c.cutoff)
		}
	}
	return false
}

func (c *Condition) matchString(v string) bool {
	switch c.Operator {
	case OpEqual:
		return v == c.Value
	case OpNotEqual:
		return v != c.Value
	case OpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case OpRegex:
		return c.regex != nil && c.regex.MatchString(v)
	default:
		return false
	}
}

func (c *Condition) matchInt(v int) bool {
	switch c.Operator {
	case OpEqual:
		return v == c.number
	case OpNotEqual:
		return v != c.number
	case OpGreater:
		return v > c.number
	case OpLess:
		return v < c.number
	case OpGreaterEq:
		return v >= c.number
	case OpLessEq:
		return v <= c.number
	default:
		return false
	}
}

// Select returns the notifications matching sel. A nil or empty selector keeps all.
func Select(notifications []*model.Notification, sel *Selector) []*model.Notification {
	if sel == nil || len(sel.Conditions) == 0 {
		return notifications
	}
	result := make([]*model.Notification, 0, len(notifications))
	for _, n := range notifications {
		if sel.Match(n) {
			result = append(result, n)
		}
	}
	return result
}

// ParseDuration parses a duration with day and week suffixes: 48h, 7d, 1w.
// "0" and "" mean no duration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if days, found := strings.CutSuffix(s, "d"); found {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if weeks, found := strings.CutSuffix(s, "w"); found {
		n, err := strconv.Atoi(weeks)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseUrgency parses low, normal, critical or 0, 1, 2.
func ParseUrgency(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "0":
		return model.UrgencyLow, nil
	case "normal", "1":
		return model.UrgencyNormal, nil
	case "critical", "2":
		return model.UrgencyCritical, nil
	default:
		return 0, fmt.Errorf("invalid urgency: %s (use low, normal, or critical)", s)
	}
}
