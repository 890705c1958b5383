package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the standard five fields with an optional leading seconds field.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parser returns the expression parser shared by schedulers and validation.
func Parser() cron.Parser {
	return parser
}

// Validate reports whether expr is a valid schedule.
func Validate(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo returns the closest activations of cronExpr around refTime.
// Last is searched backwards hour by hour for up to a year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
	}

	for i := range 366 * 24 {
		from := refTime.Add(-time.Duration(i+1) * time.Hour)
		candidate := schedule.Next(from)
		if candidate.After(refTime) {
			continue
		}
		// walk forward to the latest activation not after refTime
		for {
			next := schedule.Next(candidate)
			if next.After(refTime) {
				break
			}
			candidate = next
		}
		info.Last = candidate
		break
	}

	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	return info, nil
}
