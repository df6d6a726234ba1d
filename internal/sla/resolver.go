package sla

import (
	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

// RuleMatch carries the ticket attributes used for rule resolution.
// DepartmentID may be empty when the ticket has no department scope.
type RuleMatch struct {
	Priority     domain.TicketPriority
	Category     string
	DepartmentID string
}

// matchLevel encodes which scope filters a waterfall level requires to be
// set on the rule. Levels are tried most-specific first.
type matchLevel struct {
	priority   bool
	category   bool
	department bool
}

var waterfall = []matchLevel{
	{priority: true, category: true, department: true},
	{priority: true, category: true},
	{priority: true, department: true},
	{category: true, department: true},
	{priority: true},
	{category: true},
	{department: true},
	{}, // fully wildcard rule
}

// ResolveRule selects the single best matching rule for a ticket, walking the
// specificity waterfall and returning on the first level with a match. Rules
// are expected in stable order (oldest first); within a level the first match
// wins. Inactive rules never match. Returns nil when no level matches, which
// leaves the ticket untracked.
func ResolveRule(rules []domain.SLARule, m RuleMatch) *domain.SLARule {
	for _, level := range waterfall {
		if level.department && m.DepartmentID == "" {
			continue
		}
		for i := range rules {
			rule := &rules[i]
			if !rule.IsActive {
				continue
			}
			if matchesLevel(rule, level, m) {
				return rule
			}
		}
	}
	return nil
}

// matchesLevel requires the rule's set filters to be exactly the level's
// combination, so a priority-only level never matches a priority+category
// rule left over from a more specific level.
func matchesLevel(rule *domain.SLARule, level matchLevel, m RuleMatch) bool {
	if (rule.Priority != nil) != level.priority {
		return false
	}
	if (rule.Category != nil) != level.category {
		return false
	}
	if (rule.DepartmentID != nil) != level.department {
		return false
	}
	if level.priority && *rule.Priority != m.Priority {
		return false
	}
	if level.category && *rule.Category != m.Category {
		return false
	}
	if level.department && *rule.DepartmentID != m.DepartmentID {
		return false
	}
	return true
}
