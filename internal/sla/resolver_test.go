package sla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

func rule(name string, priority *domain.TicketPriority, category, departmentID *string) domain.SLARule {
	return domain.SLARule{
		ID:           "rule-" + name,
		Name:         name,
		Priority:     priority,
		Category:     category,
		DepartmentID: departmentID,
		IsActive:     true,
	}
}

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }
func strPtr(s string) *string                                    { return &s }

func TestResolveRule_WaterfallPrecedence(t *testing.T) {
	match := RuleMatch{
		Priority:     domain.TicketPriorityHigh,
		Category:     "billing",
		DepartmentID: "dept-1",
	}

	full := rule("full", priorityPtr(domain.TicketPriorityHigh), strPtr("billing"), strPtr("dept-1"))
	prioCat := rule("prio-cat", priorityPtr(domain.TicketPriorityHigh), strPtr("billing"), nil)
	prioDept := rule("prio-dept", priorityPtr(domain.TicketPriorityHigh), nil, strPtr("dept-1"))
	catDept := rule("cat-dept", nil, strPtr("billing"), strPtr("dept-1"))
	prioOnly := rule("prio-only", priorityPtr(domain.TicketPriorityHigh), nil, nil)
	catOnly := rule("cat-only", nil, strPtr("billing"), nil)
	deptOnly := rule("dept-only", nil, nil, strPtr("dept-1"))
	wildcard := rule("wildcard", nil, nil, nil)

	// Each case removes the winning rule and expects the next level to win.
	ladder := []domain.SLARule{full, prioCat, prioDept, catDept, prioOnly, catOnly, deptOnly, wildcard}
	for i := range ladder {
		t.Run(ladder[i].Name, func(t *testing.T) {
			candidates := append([]domain.SLARule{}, ladder[i:]...)
			got := ResolveRule(candidates, match)
			require.NotNil(t, got)
			assert.Equal(t, ladder[i].Name, got.Name)
		})
	}
}

func TestResolveRule_SpecificityBeatsListOrder(t *testing.T) {
	match := RuleMatch{Priority: domain.TicketPriorityUrgent, Category: "outage", DepartmentID: "dept-9"}

	rules := []domain.SLARule{
		rule("generic", nil, nil, nil),
		rule("prio-only", priorityPtr(domain.TicketPriorityUrgent), nil, nil),
		rule("exact", priorityPtr(domain.TicketPriorityUrgent), strPtr("outage"), strPtr("dept-9")),
	}

	got := ResolveRule(rules, match)
	require.NotNil(t, got)
	assert.Equal(t, "exact", got.Name)
}

func TestResolveRule_InactiveRulesNeverMatch(t *testing.T) {
	inactive := rule("inactive", priorityPtr(domain.TicketPriorityLow), nil, nil)
	inactive.IsActive = false
	fallback := rule("fallback", nil, nil, nil)

	got := ResolveRule([]domain.SLARule{inactive, fallback}, RuleMatch{Priority: domain.TicketPriorityLow})
	require.NotNil(t, got)
	assert.Equal(t, "fallback", got.Name)
}

func TestResolveRule_DepartmentLevelsSkippedWithoutDepartment(t *testing.T) {
	deptOnly := rule("dept-only", nil, nil, strPtr("dept-1"))
	catOnly := rule("cat-only", nil, strPtr("billing"), nil)

	got := ResolveRule([]domain.SLARule{deptOnly, catOnly}, RuleMatch{
		Priority: domain.TicketPriorityMedium,
		Category: "billing",
	})
	require.NotNil(t, got)
	assert.Equal(t, "cat-only", got.Name)
}

func TestResolveRule_NoMatchReturnsNil(t *testing.T) {
	rules := []domain.SLARule{
		rule("other-prio", priorityPtr(domain.TicketPriorityUrgent), nil, nil),
		rule("other-cat", nil, strPtr("hardware"), nil),
	}
	got := ResolveRule(rules, RuleMatch{Priority: domain.TicketPriorityLow, Category: "billing"})
	assert.Nil(t, got)
}

func TestResolveRule_MismatchedFilterBlocksLevel(t *testing.T) {
	// A priority+category rule on the wrong category must not win at the
	// priority-only level either; its filter shape excludes it there.
	prioCatWrong := rule("prio-cat-wrong", priorityPtr(domain.TicketPriorityHigh), strPtr("hardware"), nil)
	wildcard := rule("wildcard", nil, nil, nil)

	got := ResolveRule([]domain.SLARule{prioCatWrong, wildcard}, RuleMatch{
		Priority: domain.TicketPriorityHigh,
		Category: "billing",
	})
	require.NotNil(t, got)
	assert.Equal(t, "wildcard", got.Name)
}

func TestResolveRule_TieGoesToFirstListed(t *testing.T) {
	first := rule("first", priorityPtr(domain.TicketPriorityHigh), nil, nil)
	second := rule("second", priorityPtr(domain.TicketPriorityHigh), nil, nil)

	got := ResolveRule([]domain.SLARule{first, second}, RuleMatch{Priority: domain.TicketPriorityHigh})
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Name)
}
