package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PicoRmin/TicketingBot-sub000/internal/events"
	"github.com/PicoRmin/TicketingBot-sub000/internal/sla"
)

func TestFormatAlertMessage(t *testing.T) {
	cases := []struct {
		name    string
		payload events.SLAAlertPayload
		want    string
	}{
		{
			name: "response warning",
			payload: events.SLAAlertPayload{
				Kind:      sla.AlertResponseWarning,
				RuleName:  "urgent",
				Remaining: 15 * time.Minute,
			},
			want: `first response due in 15m0s (rule "urgent")`,
		},
		{
			name: "resolution breach",
			payload: events.SLAAlertPayload{
				Kind:     sla.AlertResolutionBreach,
				RuleName: "high",
				Overdue:  90 * time.Minute,
			},
			want: `resolution deadline missed by 1h30m0s (rule "high")`,
		},
		{
			name: "escalation",
			payload: events.SLAAlertPayload{
				Kind:     sla.AlertEscalation,
				RuleName: "urgent",
				Elapsed:  2*time.Hour + 29*time.Second,
			},
			want: `ticket escalated after 2h0m0s open (rule "urgent")`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatAlertMessage(tc.payload))
		})
	}
}
