package domain

import "testing"

func TestTicketStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketOpen, TicketInProgress, true},
		{TicketOpen, TicketClosed, true},
		{TicketInProgress, TicketResolved, true},
		{TicketResolved, TicketInProgress, true},
		{TicketClosed, TicketOpen, true},
		{TicketClosed, TicketResolved, false},
		{TicketClosed, TicketInProgress, false},
		{TicketOpen, "archived", false},
		{TicketResolved, TicketResolved, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}
