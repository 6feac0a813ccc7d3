package board

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		title   string
		want    Status
	}{
		{"to do", StatusCompleted, "To Do", StatusPending},
		{"pending", StatusInProgress, "Pending items", StatusPending},
		{"in progress", StatusPending, "In Progress", StatusInProgress},
		{"doing", StatusCompleted, "DOING", StatusInProgress},
		{"done", StatusPending, "Done", StatusCompleted},
		{"completed", StatusInProgress, "Completed this sprint", StatusCompleted},
		{"review is in progress", StatusCompleted, "Code Review", StatusInProgress},
		{"vietnamese to do", StatusCompleted, "Cần làm", StatusPending},
		{"vietnamese in progress", StatusPending, "Đang tiến hành", StatusInProgress},
		{"vietnamese done", StatusPending, "Hoàn thành", StatusCompleted},
		{"vietnamese review", StatusPending, "Đang xem xét", StatusInProgress},
		{"no match keeps status", StatusInProgress, "Random Title", StatusInProgress},
		{"empty title keeps status", StatusCompleted, "", StatusCompleted},
		// "pending" is checked before "done".
		{"first rule wins", StatusInProgress, "Pending / Done", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.current, tt.title); got != tt.want {
				t.Errorf("DeriveStatus(%q, %q) = %q, want %q", tt.current, tt.title, got, tt.want)
			}
		})
	}
}

func TestDeriveStatus_DoneIsAlwaysCompleted(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInProgress, StatusCompleted} {
		if got := DeriveStatus(s, "Done"); got != StatusCompleted {
			t.Errorf("DeriveStatus(%q, Done) = %q, want completed", s, got)
		}
		if got := DeriveStatus(s, "Random Title"); got != s {
			t.Errorf("DeriveStatus(%q, Random Title) = %q, want identity", s, got)
		}
	}
}
