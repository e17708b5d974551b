package models

import (
	"errors"
	"testing"
	"time"
)

func validTask() Task {
	return Task{
		ID:           "t1",
		Title:        "Cartel campaña otoño",
		Week:         "Sem 32 2024",
		Area:         AreaProduction,
		Responsible:  TeamDesign,
		Requester:    "Marta",
		Priority:     PriorityMedium,
		Status:       StatusActive,
		DeliveryDate: "2024-08-09",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Task) {}},
		{name: "no delivery date", mutate: func(t *Task) { t.DeliveryDate = "" }},
		{name: "qualified blocked status", mutate: func(t *Task) { t.Status = "Bloqueada (falta brief)" }},
		{name: "empty id", mutate: func(t *Task) { t.ID = " " }, wantErr: true},
		{name: "empty title", mutate: func(t *Task) { t.Title = "" }, wantErr: true},
		{name: "empty week", mutate: func(t *Task) { t.Week = "" }, wantErr: true},
		{name: "unknown area", mutate: func(t *Task) { t.Area = "Ventas" }, wantErr: true},
		{name: "unknown team", mutate: func(t *Task) { t.Responsible = "Legal" }, wantErr: true},
		{name: "unknown priority", mutate: func(t *Task) { t.Priority = "Crítica" }, wantErr: true},
		{name: "unknown status", mutate: func(t *Task) { t.Status = "Archivada" }, wantErr: true},
		{name: "bad delivery date", mutate: func(t *Task) { t.DeliveryDate = "09/08/2024" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(&task)
			err := task.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTask) {
					t.Fatalf("expected ErrInvalidTask, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityLow.Rank() < PriorityMedium.Rank() &&
		PriorityMedium.Rank() < PriorityHigh.Rank() &&
		PriorityHigh.Rank() < PriorityUrgent.Rank()) {
		t.Fatal("priorities are not ordered Baja < Media < Alta < Urgente")
	}
	if Priority("Crítica").Rank() != -1 || Priority("Crítica").Valid() {
		t.Fatal("unknown priority should rank -1 and be invalid")
	}
}

func TestWithStatusCompletedDropsPriority(t *testing.T) {
	task := validTask()
	task.Priority = PriorityUrgent

	done := task.WithStatus(StatusCompleted)
	if done.Priority != PriorityLow {
		t.Fatalf("expected priority %q, got %q", PriorityLow, done.Priority)
	}
	if task.Priority != PriorityUrgent {
		t.Fatal("WithStatus modified the receiver")
	}

	progress := task.WithStatus(StatusInProgress)
	if progress.Priority != PriorityUrgent {
		t.Fatalf("non-completed status changed priority to %q", progress.Priority)
	}
}

func TestCloneCopiesComments(t *testing.T) {
	task := validTask()
	task.Comments = []Comment{{Author: "Ana", Text: "ok"}}

	clone := task.Clone()
	clone.Comments[0].Text = "changed"
	if task.Comments[0].Text != "ok" {
		t.Fatal("clone shares the comments slice")
	}
}

func TestIsPendingRequester(t *testing.T) {
	task := validTask()
	if task.IsPendingRequester() {
		t.Fatal("named requester reported as pending")
	}
	task.Requester = PendingRequester
	if !task.IsPendingRequester() {
		t.Fatal("pending requester not detected")
	}
}

func TestWeekOf(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{day: "2024-08-05", want: "Sem 32 2024"},
		{day: "2024-08-11", want: "Sem 32 2024"},
		{day: "2024-01-01", want: "Sem 1 2024"},
		{day: "2024-12-30", want: "Sem 1 2025"},
	}
	for _, tt := range tests {
		day, err := time.Parse(DateLayout, tt.day)
		if err != nil {
			t.Fatal(err)
		}
		if got := WeekOf(day); got != tt.want {
			t.Errorf("WeekOf(%s) = %q, want %q", tt.day, got, tt.want)
		}
	}
}

func TestParseWeek(t *testing.T) {
	year, week, ok := ParseWeek("Sem 32 2024")
	if !ok || year != 2024 || week != 32 {
		t.Fatalf("ParseWeek = %d, %d, %v", year, week, ok)
	}
	for _, bad := range []string{"", "Week 32 2024", "Sem 54 2024", "Sem 0 2024"} {
		if _, _, ok := ParseWeek(bad); ok {
			t.Errorf("ParseWeek(%q) should fail", bad)
		}
	}
}
