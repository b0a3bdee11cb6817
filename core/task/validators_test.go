package task_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kazi/core/task"
	testutil "github.com/trezcool/kazi/tests"
)

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    *time.Time
		wantErr bool
	}{
		{name: "empty", value: ""},
		{name: "date", value: "2026-03-01", want: timePtr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
		{name: "rfc3339", value: "2026-03-01T10:30:00Z", want: timePtr(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))},
		{name: "rfc3339 with offset", value: "2026-03-01T10:30:00+02:00", want: timePtr(time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC))},
		{name: "garbage", value: "next week", wantErr: true},
		{name: "invalid date", value: "2026-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := task.ParseDueDate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.True(t, tt.want.Equal(*got), "got %v, want %v", got, tt.want)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestNewTask_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	nt := task.NewTask{Title: " Quiz ", Priority: " ", Target: " broadcast:all "}
	assert.NoError(t, nt.Validate(validate))
	assert.Equal(t, "Quiz", nt.Title)
	assert.Equal(t, task.PriorityMedium, nt.Priority, "priority defaults to medium")
	assert.Equal(t, "broadcast:all", nt.Target)

	nt = task.NewTask{Title: strings.Repeat("a", 201), Target: "single:a"}
	assert.Error(t, nt.Validate(validate))
}

func TestQueryFilter_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name    string
		filter  task.QueryFilter
		wantErr bool
	}{
		{name: "empty"},
		{name: "all set", filter: task.QueryFilter{Kind: "BROADCAST", Priority: "High", Status: "in_progress"}},
		{name: "invalid kind", filter: task.QueryFilter{Kind: "group"}, wantErr: true},
		{name: "invalid priority", filter: task.QueryFilter{Priority: "urgent"}, wantErr: true},
		{name: "invalid status", filter: task.QueryFilter{Status: "done"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
