package reorder

import (
	"testing"

	"github.com/hylla/dragboard/internal/domain"
)

// TestParseTarget verifies over ids decode into the right target kind.
func TestParseTarget(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want DropTarget
	}{
		{name: "empty", in: "  ", want: DropTarget{}},
		{name: "task", in: "task-1", want: DropTarget{Kind: TargetTask, TaskID: "task-1"}},
		{name: "column id", in: "done", want: DropTarget{Kind: TargetColumn, Status: domain.StatusDone}},
		{name: "column label", in: "InProgress", want: DropTarget{Kind: TargetColumn, Status: domain.StatusInProgress}},
		{name: "placeholder", in: "placeholder:todo", want: DropTarget{Kind: TargetPlaceholder, Status: domain.StatusToDo}},
		{name: "bad placeholder", in: "placeholder:archive", want: DropTarget{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTarget(tc.in)
			if got != tc.want {
				t.Fatalf("ParseTarget(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
			if got.Valid() && ParseTarget(got.String()) != got {
				t.Fatalf("expected %q to round-trip", got.String())
			}
		})
	}
}
