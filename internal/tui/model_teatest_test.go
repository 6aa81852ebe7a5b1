package tui

import (
	"slices"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"

	"github.com/hylla/dragboard/internal/domain"
)

// TestModelWithTeatest verifies the board renders and quits.
func TestModelWithTeatest(t *testing.T) {
	tm := teatest.NewTestModel(t, newTestModel(boardFixture(t)), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Write docs")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestModelWithTeatestKeyboardDrag verifies a grab, move, and drop round trip through a running program.
func TestModelWithTeatestKeyboardDrag(t *testing.T) {
	svc := boardFixture(t)
	tm := teatest.NewTestModel(t, newTestModel(svc), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Review PR")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'g', Text: "g"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "dragging")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'l', Text: "l"})
	tm.Send(tea.KeyPressMsg{Code: 'j', Text: "j"})
	tm.Send(tea.KeyPressMsg{Code: tea.KeyEnter})
	waitForColumn(t, svc, domain.StatusInProgress, []string{"t4", "t1"})

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
	if got := columnIDs(t, svc, domain.StatusToDo); !slices.Equal(got, []string{"t2", "t3"}) {
		t.Fatalf("to do = %v, want [t2 t3]", got)
	}
}

// TestModelWithTeatestHelp verifies the full help overlay renders.
func TestModelWithTeatestHelp(t *testing.T) {
	tm := teatest.NewTestModel(t, newTestModel(boardFixture(t)), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Deploy")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "copy id")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// waitForColumn polls the backing store until status holds want.
func waitForColumn(t *testing.T, svc *fakeService, status domain.Status, want []string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := columnIDs(t, svc, status)
		if slices.Equal(got, want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s = %v, want %v", status, got, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
