package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// TestKeyMapBindings verifies the drag keys resolve to the expected bindings.
func TestKeyMapBindings(t *testing.T) {
	km := newKeyMap()
	cases := []struct {
		name    string
		msg     tea.KeyPressMsg
		binding key.Binding
	}{
		{name: "grab", msg: tea.KeyPressMsg{Code: 'g', Text: "g"}, binding: km.grab},
		{name: "grab alias", msg: tea.KeyPressMsg{Code: 'm', Text: "m"}, binding: km.grab},
		{name: "drop", msg: tea.KeyPressMsg{Code: tea.KeyEnter}, binding: km.drop},
		{name: "cancel", msg: tea.KeyPressMsg{Code: tea.KeyEscape}, binding: km.cancel},
		{name: "select", msg: tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}, binding: km.toggleSelect},
		{name: "arrow right", msg: tea.KeyPressMsg{Code: tea.KeyRight}, binding: km.moveRight},
		{name: "vim down", msg: tea.KeyPressMsg{Code: 'j', Text: "j"}, binding: km.moveDown},
		{name: "ctrl+c", msg: tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}, binding: km.quit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !key.Matches(tc.msg, tc.binding) {
				t.Fatalf("%q did not match %v", tc.msg.String(), tc.binding.Keys())
			}
		})
	}
}

// TestKeyMapHelp verifies short and full help expose the drag workflow.
func TestKeyMapHelp(t *testing.T) {
	km := newKeyMap()
	short := km.ShortHelp()
	if len(short) == 0 || short[len(short)-1].Help().Desc != "quit" {
		t.Fatalf("short help should end with quit, got %d bindings", len(short))
	}

	seen := map[string]bool{}
	for _, group := range km.FullHelp() {
		for _, binding := range group {
			seen[binding.Help().Desc] = true
		}
	}
	for _, want := range []string{"grab", "drop", "cancel", "select", "copy id", "task info"} {
		if !seen[want] {
			t.Fatalf("full help missing %q", want)
		}
	}
}
