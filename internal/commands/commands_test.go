package commands

import "testing"

func TestAllCommandsAreGuildOnly(t *testing.T) {
	commands := GetAllCommands()
	if len(commands) == 0 {
		t.Fatal("no commands defined")
	}

	for _, cmd := range commands {
		if cmd.DMPermission == nil || *cmd.DMPermission {
			t.Errorf("command /%s must not be usable in DMs", cmd.Name)
		}
	}
}

func TestCommandNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range GetAllCommands() {
		if seen[cmd.Name] {
			t.Errorf("duplicate command name %q", cmd.Name)
		}
		seen[cmd.Name] = true
	}
}
