package main

import "testing"

func TestBuildRootCommandHasSubcommands(t *testing.T) {
	cmd := buildRootCommand()

	if cmd.Use != "dispatchctl" {
		t.Errorf("Use = %q, want dispatchctl", cmd.Use)
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Use] = true
	}
	for _, want := range []string{"run", "submit"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("expected a --config persistent flag")
	}
}

func TestBuildRunCommandHasAddrFlag(t *testing.T) {
	cmd := buildRunCommand()
	if cmd.Use != "run" {
		t.Errorf("Use = %q, want run", cmd.Use)
	}
	if cmd.Flags().Lookup("addr") == nil {
		t.Error("expected an --addr flag")
	}
	if cmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestBuildSubmitCommandRequiresURL(t *testing.T) {
	cmd := buildSubmitCommand()
	if cmd.Use != "submit" {
		t.Errorf("Use = %q, want submit", cmd.Use)
	}
	flag := cmd.Flags().Lookup("url")
	if flag == nil {
		t.Fatal("expected a --url flag")
	}
	if cmd.Flags().Lookup("method") == nil || cmd.Flags().Lookup("priority") == nil {
		t.Error("expected --method and --priority flags")
	}
}
