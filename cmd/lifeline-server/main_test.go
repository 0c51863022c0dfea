package main

import "testing"

func TestServeCmd_Wiring(t *testing.T) {
	cmd := serveCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want %q", cmd.Use, "serve")
	}
	if cmd.RunE == nil {
		t.Error("serve command has no RunE")
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	if cmd.Use != "migrate" {
		t.Errorf("Use = %q, want %q", cmd.Use, "migrate")
	}

	for _, name := range []string{"up", "status"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%q) error = %v", name, err)
		}
		if sub == cmd {
			t.Fatalf("migrate %s is not registered as a subcommand", name)
		}
		if sub.RunE == nil {
			t.Errorf("migrate %s has no RunE", name)
		}

		flag := sub.Flags().Lookup("dir")
		if flag == nil {
			t.Errorf("migrate %s is missing the dir flag", name)
			continue
		}
		// Empty default defers to MIGRATIONS_DIR from the config.
		if flag.DefValue != "" {
			t.Errorf("migrate %s dir default = %q, want empty", name, flag.DefValue)
		}
	}
}
