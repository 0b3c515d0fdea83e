package cli

import (
	"fmt"
	"slices"
	"testing"

	"github.com/spf13/cobra"
)

// TestCommandTree verifies the CLI command hierarchy is correct.
func TestCommandTree(t *testing.T) {
	root := Root()

	expectedTopLevel := []string{
		"connect",
		"credentials",
		"deploy",
		"disconnect",
		"jobs",
		"list",
		"modules",
		"refresh",
		"remove",
		"space",
		"version",
	}

	gotTopLevel := childNames(root)
	slices.Sort(expectedTopLevel)
	slices.Sort(gotTopLevel)

	if len(expectedTopLevel) != len(gotTopLevel) {
		t.Fatalf("top-level command count: got %d, want %d\n  got:  %v\n  want: %v",
			len(gotTopLevel), len(expectedTopLevel), gotTopLevel, expectedTopLevel)
	}
	for i := range expectedTopLevel {
		if expectedTopLevel[i] != gotTopLevel[i] {
			t.Errorf("top-level command mismatch at index %d: got %q, want %q",
				i, gotTopLevel[i], expectedTopLevel[i])
			break
		}
	}

	jobs := findSubcommand(root, "jobs")
	if jobs == nil {
		t.Fatal("jobs command not found")
	}
	if got := childNames(jobs); !slices.Equal(got, []string{"cancel"}) {
		t.Errorf("jobs subcommands: got %v, want [cancel]", got)
	}
}

// TestCommandsHaveRequiredMetadata verifies every command has Use and Short set.
func TestCommandsHaveRequiredMetadata(t *testing.T) {
	root := Root()

	var walk func(cmd *cobra.Command, path string)
	walk = func(cmd *cobra.Command, path string) {
		if cmd.Use == "" {
			t.Errorf("%s: Use field is empty", path)
		}
		if cmd.Short == "" {
			t.Errorf("%s: Short field is empty", path)
		}
		for _, child := range cmd.Commands() {
			walk(child, path+"/"+child.Name())
		}
	}

	for _, cmd := range root.Commands() {
		walk(cmd, "bridgectl/"+cmd.Name())
	}
}

// TestRequiredFlags verifies that commands with required flags have them marked.
func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		command  string
		required []string
	}{
		{"connect", []string{"username"}},
		{"credentials", []string{"password"}},
	}

	root := Root()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd := findSubcommand(root, tt.command)
			if cmd == nil {
				t.Fatalf("command %q not found", tt.command)
			}
			for _, flagName := range tt.required {
				f := cmd.Flags().Lookup(flagName)
				if f == nil {
					t.Errorf("flag --%s not found", flagName)
					continue
				}
				if _, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
					t.Errorf("flag --%s should be marked as required", flagName)
				}
			}
		})
	}
}

// TestCommandFlags verifies flag registration and defaults.
func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command  string
		flag     string
		defValue string
	}{
		{"connect", "url", ""},
		{"connect", "cloud", ""},
		{"connect", "org", ""},
		{"connect", "space", ""},
		{"list", "output", "table"},
		{"modules", "output", "table"},
		{"deploy", "unit-id", ""},
		{"deploy", "project-path", ""},
		{"remove", "delete-services", "false"},
	}

	root := Root()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			cmd := findSubcommand(root, tt.command)
			if cmd == nil {
				t.Fatalf("command %q not found", tt.command)
			}
			f := cmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag --%s not found on %s", tt.flag, tt.command)
			}
			if f.DefValue != tt.defValue {
				t.Errorf("flag --%s default = %q, want %q", tt.flag, f.DefValue, tt.defValue)
			}
		})
	}
}

// TestRootPersistentFlags verifies persistent flags on the root command.
func TestRootPersistentFlags(t *testing.T) {
	root := Root()
	if f := root.PersistentFlags().Lookup("api-url"); f == nil {
		t.Fatal("persistent flag --api-url not found on root command")
	}
}

// TestArgsValidators verifies that commands enforce correct argument counts.
func TestArgsValidators(t *testing.T) {
	tests := []struct {
		command string
		args    int
		wantErr bool
	}{
		{"connect", 1, false},
		{"connect", 0, true},
		{"disconnect", 1, false},
		{"list", 0, false},
		{"list", 1, true},
		{"modules", 1, false},
		{"modules", 0, true},
		{"refresh", 1, false},
		{"deploy", 2, false},
		{"deploy", 1, true},
		{"remove", 2, false},
		{"remove", 3, true},
		{"credentials", 1, false},
		{"space", 3, false},
		{"space", 2, true},
		{"jobs", 0, false},
		{"jobs", 1, true},
	}

	root := Root()
	for _, tt := range tests {
		t.Run(tt.command+"/"+argsDesc(tt.args, tt.wantErr), func(t *testing.T) {
			cmd := findSubcommand(root, tt.command)
			if cmd == nil {
				t.Fatalf("command %q not found", tt.command)
			}
			if cmd.Args == nil {
				if tt.wantErr {
					t.Errorf("command %q has no Args validator but expected error with %d args", tt.command, tt.args)
				}
				return
			}
			args := make([]string, tt.args)
			for i := range args {
				args[i] = "test"
			}
			err := cmd.Args(cmd, args)
			if (err != nil) != tt.wantErr {
				t.Errorf("command %q Args(%d args) error = %v, wantErr %v", tt.command, tt.args, err, tt.wantErr)
			}
		})
	}
}

func childNames(cmd *cobra.Command) []string {
	children := cmd.Commands()
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	slices.Sort(names)
	return names
}

func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, cmd := range parent.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func argsDesc(n int, wantErr bool) string {
	if wantErr {
		return fmt.Sprintf("rejects_%d_args", n)
	}
	return fmt.Sprintf("accepts_%d_args", n)
}
