package intent

import "testing"

func TestParserParse(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name     string
		input    string
		wantType Type
	}{
		{"empty", "", Type("")},
		{"undo french", "annule ça", Undo},
		{"undo english", "undo", Undo},
		{"help french", "aide", Help},
		{"help english", "/help", Help},
		{"history", "/history", History},
		{"exit", "/exit", Exit},
		{"switch provider", "utilise openrouter", Switch},
		{"code request", "Crée un fichier README.md", Code},
		{"debug", "/debug", Debug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.Parse(tt.input)
			if tt.input == "" {
				if in != nil {
					t.Error("expected nil for empty input")
				}
				return
			}
			if in == nil {
				t.Fatal("expected non-nil intent")
			}
			if in.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", in.Type, tt.wantType)
			}
		})
	}
}

func TestParserExtractFiles(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name         string
		input        string
		wantFilesLen int
	}{
		{"explicit path", "Crée un fichier README.md", 1},
		{"go file", "Modifie utils/math.go", 1},
		{"multiple files", "Edit main.go and config.json", 2},
		{"no explicit file", "Ajoute une fonction", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.Parse(tt.input)
			if in == nil {
				t.Fatal("expected non-nil intent")
			}
			if len(in.Files) != tt.wantFilesLen {
				t.Errorf("Files count = %d, want %d (files: %v)", len(in.Files), tt.wantFilesLen, in.Files)
			}
		})
	}
}

func TestParserDetectAction(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name       string
		input      string
		wantAction string
	}{
		{"create french", "crée un fichier", "create"},
		{"create english", "create a file", "create"},
		{"modify french", "modifie le fichier", "modify"},
		{"modify english", "update the file", "modify"},
		{"delete french", "supprime le fichier", "delete"},
		{"delete english", "remove the file", "delete"},
		{"default", "do something", "modify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.Parse(tt.input)
			if in == nil {
				t.Fatal("expected non-nil intent")
			}
			if in.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", in.Action, tt.wantAction)
			}
		})
	}
}

func TestParserExtractProvider(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name         string
		input        string
		wantProvider string
		wantType     Type
	}{
		{"cerebras", "utilise cerebras", "cerebras", Switch},
		{"openrouter", "switch to openrouter", "openrouter", Switch},
		{"openai", "use openai", "", Code},
		{"claude", "utilise claude", "anthropic", Switch},
		{"unknown", "switch to something", "", Switch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.Parse(tt.input)
			if in == nil {
				t.Fatal("expected non-nil intent")
			}
			if in.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", in.Type, tt.wantType)
			}
			if in.Provider != tt.wantProvider {
				t.Errorf("Provider = %v, want %v", in.Provider, tt.wantProvider)
			}
		})
	}
}

func TestParserSlashCommands(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name        string
		input       string
		wantType    Type
		wantCommand string
	}{
		{"help", "/help", Help, "help"},
		{"history", "/history", History, "history"},
		{"diff", "/diff", Diff, "diff"},
		{"status", "/status", Status, "status"},
		{"config", "/config", Config, "config"},
		{"exit", "/exit", Exit, "exit"},
		{"quit", "/quit", Exit, "quit"},
		{"undo", "/undo", Undo, "undo"},
		{"debug", "/debug", Debug, "debug"},
		{"provider", "/provider cerebras", Switch, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.Parse(tt.input)
			if in == nil {
				t.Fatal("expected non-nil intent")
			}
			if in.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", in.Type, tt.wantType)
			}
			if in.Command != tt.wantCommand {
				t.Errorf("Command = %v, want %v", in.Command, tt.wantCommand)
			}
		})
	}
}
