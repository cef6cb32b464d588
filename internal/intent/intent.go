// Package intent parses raw user input into a structured Intent: which
// slash command, which files, which action. The storage schema has no
// `intents` table to hot-reload patterns from, so every pattern here is
// compiled in rather than loaded at runtime.
package intent

import (
	"regexp"
	"strings"
)

// Type is the kind of intent parsed from user input.
type Type string

const (
	Code     Type = "code"     // create/modify code
	Undo     Type = "undo"     // undo last action
	Redo     Type = "redo"     // redo last undo
	Switch   Type = "switch"   // switch provider/model
	Help     Type = "help"     // help request
	History  Type = "history"  // view history
	Diff     Type = "diff"     // view diff
	Status   Type = "status"   // git/session status
	Config   Type = "config"   // configuration
	Exit     Type = "exit"     // exit/quit
	Feedback Type = "feedback" // positive/negative feedback
	Debug    Type = "debug"    // debug mode
	Command  Type = "command"  // unrecognized slash command
)

// Intent is a parsed user input.
type Intent struct {
	Type       Type
	Files      []string
	Action     string // create, modify, delete
	Content    string
	Provider   string
	Command    string
	Args       []string
	Confidence float64
	Raw        string
}

var filePatterns = []*regexp.Regexp{
	regexp.MustCompile(`([a-zA-Z0-9_\-./]+\.(go|md|txt|json|yaml|yml|js|ts|py|rs|c|cpp|h|hpp|java|rb|sh|sql|html|css|xml))`),
	regexp.MustCompile(`(?:dans|in|fichier|file)\s+["']?([a-zA-Z0-9_\-./]+)["']?`),
	regexp.MustCompile(`["']([a-zA-Z0-9_\-./]+\.[a-zA-Z]+)["']`),
}

var actionPatterns = map[string][]string{
	"create": {"crée", "créer", "create", "nouveau", "new", "ajoute", "add", "génère", "generate", "make", "write"},
	"modify": {"modifie", "modifier", "modify", "change", "update", "edit", "fix", "corrige", "améliore", "refactor"},
	"delete": {"supprime", "supprimer", "delete", "remove", "efface", "enlève"},
}

var defaultPatterns = map[Type][]string{
	Undo:     {"annule", "undo", "reviens", "cancel", "revert", "défais"},
	Redo:     {"refais", "redo", "again"},
	Switch:   {"change de modèle", "utilise", "switch to", "use provider", "use model"},
	Help:     {"aide", "help", "/help", "comment", "how to", "?"},
	History:  {"historique", "history", "/history", "messages"},
	Diff:     {"diff", "/diff", "changes", "modifications", "qu'est-ce qui a changé"},
	Status:   {"status", "/status", "état", "stats"},
	Config:   {"config", "/config", "configuration", "settings", "paramètres"},
	Exit:     {"exit", "quit", "/exit", "/quit", "bye", "au revoir", "sortir"},
	Feedback: {"👍", "👎", "+1", "-1", "good", "bad", "bien", "mal", "merci"},
	Debug:    {"/debug", "debug mode", "mode debug"},
}

var providerAliases = map[string][]string{
	"cerebras":   {"cerebras"},
	"openrouter": {"openrouter", "open router"},
	"openai":     {"openai", "gpt", "chatgpt"},
	"anthropic":  {"anthropic", "claude"},
	"google":     {"google", "gemini"},
}

// Parser parses user input into Intents.
type Parser struct {
	patterns map[Type][]string
}

// NewParser returns a Parser using the compiled-in pattern set.
func NewParser() *Parser {
	return &Parser{patterns: defaultPatterns}
}

// Parse parses input into an Intent, or nil if input is blank.
func (p *Parser) Parse(input string) *Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	in := &Intent{Raw: input, Confidence: 0.5}

	if strings.HasPrefix(input, "/") {
		return p.parseCommand(input)
	}

	inputLower := strings.ToLower(input)
	for t, patterns := range p.patterns {
		for _, pattern := range patterns {
			if strings.Contains(inputLower, strings.ToLower(pattern)) {
				in.Type = t
				in.Content = input
				in.Confidence = 0.8
				if t == Switch {
					in.Provider = extractProvider(input)
				}
				return in
			}
		}
	}

	in.Files = extractFiles(input)
	in.Action = detectAction(input)
	in.Type = Code
	in.Content = input
	in.Confidence = 0.6
	return in
}

func (p *Parser) parseCommand(input string) *Intent {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	command := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	in := &Intent{
		Type:       Command,
		Command:    command,
		Args:       args,
		Raw:        input,
		Confidence: 1.0,
	}

	switch command {
	case "help":
		in.Type = Help
	case "history":
		in.Type = History
	case "diff":
		in.Type = Diff
	case "status":
		in.Type = Status
	case "config":
		in.Type = Config
	case "exit", "quit":
		in.Type = Exit
	case "undo":
		in.Type = Undo
	case "redo":
		in.Type = Redo
	case "debug":
		in.Type = Debug
	case "provider", "model", "switch":
		in.Type = Switch
		if len(args) > 0 {
			in.Provider = args[0]
		}
	}

	return in
}

func extractFiles(input string) []string {
	files := make([]string, 0)
	seen := make(map[string]bool)

	for _, pattern := range filePatterns {
		for _, match := range pattern.FindAllStringSubmatch(input, -1) {
			if len(match) > 1 && !seen[match[1]] {
				seen[match[1]] = true
				files = append(files, match[1])
			}
		}
	}
	return files
}

func detectAction(input string) string {
	inputLower := strings.ToLower(input)
	for action, patterns := range actionPatterns {
		for _, pattern := range patterns {
			if strings.Contains(inputLower, pattern) {
				return action
			}
		}
	}
	return "modify"
}

func extractProvider(input string) string {
	inputLower := strings.ToLower(input)
	for provider, patterns := range providerAliases {
		for _, pattern := range patterns {
			if strings.Contains(inputLower, pattern) {
				return provider
			}
		}
	}
	return ""
}
