package features

import "strings"

// Command is a parsed chat command: "!cmd arg1 rest of line".
type Command struct {
	Name string
	Arg1 string
	Arg2 string
	Raw  string
}

// ParseCommand parses message text into a command. Commands start with "!"
// or "."; anything else returns ok=false. The name is lower-cased; at most
// two arguments are split off, the second keeping its remaining whitespace.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '!' && text[0] != '.') {
		return Command{}, false
	}

	parts := strings.SplitN(text[1:], " ", 3)
	cmd := Command{
		Name: strings.ToLower(strings.TrimSpace(parts[0])),
		Raw:  text,
	}
	if cmd.Name == "" {
		return Command{}, false
	}

	if len(parts) > 1 {
		cmd.Arg1 = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		cmd.Arg2 = strings.TrimSpace(parts[2])
	}
	return cmd, true
}
