// Package commandsfile parses the --commands-file format into the bot
// command menu Telegram's setMyCommands expects.
package commandsfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tgrelay/tgrelay/internal/telegram"
)

// Parse reads lines of "<name> <description>" from r into a slice of
// BotCommand, in file order. Blank lines and lines whose first
// non-whitespace character is '#' are ignored.
func Parse(r io.Reader) ([]telegram.BotCommand, error) {
	var commands []telegram.BotCommand

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, description, ok := strings.Cut(line, " ")
		if !ok || name == "" {
			return nil, fmt.Errorf("commandsfile: line %d: expected \"<name> <description>\", got %q", lineNo, line)
		}

		commands = append(commands, telegram.BotCommand{
			Command:     name,
			Description: strings.TrimSpace(description),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("commandsfile: scan: %w", err)
	}
	return commands, nil
}
