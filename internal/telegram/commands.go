package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// SetMyCommands pushes the bot's slash-command menu. Called once at
// startup when --commands-file is supplied.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	slog.Debug("setting bot commands", "component", "telegram", "operation", "set_my_commands", "count", len(commands))

	body := setMyCommandsRequest{Commands: commands}

	data, err := c.doPost(ctx, "setMyCommands", body)
	if err != nil {
		return fmt.Errorf("telegram: set_my_commands: %w", err)
	}

	var resp apiResponse[bool]
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("telegram: set_my_commands: unmarshal: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram: set_my_commands: %s", resp.Description)
	}

	return nil
}
