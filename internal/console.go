package internal

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"
)

// errStopRequested signals that the operator asked the server to shut down.
var errStopRequested = errors.New("stop requested by operator")

// commandSignifier prefixes every operator command.
const commandSignifier = "/"

// runConsole reads operator commands from stdin until the context is
// canceled or a stop is requested.
func (c *Controller) runConsole(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin is gone (detached console); keep serving.
				<-ctx.Done()
				return nil
			}
			if err := c.dispatchCommand(line); err != nil {
				if errors.Is(err, errStopRequested) {
					c.hall.Stop()
					return err
				}
				c.logger.Warn(err.Error())
			}
		}
	}
}

func (c *Controller) dispatchCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, commandSignifier) {
		c.logger.Warnf("unknown command signifier, commands start with %q", commandSignifier)
		return nil
	}

	parts := strings.Fields(strings.TrimPrefix(line, commandSignifier))
	if len(parts) == 0 {
		c.logger.Warnf("empty command, try %shelp", commandSignifier)
		return nil
	}
	command := parts[0]
	footer := ""
	if len(parts) > 1 {
		footer = parts[1]
	}

	switch command {
	case "help":
		c.postListOfCommands()
	case "stop":
		return errStopRequested
	case "kick":
		if footer == "" {
			c.logger.Warn("usage: /kick <username>")
			return nil
		}
		if err := c.hall.Kick(footer); err != nil {
			return err
		}
		c.logger.Infof("kicked %s from the game", footer)
	case "ban":
		if footer == "" {
			c.logger.Warn("usage: /ban <username>")
			return nil
		}
		return c.hall.Ban(footer)
	case "unban":
		if footer == "" {
			c.logger.Warn("usage: /unban <username>")
			return nil
		}
		removed, err := c.hall.Unban(footer)
		if err != nil {
			return err
		}
		if !removed {
			c.logger.Warnf("%s is not banned", footer)
			return nil
		}
		c.logger.Infof("unbanned %s from the server", footer)
	default:
		c.logger.Warnf("unknown command %q, try %shelp", command, commandSignifier)
	}
	return nil
}

func (c *Controller) postListOfCommands() {
	c.logger.Info("/help lists the available commands")
	c.logger.Info("/kick 'username' to kick a player (note: kicking a player also bans them)")
	c.logger.Info("/ban 'username' to ban a player")
	c.logger.Info("/unban 'username' to unban a player")
	c.logger.Info("/stop to stop the server")
}
