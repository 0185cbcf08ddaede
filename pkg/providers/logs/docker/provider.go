// Package docker follows a container's logs through the docker CLI.
package docker

import (
	"log/slog"

	"github.com/modoterra/redtail/pkg/providers/logs/command"
)

// New returns a source running `docker logs -f --tail 0 container`.
// Container stdout and stderr keep their stream tags.
func New(container string, logger *slog.Logger) *command.Source {
	return command.New(container, Args(container), logger)
}

// Args is the docker invocation used by New.
func Args(container string) []string {
	return []string{"docker", "logs", "--follow", "--tail", "0", container}
}
