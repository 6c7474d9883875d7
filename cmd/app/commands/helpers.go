// Package commands implements the operator CLI actions. Each Run* function takes its
// dependencies explicitly so it can be tested without a container.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/anonymort/whistle/internal/app"
	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

// IOTuple is the terminal a command reads prompts from and prints results to.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO is the process terminal.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// OperatorContext marks ctx as coming from the command line so audit entries name an actor.
func OperatorContext(ctx context.Context) context.Context {
	return auditDomain.ContextWithActor(ctx, auditDomain.ActorCLI)
}

func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("container shutdown", slog.Any("error", err))
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(writer io.Writer, v any) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}
