package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoUseCase "github.com/anonymort/whistle/internal/crypto/usecase"
)

// RunRotateKeys makes a fresh key pair active. The previous pair keeps opening envelopes until
// its grace window elapses.
//
// Requirements: Database must be migrated and KMS_KEY_URI must point at the same key the server uses.
func RunRotateKeys(
	ctx context.Context,
	keyManager cryptoUseCase.KeyManager,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("rotating key pair")

	publicKey, err := keyManager.RotateKeys(OperatorContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to rotate keys: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"key_id":     publicKey.ID.String(),
			"algorithm":  string(publicKey.Algorithm),
			"public_key": publicKey.Key,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(writer, "Key pair rotated successfully!")
		_, _ = fmt.Fprintf(writer, "Key ID:     %s\n", publicKey.ID)
		_, _ = fmt.Fprintf(writer, "Algorithm:  %s\n", publicKey.Algorithm)
		_, _ = fmt.Fprintf(writer, "Public Key: %s\n", publicKey.Key)
	}

	logger.Info("key pair rotated", slog.String("key_id", publicKey.ID.String()))
	return nil
}
