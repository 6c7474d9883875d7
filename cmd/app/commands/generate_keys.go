package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	cryptoService "github.com/anonymort/whistle/internal/crypto/service"
)

// RunGenerateKeys prints fresh values for AUDIT_SIGNING_KEY and a local KMS_KEY_URI. The URI is
// opened and round-tripped before printing.
//
// Security: the base64key:// keeper keeps the wrapping key in the environment. Production
// deployments should point KMS_KEY_URI at a cloud KMS or Vault instead.
func RunGenerateKeys(ctx context.Context, writer io.Writer) error {
	signingKey := make([]byte, 32)
	if _, err := rand.Read(signingKey); err != nil {
		return fmt.Errorf("failed to generate audit signing key: %w", err)
	}
	defer clear(signingKey)

	wrappingKey := make([]byte, 32)
	if _, err := rand.Read(wrappingKey); err != nil {
		return fmt.Errorf("failed to generate KMS wrapping key: %w", err)
	}
	defer clear(wrappingKey)

	keyURI := "base64key://" + base64.URLEncoding.EncodeToString(wrappingKey)

	if err := checkKeeper(ctx, keyURI); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Local development keys. Use a cloud KMS URI in production.")
	_, _ = fmt.Fprintf(writer, "AUDIT_SIGNING_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(signingKey))
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", keyURI)
	return nil
}

func checkKeeper(ctx context.Context, keyURI string) error {
	keeper, err := cryptoService.OpenKeeper(ctx, keyURI)
	if err != nil {
		return err
	}
	return keeper.Close()
}
