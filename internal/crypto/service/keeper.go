package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// ErrKeeperMisconfigured is returned when KMS_KEY_URI is missing or the keeper fails its self-check.
var ErrKeeperMisconfigured = errors.New("kms keeper misconfigured")

var keeperCanary = []byte("whistle keeper canary")

// OpenKeeper opens the gocloud.dev keeper named by keyURI and proves it can wrap and unwrap
// before handing it out. Supported schemes are base64key, awskms, gcpkms, azurekeyvault and
// hashivault.
func OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	if keyURI == "" {
		return nil, fmt.Errorf("%w: KMS_KEY_URI is empty", ErrKeeperMisconfigured)
	}
	u, err := url.Parse(keyURI)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: KMS_KEY_URI is not a URI", ErrKeeperMisconfigured)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s keeper: %w", ErrKeeperMisconfigured, u.Scheme, err)
	}
	if err := VerifyKeeper(ctx, keeper); err != nil {
		_ = keeper.Close()
		return nil, err
	}
	return keeper, nil
}

// VerifyKeeper wraps and unwraps a fixed canary.
func VerifyKeeper(ctx context.Context, keeper cryptoDomain.KMSKeeper) error {
	wrapped, err := keeper.Encrypt(ctx, keeperCanary)
	if err != nil {
		return fmt.Errorf("%w: wrap canary: %w", ErrKeeperMisconfigured, err)
	}
	unwrapped, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return fmt.Errorf("%w: unwrap canary: %w", ErrKeeperMisconfigured, err)
	}
	if !bytes.Equal(unwrapped, keeperCanary) {
		return fmt.Errorf("%w: canary round trip mismatch", ErrKeeperMisconfigured)
	}
	return nil
}
