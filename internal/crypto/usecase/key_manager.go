package usecase

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	cryptoService "github.com/anonymort/whistle/internal/crypto/service"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// keyManager implements KeyManager.
//
// The active pair is published through an atomic pointer so Seal and Open never block on a
// rotation. rotateMu serializes rotations; mu only guards the retired list.
type keyManager struct {
	algorithm cryptoDomain.Algorithm
	grace     time.Duration
	envelopes cryptoService.EnvelopeService
	repo      KeyPairRepository
	txManager database.TxManager
	ledger    auditUseCase.Ledger
	logger    *slog.Logger
	now       func() time.Time

	active   atomic.Pointer[cryptoDomain.KeyPair]
	rotateMu sync.Mutex
	mu       sync.Mutex
	retired  []*cryptoDomain.KeyPair
}

// NewKeyManager creates a key manager. Call Initialize before use.
func NewKeyManager(
	algorithm cryptoDomain.Algorithm,
	grace time.Duration,
	envelopes cryptoService.EnvelopeService,
	repo KeyPairRepository,
	txManager database.TxManager,
	ledger auditUseCase.Ledger,
	logger *slog.Logger,
) KeyManager {
	return &keyManager{
		algorithm: algorithm,
		grace:     grace,
		envelopes: envelopes,
		repo:      repo,
		txManager: txManager,
		ledger:    ledger,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *keyManager) Initialize(ctx context.Context) error {
	pairs, err := m.repo.ListUsable(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to load key pairs")
	}

	m.mu.Lock()
	var active *cryptoDomain.KeyPair
	m.retired = m.retired[:0]
	for _, pair := range pairs {
		if pair.Active && active == nil {
			active = pair
			continue
		}
		if pair.RetiredAt == nil {
			// A second active row can only come from an interrupted manual edit; treat the
			// older one as retired now.
			retiredAt := m.now().UTC()
			pair.RetiredAt = &retiredAt
		}
		pair.Active = false
		m.retired = append(m.retired, pair)
	}
	// Stored newest first; the retired list is kept oldest first.
	slices.Reverse(m.retired)
	m.mu.Unlock()

	if active == nil {
		active, err = m.GenerateKeyPair()
		if err != nil {
			return err
		}
		if err := m.repo.Create(ctx, active); err != nil {
			active.Destroy()
			return apperrors.Wrap(err, "failed to store initial key pair")
		}
		m.ledger.Record(ctx, &auditDomain.Entry{
			ActorID:  auditDomain.ActorSystem,
			Action:   auditDomain.ActionKeyGenerate,
			Resource: "key_pair:" + active.ID.String(),
			Outcome:  auditDomain.OutcomeSuccess,
			Severity: auditDomain.SeverityHigh,
			Details:  map[string]any{"algorithm": string(active.Algorithm)},
		})
	}
	m.active.Store(active)

	if _, err := m.DestroyExpired(ctx); err != nil {
		m.logger.Error("failed to destroy expired key pairs", slog.Any("error", err))
	}
	return nil
}

func (m *keyManager) GenerateKeyPair() (*cryptoDomain.KeyPair, error) {
	sealer, err := cryptoService.NewSealer(m.algorithm)
	if err != nil {
		return nil, err
	}

	publicKey, privateKey, err := sealer.GenerateKeyPair()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key pair")
	}

	return &cryptoDomain.KeyPair{
		ID:         uuid.Must(uuid.NewV7()),
		Algorithm:  m.algorithm,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Active:     true,
		CreatedAt:  m.now().UTC().Truncate(time.Microsecond),
	}, nil
}

func (m *keyManager) ActivePublicKey() (cryptoDomain.PublicKey, error) {
	active := m.active.Load()
	if active == nil {
		return cryptoDomain.PublicKey{}, cryptoDomain.ErrNoActiveKey
	}
	return active.Public(), nil
}

func (m *keyManager) RotateKeys(ctx context.Context) (cryptoDomain.PublicKey, error) {
	next, err := m.GenerateKeyPair()
	if err != nil {
		m.recordRotation(ctx, auditDomain.OutcomeFailure, nil, nil, err)
		return cryptoDomain.PublicKey{}, err
	}

	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	current := m.active.Load()
	retiredAt := m.now().UTC().Truncate(time.Microsecond)

	err = m.txManager.WithTx(ctx, func(ctx context.Context) error {
		if current != nil {
			if err := m.repo.Retire(ctx, current.ID, retiredAt); err != nil {
				return err
			}
		}
		return m.repo.Create(ctx, next)
	})
	if err != nil {
		next.Destroy()
		m.recordRotation(ctx, auditDomain.OutcomeFailure, current, nil, err)
		return cryptoDomain.PublicKey{}, apperrors.Wrap(err, "failed to rotate keys")
	}

	if current != nil {
		previous := *current
		previous.Active = false
		previous.RetiredAt = &retiredAt
		m.mu.Lock()
		m.retired = append(m.retired, &previous)
		m.mu.Unlock()
	}
	m.active.Store(next)

	m.recordRotation(ctx, auditDomain.OutcomeSuccess, current, next, nil)
	return next.Public(), nil
}

func (m *keyManager) recordRotation(
	ctx context.Context,
	outcome auditDomain.Outcome,
	previous, next *cryptoDomain.KeyPair,
	cause error,
) {
	details := map[string]any{"algorithm": string(m.algorithm), "graceWindow": m.grace.String()}
	if previous != nil {
		details["previousKeyId"] = previous.ID.String()
	}
	resource := "key_pair"
	if next != nil {
		resource = "key_pair:" + next.ID.String()
	}
	if cause != nil {
		details["error"] = cause.Error()
	}

	m.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionKeyRotate,
		Resource: resource,
		Outcome:  outcome,
		Severity: auditDomain.SeverityHigh,
		Details:  details,
	})
}

func (m *keyManager) DestroyExpired(ctx context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	var expired []*cryptoDomain.KeyPair
	m.retired = slices.DeleteFunc(m.retired, func(pair *cryptoDomain.KeyPair) bool {
		if pair.Expired(now, m.grace) {
			expired = append(expired, pair)
			return true
		}
		return false
	})
	m.mu.Unlock()

	var errs []error
	for _, pair := range expired {
		if err := m.repo.Delete(ctx, pair.ID); err != nil && !apperrors.Is(err, cryptoDomain.ErrKeyPairNotFound) {
			errs = append(errs, err)
		}
		pair.Destroy()

		m.ledger.Record(ctx, &auditDomain.Entry{
			ActorID:  auditDomain.ActorSystem,
			Action:   auditDomain.ActionKeyDestroy,
			Resource: "key_pair:" + pair.ID.String(),
			Outcome:  auditDomain.OutcomeSuccess,
			Severity: auditDomain.SeverityHigh,
			Details:  map[string]any{"retiredAt": pair.RetiredAt.Format(time.RFC3339)},
		})
	}

	return len(expired), apperrors.Join(errs...)
}

func (m *keyManager) PrivateKey(ctx context.Context, id uuid.UUID) ([]byte, error) {
	m.ledger.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionPrivateKeyAccess,
		Resource: "key_pair:" + id.String(),
		Outcome:  auditDomain.OutcomeDenied,
		Severity: auditDomain.SeverityCritical,
	})
	return nil, cryptoDomain.ErrPrivateKeyAccess
}

func (m *keyManager) Seal(plaintext []byte) (*cryptoDomain.Envelope, error) {
	public, err := m.ActivePublicKey()
	if err != nil {
		return nil, err
	}
	return m.envelopes.Seal(plaintext, public)
}

func (m *keyManager) SealFile(record *cryptoDomain.FileRecord) (*cryptoDomain.Envelope, error) {
	public, err := m.ActivePublicKey()
	if err != nil {
		return nil, err
	}
	return m.envelopes.SealFile(record, public)
}

func (m *keyManager) Open(ctx context.Context, envelope *cryptoDomain.Envelope) ([]byte, error) {
	m.destroyBeforeOpen(ctx)
	for _, pair := range m.keyring() {
		if plaintext, err := m.envelopes.Open(envelope, pair); err == nil {
			return plaintext, nil
		}
	}
	return nil, cryptoDomain.ErrDecryptionFailed
}

func (m *keyManager) OpenFile(ctx context.Context, envelope *cryptoDomain.Envelope) (*cryptoDomain.FileRecord, error) {
	m.destroyBeforeOpen(ctx)
	for _, pair := range m.keyring() {
		if record, err := m.envelopes.OpenFile(envelope, pair); err == nil {
			return record, nil
		}
	}
	return nil, cryptoDomain.ErrDecryptionFailed
}

func (m *keyManager) destroyBeforeOpen(ctx context.Context) {
	if _, err := m.DestroyExpired(ctx); err != nil {
		m.logger.Error("failed to destroy expired key pairs", slog.Any("error", err))
	}
}

// keyring snapshots the pairs allowed to open: the active one first, then retired pairs still
// inside their grace window, newest first.
func (m *keyManager) keyring() []*cryptoDomain.KeyPair {
	var pairs []*cryptoDomain.KeyPair
	if active := m.active.Load(); active != nil {
		pairs = append(pairs, active)
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.retired) - 1; i >= 0; i-- {
		if !m.retired[i].Expired(now, m.grace) {
			pairs = append(pairs, m.retired[i])
		}
	}
	return pairs
}
