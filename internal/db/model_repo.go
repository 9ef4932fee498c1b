package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"kynex/internal/types"
)

// ModelRepo persists trained model artifacts in the models table. The
// artifact body is stored as a zstd-compressed JSON payload; only the
// identity columns (id, kind, created_at, is_active) are relational.
//
// Activation is swap-on-write: SaveAndActivate deactivates the previous
// artifact of the same kind and activates the new one inside a single
// transaction, so readers always see exactly one active model per kind.
type ModelRepo struct {
	db      TxStarter
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewModelRepo creates a new ModelRepo backed by the given pool.
func NewModelRepo(db TxStarter) *ModelRepo {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		// Cannot fail with nil writer and a valid level.
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
	return &ModelRepo{db: db, encoder: encoder, decoder: decoder}
}

// SaveAndActivate validates the artifact, then inserts and activates it in
// one transaction. The previous active artifact of the same kind remains in
// the table, deactivated, for audit.
func (r *ModelRepo) SaveAndActivate(ctx context.Context, artifact *types.ModelArtifact) error {
	if err := artifact.Validate(); err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "refusing to persist invalid model artifact", err)
	}
	payload, err := r.encodePayload(artifact)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to begin model swap transaction", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`UPDATE models SET is_active = false WHERE kind = $1 AND is_active`,
		artifact.Kind,
	); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to deactivate previous model", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO models (id, kind, created_at, is_active, payload)
		 VALUES ($1, $2, $3, true, $4)`,
		artifact.ID, artifact.Kind, artifact.CreatedAt.UTC(), payload,
	); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert model", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit model swap", err)
	}
	return nil
}

// GetActive returns the active artifact of the given kind, or a
// not_found_model error when none has been trained yet.
func (r *ModelRepo) GetActive(ctx context.Context, kind types.ModelKind) (*types.ModelArtifact, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT payload FROM models WHERE kind = $1 AND is_active`,
		kind,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundModel, "no active model for kind "+string(kind), err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query active model", err)
	}
	return r.decodePayload(payload)
}

func (r *ModelRepo) encodePayload(artifact *types.ModelArtifact) ([]byte, error) {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal model artifact", err)
	}
	return r.encoder.EncodeAll(raw, nil), nil
}

func (r *ModelRepo) decodePayload(payload []byte) (*types.ModelArtifact, error) {
	raw, err := r.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalModelCorrupt, "failed to decompress model payload", err)
	}
	var artifact types.ModelArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalModelCorrupt, "failed to unmarshal model payload", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalModelCorrupt, "stored model payload is invalid", err)
	}
	return &artifact, nil
}
