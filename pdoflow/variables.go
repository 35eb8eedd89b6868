package pdoflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// ErrVariableNotFound is returned by GetVariable when no value has been
// set for the given posting/key pair.
var ErrVariableNotFound = errors.New("pdoflow: posting variable not found")

// SetVariable upserts a small piece of shared state under key, scoped to
// one posting (original_source/models.py's JobPostingVariable). Entry
// points use this to hand off counters or checkpoints between jobs of the
// same posting without building their own side channel; nothing about the
// claim or execution protocol depends on it.
func SetVariable(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal variable %q: %w", key, err)
	}

	q := pdoflowsqlc.New(pool)
	return q.SetPostingVariable(ctx, pdoflowsqlc.SetPostingVariableParams{
		PostingID: postingID,
		Key:       key,
		Value:     encoded,
	})
}

// GetVariable reads the value set for postingID/key into dest, which must
// be a pointer, via encoding/json. Returns ErrVariableNotFound if nothing
// has been set.
func GetVariable(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, key string, dest any) error {
	q := pdoflowsqlc.New(pool)
	raw, err := q.GetPostingVariable(ctx, pdoflowsqlc.GetPostingVariableParams{
		PostingID: postingID,
		Key:       key,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: posting %s key %q", ErrVariableNotFound, postingID, key)
		}
		return err
	}
	return json.Unmarshal(raw, dest)
}

// DeleteVariable removes a shared key/value slot. Deleting a key that was
// never set is not an error.
func DeleteVariable(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, key string) error {
	q := pdoflowsqlc.New(pool)
	return q.DeletePostingVariable(ctx, pdoflowsqlc.DeletePostingVariableParams{
		PostingID: postingID,
		Key:       key,
	})
}
