package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"eventless/internal/issuance"
	"eventless/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TransactionExists reports whether a transaction with the given
// gateway reference has already been committed.
func (d *DB) TransactionExists(ctx context.Context, reference string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Transaction)(nil)).
		Where("reference = ?", reference).
		Exists(ctx)
}

// IssueAtomic commits one purchase: the transaction row, its tickets
// and the organizer payout credit, all-or-nothing. The transaction row
// is inserted conditionally on its unique reference; losing that race
// means another request already processed this reference, and nothing
// is written.
func (d *DB) IssueAtomic(ctx context.Context, batch issuance.Batch) (bool, error) {
	inserted := false
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(&batch.Transaction).
			On("CONFLICT (reference) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		inserted = true

		if _, err := tx.NewInsert().Model(&batch.Tickets).Exec(ctx); err != nil {
			return err
		}

		if batch.Revenue > 0 {
			_, err := tx.NewUpdate().
				Model((*models.User)(nil)).
				Set("payout_balance = payout_balance + ?", batch.Revenue).
				Set("payout_status = ?", models.PayoutPending).
				Where("id = ?", batch.OrganizerID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return inserted, err
}
