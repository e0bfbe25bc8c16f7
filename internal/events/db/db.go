package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"eventless/internal/events"
	"eventless/internal/models"
)

type DB struct {
	Bun *bun.DB
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

func (d *DB) GetTiersByEvent(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	var tiers []models.TicketTier
	err := d.Bun.NewSelect().
		Model(&tiers).
		Where("event_id = ?", eventID).
		Order("price ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (d *DB) ListApprovedEvents(ctx context.Context) ([]models.Event, error) {
	var list []models.Event
	err := d.Bun.NewSelect().
		Model(&list).
		Where("status = ?", models.EventApproved).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	var list []models.Event
	err := d.Bun.NewSelect().
		Model(&list).
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CreateEventWithTiers(ctx context.Context, event models.Event, tiers []models.TicketTier, quota *events.QuotaCharge) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&event).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&tiers).Exec(ctx); err != nil {
			return err
		}
		if quota != nil {
			_, err := tx.NewUpdate().
				Model((*models.User)(nil)).
				Set("free_events_used = ?", quota.NewCount).
				Set("free_event_month = ?", quota.Month).
				Where("id = ?", quota.UserID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) TransitionStatus(ctx context.Context, eventID string, from, to models.EventStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", to).
		Where("id = ?", eventID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
