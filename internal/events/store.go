package events

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DBTX is satisfied by both pgxpool.Pool and pgx.Tx.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists domain events in Postgres.
type Store struct {
	DB DBTX
}

// WithTx rebinds the store to a transaction so an event commits or rolls back
// with the state change it describes.
func (s Store) WithTx(tx pgx.Tx) Store {
	return Store{DB: tx}
}

func (s Store) InsertDomainEvent(ctx context.Context, arg InsertEventParams) (DomainEvent, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`,
		arg.Topic, arg.AggregateID, arg.Payload)
	var ev DomainEvent
	err := row.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
