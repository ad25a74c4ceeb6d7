package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/babywise/store"
)

func (d *DB) CreateRoutineEvent(ctx context.Context, create *store.RoutineEvent) (*store.RoutineEvent, error) {
	fields := []string{"uid", "thread_id", "event_type", "start_ts", "end_ts", "notes", "local_id"}
	args := []any{create.UID, create.ThreadID, string(create.EventType), create.StartTs, create.EndTs, create.Notes, create.LocalID}

	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields, args = append(fields, "updated_ts"), append(args, create.UpdatedTs)
	}

	stmt := `INSERT INTO routine_event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts, updated_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create routine event: %w", err)
	}
	return create, nil
}

func (d *DB) ListRoutineEvents(ctx context.Context, find *store.FindRoutineEvent) ([]*store.RoutineEvent, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ThreadID; v != nil {
		where, args = append(where, "thread_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.EventType; v != nil {
		where, args = append(where, "event_type = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := find.LocalID; v != nil {
		where, args = append(where, "local_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsAfter; v != nil {
		where, args = append(where, "start_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsBefore; v != nil {
		where, args = append(where, "start_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	orderBy := "ORDER BY start_ts ASC, id ASC"
	if find.OrderByStartDesc {
		orderBy = "ORDER BY start_ts DESC, id DESC"
	}

	query := `
		SELECT
			id, uid, thread_id, event_type, start_ts, end_ts,
			notes, local_id, created_ts, updated_ts
		FROM routine_event
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.RoutineEvent, 0)
	for rows.Next() {
		var event store.RoutineEvent
		var eventType string
		var endTs sql.NullInt64
		if err := rows.Scan(
			&event.ID,
			&event.UID,
			&event.ThreadID,
			&eventType,
			&event.StartTs,
			&endTs,
			&event.Notes,
			&event.LocalID,
			&event.CreatedTs,
			&event.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routine event: %w", err)
		}
		event.EventType = store.RoutineEventType(eventType)
		if endTs.Valid {
			event.EndTs = &endTs.Int64
		}
		list = append(list, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routine events: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateRoutineEvent(ctx context.Context, update *store.UpdateRoutineEvent) error {
	set, args := []string{}, []any{}

	if v := update.EventType; v != nil {
		set, args = append(set, "event_type = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := update.StartTs; v != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.EndTs; v != nil {
		set, args = append(set, "end_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Notes; v != nil {
		set, args = append(set, "notes = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	stmt := `UPDATE routine_event SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)+1)
	args = append(args, update.ID)
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update routine event: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) DeleteRoutineEvent(ctx context.Context, delete *store.DeleteRoutineEvent) error {
	stmt := `DELETE FROM routine_event WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete routine event: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
