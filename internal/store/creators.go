// Package store persists creator records in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creatorsync/internal/errs"
	"creatorsync/internal/model"
)

const creatorColumns = `id, platform, username, follower_count, engagement_rate,
       profile_data, profiles, aggregated_data, last_sync, created_at, updated_at`

// CreatorStore is the pgx implementation of the persistence collaborator:
// reads by id and by (platform, username), upsert-style updates to the
// aggregation and sync fields.
type CreatorStore struct {
	pool *pgxpool.Pool
}

// New wires a CreatorStore on an existing pool.
func New(pool *pgxpool.Pool) *CreatorStore {
	return &CreatorStore{pool: pool}
}

// Insert stores a new creator record. The username is unique per platform
// (case-insensitive); a conflicting insert returns an error since the
// pipeline dedups before inserting.
func (s *CreatorStore) Insert(ctx context.Context, rec *model.CreatorRecord) error {
	profileJSON, err := json.Marshal(rec.ProfileData)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	profilesJSON, err := json.Marshal(rec.Profiles)
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO creators
		   (id, platform, username, follower_count, engagement_rate, profile_data, profiles)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)`,
		rec.ID, rec.Platform, rec.Username, rec.FollowerCount, rec.EngagementRate,
		string(profileJSON), string(profilesJSON),
	)
	if err != nil {
		return fmt.Errorf("insert creator %s@%s: %w", rec.Username, rec.Platform, err)
	}
	return nil
}

// Get loads one creator by id.
func (s *CreatorStore) Get(ctx context.Context, id string) (*model.CreatorRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+creatorColumns+` FROM creators WHERE id = $1`, id)
	return scanCreator(row)
}

// FindByPlatformUsername looks a creator up by its case-insensitive handle
// on one platform.
func (s *CreatorStore) FindByPlatformUsername(ctx context.Context, platform model.Platform, username string) (*model.CreatorRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+creatorColumns+`
		 FROM creators
		 WHERE platform = $1 AND LOWER(username) = LOWER($2)`,
		platform, username)
	return scanCreator(row)
}

// ListByPlatform returns every creator whose primary platform matches.
func (s *CreatorStore) ListByPlatform(ctx context.Context, platform model.Platform) ([]model.CreatorRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+creatorColumns+` FROM creators WHERE platform = $1`, platform)
	if err != nil {
		return nil, fmt.Errorf("query creators by platform: %w", err)
	}
	return scanCreators(rows)
}

// ListByFollowerRange returns creators outside the excluded platform whose
// follower count falls within [min, max]. Used by the cross-platform
// duplicate heuristic.
func (s *CreatorStore) ListByFollowerRange(ctx context.Context, exclude model.Platform, min, max int64) ([]model.CreatorRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+creatorColumns+`
		 FROM creators
		 WHERE platform <> $1 AND follower_count BETWEEN $2 AND $3`,
		exclude, min, max)
	if err != nil {
		return nil, fmt.Errorf("query creators by follower range: %w", err)
	}
	return scanCreators(rows)
}

// List returns every creator. Used to preload the dedup cache.
func (s *CreatorStore) List(ctx context.Context) ([]model.CreatorRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+creatorColumns+` FROM creators`)
	if err != nil {
		return nil, fmt.Errorf("query creators: %w", err)
	}
	return scanCreators(rows)
}

// ListStale returns creators whose last sync predates cutoff (or who were
// never synced). The adaptive scheduler filters further by tier interval.
func (s *CreatorStore) ListStale(ctx context.Context, cutoff time.Time) ([]model.CreatorRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+creatorColumns+`
		 FROM creators
		 WHERE last_sync IS NULL OR last_sync < $1`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale creators: %w", err)
	}
	return scanCreators(rows)
}

// UpdateAggregated writes the aggregation output back onto the record.
// Last-writer-wins: there is no revision check, the sync pipeline
// serialises aggregation per creator.
func (s *CreatorStore) UpdateAggregated(ctx context.Context, id string, data *model.AggregatedData, followers int64, engagement float64) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal aggregated data: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE creators
		 SET aggregated_data = $1::jsonb,
		     follower_count  = $2,
		     engagement_rate = $3,
		     updated_at      = NOW()
		 WHERE id = $4`,
		string(dataJSON), followers, engagement, id)
	if err != nil {
		return fmt.Errorf("update aggregated data for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdateSyncState stamps last_sync after a completed sync.
func (s *CreatorStore) UpdateSyncState(ctx context.Context, id string, lastSync time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE creators SET last_sync = $1, updated_at = NOW() WHERE id = $2`,
		lastSync, id)
	if err != nil {
		return fmt.Errorf("update sync state for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdateMerged persists the surviving record of a duplicate merge.
func (s *CreatorStore) UpdateMerged(ctx context.Context, rec *model.CreatorRecord) error {
	profilesJSON, err := json.Marshal(rec.Profiles)
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE creators
		 SET profiles        = $1::jsonb,
		     follower_count  = $2,
		     engagement_rate = $3,
		     updated_at      = NOW()
		 WHERE id = $4`,
		string(profilesJSON), rec.FollowerCount, rec.EngagementRate, rec.ID)
	if err != nil {
		return fmt.Errorf("update merged creator %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a creator. Only the duplicate-merge path calls this.
func (s *CreatorStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM creators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete creator %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountsByPlatform returns creator counts per platform for the reporting
// surface.
func (s *CreatorStore) CountsByPlatform(ctx context.Context) (map[model.Platform]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT platform, COUNT(*) FROM creators GROUP BY platform`)
	if err != nil {
		return nil, fmt.Errorf("count creators by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Platform]int)
	for rows.Next() {
		var platform model.Platform
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("scan platform count: %w", err)
		}
		counts[platform] = count
	}
	return counts, rows.Err()
}

func scanCreator(row pgx.Row) (*model.CreatorRecord, error) {
	var rec model.CreatorRecord
	var profileJSON, profilesJSON []byte
	var aggregatedJSON []byte

	err := row.Scan(
		&rec.ID, &rec.Platform, &rec.Username, &rec.FollowerCount, &rec.EngagementRate,
		&profileJSON, &profilesJSON, &aggregatedJSON, &rec.LastSync,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan creator: %w", err)
	}

	if err := json.Unmarshal(profileJSON, &rec.ProfileData); err != nil {
		return nil, fmt.Errorf("unmarshal profile data: %w", err)
	}
	if err := json.Unmarshal(profilesJSON, &rec.Profiles); err != nil {
		return nil, fmt.Errorf("unmarshal profiles: %w", err)
	}
	if len(aggregatedJSON) > 0 {
		rec.Aggregated = &model.AggregatedData{}
		if err := json.Unmarshal(aggregatedJSON, rec.Aggregated); err != nil {
			return nil, fmt.Errorf("unmarshal aggregated data: %w", err)
		}
	}
	return &rec, nil
}

func scanCreators(rows pgx.Rows) ([]model.CreatorRecord, error) {
	defer rows.Close()

	var records []model.CreatorRecord
	for rows.Next() {
		rec, err := scanCreator(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
