package storycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/internal/repositories"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var storyColumns = []string{
	"id", "name", "title", "details", "location", "email", "date",
	"created_at", "updated_at", "visible", "lat", "lng", "media",
	"user_id", "hide_user", "populated_user",
}

type Pgx struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewPgx(pg *pgxpool.Pool, logger logger.Logger) *Pgx {
	return &Pgx{
		pg:     pg,
		logger: logger.WithComponent("StoryCacheRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*domain.Story, error) {
	var story domain.Story
	var media []byte

	err := row.Scan(
		&story.ID,
		&story.Name,
		&story.Title,
		&story.Details,
		&story.Location,
		&story.Email,
		&story.Date,
		&story.CreatedAt,
		&story.UpdatedAt,
		&story.Visible,
		&story.Lat,
		&story.Lng,
		&media,
		&story.UserID,
		&story.HideUser,
		&story.PopulatedUser,
	)
	if err != nil {
		return nil, err
	}

	if media != nil {
		if err := json.Unmarshal(media, &story.Media); err != nil {
			return nil, fmt.Errorf("failed to decode cached media for story %d: %w", story.ID, err)
		}
	}

	return &story, nil
}

func collectStories(rows pgx.Rows) ([]domain.Story, error) {
	defer rows.Close()

	var stories []domain.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cached story row: %w", err)
		}
		stories = append(stories, *story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached story rows: %w", err)
	}
	return stories, nil
}

func freshCutoff() time.Time {
	return time.Now().Add(-TTL)
}

// Get returns the cached story, treating expired rows as absent.
func (p *Pgx) Get(ctx context.Context, id int) (*domain.Story, error) {
	query, args, err := repositories.SqBuilder.
		Select(storyColumns...).
		From("story_cache").
		Where(sq.Eq{"id": id}).
		Where(sq.Gt{"created_at": freshCutoff()}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	story, err := scanStory(p.pg.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cached story: %w", err)
	}
	return story, nil
}

// Upsert replaces any prior record for the same id, last write wins.
func (p *Pgx) Upsert(ctx context.Context, story domain.Story) error {
	var media []byte
	if story.Media != nil {
		raw, err := json.Marshal(story.Media)
		if err != nil {
			return fmt.Errorf("failed to encode media for story %d: %w", story.ID, err)
		}
		media = raw
	}

	// The TTL anchor must never be null; a remote row without created_at
	// still has to expire.
	createdAt := time.Now()
	if story.CreatedAt != nil {
		createdAt = *story.CreatedAt
	}

	query, args, err := repositories.SqBuilder.
		Insert("story_cache").
		Columns(storyColumns...).
		Values(
			story.ID,
			story.Name,
			story.Title,
			story.Details,
			story.Location,
			story.Email,
			story.Date,
			createdAt,
			story.UpdatedAt,
			story.Visible,
			story.Lat,
			story.Lng,
			media,
			story.UserID,
			story.HideUser,
			story.PopulatedUser,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			details = EXCLUDED.details,
			location = EXCLUDED.location,
			email = EXCLUDED.email,
			date = EXCLUDED.date,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			visible = EXCLUDED.visible,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			media = EXCLUDED.media,
			user_id = EXCLUDED.user_id,
			hide_user = EXCLUDED.hide_user,
			populated_user = EXCLUDED.populated_user`).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := p.pg.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert cached story %d: %w", story.ID, err)
	}
	return nil
}

func (p *Pgx) GetAllByOwner(ctx context.Context, userID string) ([]domain.Story, error) {
	query, args, err := repositories.SqBuilder.
		Select(storyColumns...).
		From("story_cache").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Gt{"created_at": freshCutoff()}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached stories by owner: %w", err)
	}
	return collectStories(rows)
}

// DeleteByIDAndOwner removes a story only when the owner matches; a caller
// without a matching user_id gets not-found even when the id exists.
func (p *Pgx) DeleteByIDAndOwner(ctx context.Context, id int, userID string) (*domain.Story, error) {
	query, args, err := repositories.SqBuilder.
		Delete("story_cache").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	story, err := scanStory(p.pg.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete cached story: %w", err)
	}
	return story, nil
}

func (p *Pgx) DeleteAllByOwner(ctx context.Context, userID string) ([]domain.Story, error) {
	query, args, err := repositories.SqBuilder.
		Delete("story_cache").
		Where(sq.Eq{"user_id": userID}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete cached stories by owner: %w", err)
	}
	return collectStories(rows)
}

// Clear wipes the whole cache ahead of a bulk repopulation.
func (p *Pgx) Clear(ctx context.Context) error {
	if _, err := p.pg.Exec(ctx, "DELETE FROM story_cache"); err != nil {
		return fmt.Errorf("failed to clear story cache: %w", err)
	}
	return nil
}

// DeleteExpired physically removes rows past the TTL.
func (p *Pgx) DeleteExpired(ctx context.Context) (int64, error) {
	query, args, err := repositories.SqBuilder.
		Delete("story_cache").
		Where(sq.LtOrEq{"created_at": freshCutoff()}).
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	tag, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cached stories: %w", err)
	}
	return tag.RowsAffected(), nil
}

func joinColumns() string {
	out := storyColumns[0]
	for _, c := range storyColumns[1:] {
		out += ", " + c
	}
	return out
}
