package repository

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// MediaRepository provides persistence helpers for catalog entries.
type MediaRepository struct {
	pool *pgxpool.Pool
}

const mediaColumns = `
    id,
    title,
    slug,
    type,
    description,
    category_id,
    category_name,
    year,
    image_url,
    status,
    created_by,
    approved_by,
    approved_at,
    rating_count,
    rating_avg,
    likes,
    dislikes,
    weighted_score,
    created_at,
    updated_at
`

// MediaSuggestParams bundles the fields of a user suggestion.
type MediaSuggestParams struct {
	Title       string
	Type        domain.MediaType
	Description string
	Category    domain.Category
	Year        *int
	ImageURL    *string
	CreatedBy   string
}

// MediaSort names the supported list orderings.
type MediaSort string

const (
	MediaSortRecent MediaSort = "recent"
	MediaSortRating MediaSort = "rating"
	MediaSortScore  MediaSort = "score"
)

// Valid reports whether s is a known ordering.
func (s MediaSort) Valid() bool {
	return s == MediaSortRecent || s == MediaSortRating || s == MediaSortScore
}

// MediaListFilters encapsulates search and pagination options. Cursor is
// honoured only for MediaSortRecent.
type MediaListFilters struct {
	Status *domain.MediaStatus
	Type   *domain.MediaType
	Query  *string
	Sort   MediaSort
	Limit  int
	Cursor *Cursor
}

// MediaListResult returns the paginated payload.
type MediaListResult struct {
	Items      []domain.Media
	NextCursor *string
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the catalog slug from title, year and type.
func Slug(title string, year *int, mediaType domain.MediaType) string {
	parts := []string{title}
	if year != nil {
		parts = append(parts, strconv.Itoa(*year))
	}
	parts = append(parts, string(mediaType))
	base := slugUnsafe.ReplaceAllString(strings.ToLower(strings.Join(parts, "-")), "-")
	return strings.Trim(base, "-")
}

// Suggest inserts a pending media entry. A title already registered for the
// same year and type yields domain.ErrConflict.
func (r *MediaRepository) Suggest(ctx context.Context, params MediaSuggestParams) (domain.Media, error) {
	title := strings.TrimSpace(params.Title)
	categoryName := strings.TrimSpace(params.Category.Name)
	if categoryName == "" {
		categoryName = "Uncategorized"
	}

	query := fmt.Sprintf(`
        INSERT INTO media (title, title_lc, slug, type, description, category_id, category_name, year, image_url, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING %s
    `, mediaColumns)

	row := r.pool.QueryRow(ctx, query,
		title,
		strings.ToLower(title),
		Slug(title, params.Year, params.Type),
		string(params.Type),
		params.Description,
		params.Category.ID,
		categoryName,
		params.Year,
		params.ImageURL,
		params.CreatedBy,
	)
	media, err := scanMedia(row)
	if err != nil {
		return domain.Media{}, classify(err, "suggest media")
	}
	return media, nil
}

// GetByID fetches a media entry by its identifier.
func (r *MediaRepository) GetByID(ctx context.Context, id string) (domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE id = $1`, mediaColumns)
	media, err := scanMedia(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Media{}, classify(err, "media "+id)
	}
	return media, nil
}

// SetStatus moves a media entry through moderation. Approval records the
// moderator and time; any other status clears them.
func (r *MediaRepository) SetStatus(ctx context.Context, id string, status domain.MediaStatus, moderatorID string) (domain.Media, error) {
	query := fmt.Sprintf(`
        UPDATE media
        SET status = $2,
            approved_by = CASE WHEN $2 = 'approved' THEN $3 ELSE NULL END,
            approved_at = CASE WHEN $2 = 'approved' THEN now() ELSE NULL END,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, mediaColumns)

	media, err := scanMedia(r.pool.QueryRow(ctx, query, id, string(status), moderatorID))
	if err != nil {
		return domain.Media{}, classify(err, "media "+id)
	}
	return media, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes q match literally inside an ILIKE pattern, whose default
// escape character is backslash.
func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}

// List returns media that match the provided filters.
func (r *MediaRepository) List(ctx context.Context, filters MediaListFilters) (MediaListResult, error) {
	filters.Limit = clampLimit(filters.Limit)
	if !filters.Sort.Valid() {
		filters.Sort = MediaSortRecent
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != nil {
		where = append(where, fmt.Sprintf("status = %s", arg(string(*filters.Status))))
	}
	if filters.Type != nil {
		where = append(where, fmt.Sprintf("type = %s", arg(string(*filters.Type))))
	}
	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + escapeLike(strings.TrimSpace(*filters.Query)) + "%"
		where = append(where, fmt.Sprintf("(title ILIKE %s OR category_name ILIKE %s)", arg(q), arg(q)))
	}
	if filters.Sort == MediaSortRecent && filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(mediaColumns)
	queryBuilder.WriteString(" FROM media")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	switch filters.Sort {
	case MediaSortRating:
		queryBuilder.WriteString(" ORDER BY rating_avg DESC, rating_count DESC, created_at DESC, id DESC")
	case MediaSortScore:
		queryBuilder.WriteString(" ORDER BY weighted_score DESC, created_at DESC, id DESC")
	default:
		queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return MediaListResult{}, classify(err, "list media")
	}
	defer rows.Close()

	items := make([]domain.Media, 0)
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return MediaListResult{}, classify(err, "list media")
		}
		items = append(items, media)
	}
	if err := rows.Err(); err != nil {
		return MediaListResult{}, classify(err, "list media")
	}

	var next *string
	if filters.Sort == MediaSortRecent && len(items) > 0 {
		last := items[len(items)-1]
		next, err = nextCursor(len(items), filters.Limit, last.CreatedAt, last.ID)
		if err != nil {
			return MediaListResult{}, err
		}
	}
	return MediaListResult{Items: items, NextCursor: next}, nil
}

func scanMedia(row pgx.Row) (domain.Media, error) {
	var (
		media      domain.Media
		mediaType  string
		status     string
		categoryID *string
		year       *int32
		approvedAt *time.Time
	)

	err := row.Scan(
		&media.ID,
		&media.Title,
		&media.Slug,
		&mediaType,
		&media.Description,
		&categoryID,
		&media.Category.Name,
		&year,
		&media.ImageURL,
		&status,
		&media.CreatedBy,
		&media.ApprovedBy,
		&approvedAt,
		&media.Metrics.RatingCount,
		&media.Metrics.RatingAvg,
		&media.Metrics.Likes,
		&media.Metrics.Dislikes,
		&media.Metrics.WeightedScore,
		&media.CreatedAt,
		&media.UpdatedAt,
	)
	if err != nil {
		return domain.Media{}, err
	}

	media.Type = domain.MediaType(mediaType)
	media.Status = domain.MediaStatus(status)
	media.Category.ID = categoryID
	if year != nil {
		y := int(*year)
		media.Year = &y
	}
	media.ApprovedAt = approvedAt
	return media, nil
}
