package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/presse/dbopen"
)

// Store is the recipe persistence layer over an SQLite database opened
// with dbopen and the package Schema applied.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an already-opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Insert adds a new recipe. The domain is normalized before storage; a
// second recipe for the same normalized domain fails with ErrDuplicate.
func (s *Store) Insert(ctx context.Context, r *Recipe) error {
	domain, err := NormalizeDomain(r.Domain)
	if err != nil {
		return err
	}
	r.Domain = domain

	if err := validateRecipeInput(r); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	if r.ID == "" {
		r.ID = newID()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.IsActive = true
	if r.Confidence == 0 {
		r.Confidence = Confidence(r.SuccessCount, r.UsageCount, r.IsVerified)
	}

	selectorsJSON, listingJSON, cleaningJSON, err := marshalRules(r)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO recipes (id, domain, name, is_active, selectors_json, listing_json,
		cleaning_json, needs_browser, ocr_capable, confidence, is_verified,
		usage_count, success_count, failure_count, last_error, last_success,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Domain, r.Name, boolInt(r.IsActive), selectorsJSON, listingJSON,
		cleaningJSON, boolInt(r.NeedsBrowser), boolInt(r.OCRCapable), r.Confidence,
		boolInt(r.IsVerified), r.UsageCount, r.SuccessCount, r.FailureCount,
		r.LastError, nullMs(r.LastSuccess), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicate, domain)
		}
		return fmt.Errorf("recipe: insert: %w", err)
	}
	return nil
}

// GetByDomain returns the active recipe for a normalized domain, or nil.
func (s *Store) GetByDomain(ctx context.Context, domain string) (*Recipe, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	row := s.DB.QueryRowContext(ctx, selectRecipe+` WHERE domain = ? AND is_active = 1`, domain)
	return scanRecipe(row)
}

// GetByID returns a recipe by id, active or not, or nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Recipe, error) {
	row := s.DB.QueryRowContext(ctx, selectRecipe+` WHERE id = ?`, id)
	return scanRecipe(row)
}

// List returns recipes matching the filters, ordered by resolver priority
// (is_verified desc, confidence desc, success_count desc). Page numbers
// start at 1.
func (s *Store) List(ctx context.Context, f Filters, page, limit int) ([]*Recipe, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	q := selectRecipe + ` WHERE 1=1`
	var args []any
	if f.Domain != "" {
		q += ` AND domain LIKE ?`
		args = append(args, "%"+strings.ToLower(f.Domain)+"%")
	}
	if f.OnlyVerified {
		q += ` AND is_verified = 1`
	}
	if f.OnlyActive {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY is_verified DESC, confidence DESC, success_count DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("recipe: list: %w", err)
	}
	defer rows.Close()

	var out []*Recipe
	for rows.Next() {
		r, err := scanRecipeRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateStats records one use of a recipe and recomputes its confidence.
// Called on success and failure alike so confidence tracks real outcomes.
func (s *Store) UpdateStats(ctx context.Context, id string, success bool, errMsg string) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var res sql.Result
		var err error
		if success {
			res, err = tx.ExecContext(ctx,
				`UPDATE recipes SET usage_count = usage_count + 1,
				success_count = success_count + 1,
				last_success = ?, last_error = '', updated_at = ?
				WHERE id = ?`, now, now, id)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE recipes SET usage_count = usage_count + 1,
				failure_count = failure_count + 1,
				last_error = ?, updated_at = ?
				WHERE id = ?`, truncateError(errMsg), now, id)
		}
		if err != nil {
			return fmt.Errorf("recipe: update stats: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil // recipe vanished; nothing to score
		}

		var successCount, usageCount int64
		var verified int
		err = tx.QueryRowContext(ctx,
			`SELECT success_count, usage_count, is_verified FROM recipes WHERE id = ?`, id).
			Scan(&successCount, &usageCount, &verified)
		if err != nil {
			return fmt.Errorf("recipe: read counters: %w", err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE recipes SET confidence = ? WHERE id = ?`,
			Confidence(successCount, usageCount, verified == 1), id)
		return err
	})
}

// Confirm records a distinct-user confirmation. Once confirmationsRequired
// distinct users have confirmed, the recipe becomes verified and its
// confidence floors at 0.8. Returns whether the recipe is now verified.
func (s *Store) Confirm(ctx context.Context, recipeID, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	now := time.Now().UnixMilli()

	var verified bool
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO recipe_confirmations (recipe_id, user_id, confirmed_at)
			VALUES (?, ?, ?)`, recipeID, userID, now)
		if err != nil {
			return fmt.Errorf("recipe: confirm: %w", err)
		}

		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM recipe_confirmations WHERE recipe_id = ?`, recipeID).
			Scan(&n); err != nil {
			return err
		}
		if n < confirmationsRequired {
			return nil
		}

		verified = true
		_, err = tx.ExecContext(ctx,
			`UPDATE recipes SET is_verified = 1, confidence = MAX(confidence, 0.8),
			updated_at = ? WHERE id = ?`, now, recipeID)
		return err
	})
	return verified, err
}

// Disable soft-deletes a recipe. The row and its history remain.
func (s *Store) Disable(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE recipes SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id)
	return err
}

// LogEntry is one row of the extraction log.
type LogEntry struct {
	ID           string `json:"id"`
	RecipeID     string `json:"recipe_id,omitempty"`
	URL          string `json:"url"`
	Strategy     string `json:"strategy,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	LoggedAt     int64  `json:"logged_at"`
}

// LogExtraction appends one extraction outcome to the log.
func (s *Store) LogExtraction(ctx context.Context, e *LogEntry) error {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.LoggedAt == 0 {
		e.LoggedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO extraction_log (id, recipe_id, url, strategy, status,
		error_message, duration_ms, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RecipeID, e.URL, e.Strategy, e.Status,
		truncateError(e.ErrorMessage), e.DurationMs, e.LoggedAt)
	return err
}

// RecentLog returns the newest log entries for a recipe id ("" = all).
func (s *Store) RecentLog(ctx context.Context, recipeID string, limit int) ([]*LogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, recipe_id, url, strategy, status, error_message, duration_ms, logged_at
		FROM extraction_log`
	var args []any
	if recipeID != "" {
		q += ` WHERE recipe_id = ?`
		args = append(args, recipeID)
	}
	q += ` ORDER BY logged_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.RecipeID, &e.URL, &e.Strategy, &e.Status,
			&e.ErrorMessage, &e.DurationMs, &e.LoggedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

const selectRecipe = `SELECT id, domain, name, is_active, selectors_json, listing_json,
	cleaning_json, needs_browser, ocr_capable, confidence, is_verified,
	usage_count, success_count, failure_count, last_error, last_success,
	created_at, updated_at FROM recipes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row *sql.Row) (*Recipe, error) {
	r, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func scanRecipeRows(rows *sql.Rows) (*Recipe, error) {
	return scanInto(rows)
}

func scanInto(sc rowScanner) (*Recipe, error) {
	var r Recipe
	var active, needsBrowser, ocrCapable, verified int
	var selectorsJSON, listingJSON, cleaningJSON string
	var lastSuccess sql.NullInt64

	err := sc.Scan(&r.ID, &r.Domain, &r.Name, &active, &selectorsJSON, &listingJSON,
		&cleaningJSON, &needsBrowser, &ocrCapable, &r.Confidence, &verified,
		&r.UsageCount, &r.SuccessCount, &r.FailureCount, &r.LastError, &lastSuccess,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("recipe: scan: %w", err)
	}

	r.IsActive = active != 0
	r.NeedsBrowser = needsBrowser != 0
	r.OCRCapable = ocrCapable != 0
	r.IsVerified = verified != 0
	if lastSuccess.Valid {
		r.LastSuccess = lastSuccess.Int64
	}

	if err := json.Unmarshal([]byte(selectorsJSON), &r.Selectors); err != nil {
		return nil, fmt.Errorf("recipe: selectors for %s: %w", r.Domain, err)
	}
	if listingJSON != "" && listingJSON != "{}" {
		if err := json.Unmarshal([]byte(listingJSON), &r.ListingSelectors); err != nil {
			return nil, fmt.Errorf("recipe: listing selectors for %s: %w", r.Domain, err)
		}
	}
	if cleaningJSON != "" && cleaningJSON != "[]" {
		if err := json.Unmarshal([]byte(cleaningJSON), &r.CleaningRules); err != nil {
			return nil, fmt.Errorf("recipe: cleaning rules for %s: %w", r.Domain, err)
		}
		if err := r.CompileCleaningRules(); err != nil {
			return nil, fmt.Errorf("recipe: cleaning rules for %s: %w", r.Domain, err)
		}
	}

	return &r, nil
}

func marshalRules(r *Recipe) (selectors, listing, cleaning string, err error) {
	b, err := json.Marshal(r.Selectors)
	if err != nil {
		return "", "", "", fmt.Errorf("recipe: marshal selectors: %w", err)
	}
	selectors = string(b)

	listing = "{}"
	if !r.ListingSelectors.IsZero() {
		b, err = json.Marshal(r.ListingSelectors)
		if err != nil {
			return "", "", "", fmt.Errorf("recipe: marshal listing: %w", err)
		}
		listing = string(b)
	}

	cleaning = "[]"
	if len(r.CleaningRules) > 0 {
		b, err = json.Marshal(r.CleaningRules)
		if err != nil {
			return "", "", "", fmt.Errorf("recipe: marshal cleaning rules: %w", err)
		}
		cleaning = string(b)
	}
	return selectors, listing, cleaning, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullMs(ms int64) any {
	if ms == 0 {
		return nil
	}
	return ms
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
