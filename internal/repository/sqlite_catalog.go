package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var catalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		image_url     TEXT NOT NULL DEFAULT '',
		product_url   TEXT NOT NULL DEFAULT '',
		current_price REAL NOT NULL,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
	`CREATE TABLE IF NOT EXISTS product_stores (
		id         TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		store_name TEXT NOT NULL,
		price      REAL NOT NULL,
		store_url  TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		UNIQUE (product_id, store_name)
	)`,
	`CREATE TABLE IF NOT EXISTS tracked_products (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		product_id     TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		target_price   REAL NOT NULL,
		notify_on_drop INTEGER NOT NULL DEFAULT 1,
		created_at     INTEGER NOT NULL,
		UNIQUE (user_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracked_product ON tracked_products(product_id)`,
	`CREATE TABLE IF NOT EXISTS product_analysis (
		product_id       TEXT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		sentiment_score  REAL NOT NULL,
		recommendation   TEXT NOT NULL,
		analysis_summary TEXT NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id        TEXT NOT NULL,
		category       TEXT NOT NULL,
		interest_score REAL NOT NULL,
		updated_at     INTEGER NOT NULL,
		PRIMARY KEY (user_id, category)
	)`,
}

// Catalog owns the relational tables: products, store offers, tracking,
// analyses and preferences.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens the sqlite database at dsn and creates missing tables.
func OpenCatalog(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// sqlite has a single writer; one connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db}
	if err := c.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) init(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range catalogSchema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init catalog schema: %w", err)
		}
	}
	return nil
}

func (c *Catalog) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) Products() *SQLiteProducts { return &SQLiteProducts{db: c.db} }
func (c *Catalog) Stores() *SQLiteStores     { return &SQLiteStores{db: c.db} }
func (c *Catalog) Tracking() *SQLiteTracking { return &SQLiteTracking{db: c.db} }
func (c *Catalog) Analyses() *SQLiteAnalyses { return &SQLiteAnalyses{db: c.db} }

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ---------------------------------------------------------------- products

const productColumns = "id, name, description, category, image_url, product_url, current_price, created_at, updated_at"

// SQLiteProducts implements ProductRepository.
type SQLiteProducts struct {
	db *sql.DB
}

var _ domrepo.ProductRepository = (*SQLiteProducts)(nil)

func scanProduct(r rowScanner) (models.Product, error) {
	var (
		p                models.Product
		created, updated int64
	)
	err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL, &p.ProductURL,
		&p.CurrentPrice, &created, &updated)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, err
}

func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + s + "%"
}

func (r *SQLiteProducts) List(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(s), likePattern(s))
	}
	if f.Category != "" && f.Category != "all" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	q := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name ASC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteProducts) Get(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Similar returns products of the same category, excluding p itself.
func (r *SQLiteProducts) Similar(ctx context.Context, p *models.Product, limit int) ([]models.Product, error) {
	out := make([]models.Product, 0, limit)
	if p == nil || p.Category == "" || limit <= 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE category = ? AND id <> ? ORDER BY name ASC LIMIT ?",
		p.Category, p.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("similar products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		sp, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (r *SQLiteProducts) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces a product. A missing id gets a fresh uuid.
func (r *SQLiteProducts) Upsert(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			image_url = excluded.image_url,
			product_url = excluded.product_url,
			current_price = excluded.current_price,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL, p.ProductURL, p.CurrentPrice,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *SQLiteProducts) UpdatePrice(ctx context.Context, id string, price float64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET current_price = ?, updated_at = ? WHERE id = ?",
		price, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}

// ------------------------------------------------------------ store offers

// SQLiteStores implements StoreRepository.
type SQLiteStores struct {
	db *sql.DB
}

var _ domrepo.StoreRepository = (*SQLiteStores)(nil)

func (r *SQLiteStores) ListByProduct(ctx context.Context, productID string) ([]models.StoreOffer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, product_id, store_name, price, store_url, updated_at
		FROM product_stores WHERE product_id = ? ORDER BY price ASC, store_name ASC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()
	out := make([]models.StoreOffer, 0)
	for rows.Next() {
		var (
			o       models.StoreOffer
			updated int64
		)
		if err := rows.Scan(&o.ID, &o.ProductID, &o.StoreName, &o.Price, &o.StoreURL, &updated); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		o.UpdatedAt = fromMillis(updated)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Upsert keeps one offer per (product, store).
func (r *SQLiteStores) Upsert(ctx context.Context, o *models.StoreOffer) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO product_stores (id, product_id, store_name, price, store_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, store_name) DO UPDATE SET
			price = excluded.price,
			store_url = excluded.store_url,
			updated_at = excluded.updated_at`,
		o.ID, o.ProductID, o.StoreName, o.Price, o.StoreURL, toMillis(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert store: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------- tracking

// SQLiteTracking implements TrackingRepository.
type SQLiteTracking struct {
	db *sql.DB
}

var _ domrepo.TrackingRepository = (*SQLiteTracking)(nil)

const trackedColumns = "id, user_id, product_id, target_price, notify_on_drop, created_at"

func scanTracked(r rowScanner, extra ...any) (models.TrackedProduct, error) {
	var (
		t       models.TrackedProduct
		created int64
	)
	dest := append([]any{&t.ID, &t.UserID, &t.ProductID, &t.TargetPrice, &t.NotifyOnDrop, &created}, extra...)
	err := r.Scan(dest...)
	t.CreatedAt = fromMillis(created)
	return t, err
}

func (r *SQLiteTracking) Create(ctx context.Context, t *models.TrackedProduct) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, "INSERT INTO tracked_products ("+trackedColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		t.ID, t.UserID, t.ProductID, t.TargetPrice, t.NotifyOnDrop, toMillis(t.CreatedAt))
	if isUniqueViolation(err) {
		return domrepo.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create tracked product: %w", err)
	}
	return nil
}

// Delete removes a tracked row owned by userID.
func (r *SQLiteTracking) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tracked_products WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete tracked product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}

func (r *SQLiteTracking) Find(ctx context.Context, userID, productID string) (*models.TrackedProduct, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+trackedColumns+" FROM tracked_products WHERE user_id = ? AND product_id = ?", userID, productID)
	t, err := scanTracked(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tracked product: %w", err)
	}
	return &t, nil
}

// ListByUser returns the user's rows joined with their products, newest first.
func (r *SQLiteTracking) ListByUser(ctx context.Context, userID string) ([]models.TrackedItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT t.id, t.user_id, t.product_id, t.target_price, t.notify_on_drop, t.created_at,
			p.id, p.name, p.description, p.category, p.image_url, p.product_url, p.current_price, p.created_at, p.updated_at
		FROM tracked_products t JOIN products p ON p.id = t.product_id
		WHERE t.user_id = ? ORDER BY t.created_at DESC, t.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tracked products: %w", err)
	}
	defer rows.Close()

	out := make([]models.TrackedItem, 0)
	for rows.Next() {
		var (
			p                models.Product
			created, updated int64
		)
		t, err := scanTracked(rows, &p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL, &p.ProductURL,
			&p.CurrentPrice, &created, &updated)
		if err != nil {
			return nil, fmt.Errorf("scan tracked product: %w", err)
		}
		p.CreatedAt = fromMillis(created)
		p.UpdatedAt = fromMillis(updated)
		out = append(out, models.TrackedItem{TrackedProduct: t, Product: p})
	}
	return out, rows.Err()
}

func (r *SQLiteTracking) ListWatchers(ctx context.Context, productID string) ([]models.TrackedProduct, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+trackedColumns+" FROM tracked_products WHERE product_id = ? ORDER BY created_at ASC", productID)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	defer rows.Close()
	out := make([]models.TrackedProduct, 0)
	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteTracking) UpsertPreference(ctx context.Context, p *models.UserPreference) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO user_preferences (user_id, category, interest_score, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			interest_score = excluded.interest_score,
			updated_at = excluded.updated_at`,
		p.UserID, p.Category, p.InterestScore, toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------- analyses

// SQLiteAnalyses implements AnalysisRepository.
type SQLiteAnalyses struct {
	db *sql.DB
}

var _ domrepo.AnalysisRepository = (*SQLiteAnalyses)(nil)

func (r *SQLiteAnalyses) Get(ctx context.Context, productID string) (*models.ProductAnalysis, error) {
	var (
		a       models.ProductAnalysis
		updated int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT product_id, sentiment_score, recommendation, analysis_summary, updated_at
		FROM product_analysis WHERE product_id = ?`, productID).
		Scan(&a.ProductID, &a.SentimentScore, &a.Recommendation, &a.AnalysisSummary, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func (r *SQLiteAnalyses) Upsert(ctx context.Context, a *models.ProductAnalysis) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO product_analysis (product_id, sentiment_score, recommendation, analysis_summary, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			sentiment_score = excluded.sentiment_score,
			recommendation = excluded.recommendation,
			analysis_summary = excluded.analysis_summary,
			updated_at = excluded.updated_at`,
		a.ProductID, a.SentimentScore, a.Recommendation, a.AnalysisSummary, toMillis(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}
