/*
Package sqlite provides the SQLite implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (inventory.Store,
  inventory.AnalyticsStore, inventory.HistoryStore) over an embedded
  SQLite file. This is the only package that knows SQL.

KEY TABLES:
  productos:           Catalog rows with running totals and valuations
  entradas:            Stock inflow movements
  salidas:             Stock outflow movements
  historial_reportes:  Metadata of exported period reports

SCHEMA NOTES:
  - Prices and valuations are stored as TEXT and parsed with
    shopspring/decimal; REAL would lose cents on aggregation.
  - Movement timestamps are TEXT in "2006-01-02 15:04:05" form so that
    lexicographic ORDER BY is chronological ORDER BY.
  - Databases created by earlier releases lack the utilidad column on
    productos; migrate() adds it when missing.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of a WAL-mode connection:
  multiple readers do not block, a single writer at a time.

USAGE:
  store, err := sqlite.New("./data/inventario.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := inventory.NewLedger(store, inventory.Policy{})

SEE ALSO:
  - inventory/store.go: interface definitions
  - inventory/ledger.go: mutation engine composing WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/multimuebles/inventario/inventory"
)

// reportDateLayout matches the historical display format persisted in
// historial_reportes.fecha. It does not sort lexicographically, so the
// history listing orders by id instead.
const reportDateLayout = "02/01/2006 15:04:05"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema and repairs databases written by
// earlier releases.
func (s *Store) migrate() error {
	schema := `
	-- Catalog (one row per product, totals maintained by the ledger)
	CREATE TABLE IF NOT EXISTS productos (
		codigo TEXT PRIMARY KEY,
		descripcion TEXT NOT NULL,
		entradas_totales INTEGER NOT NULL DEFAULT 0,
		salidas_totales INTEGER NOT NULL DEFAULT 0,
		stock INTEGER NOT NULL DEFAULT 0,
		precio_compra TEXT NOT NULL DEFAULT '0',
		precio_venta TEXT NOT NULL DEFAULT '0',
		valor_total TEXT NOT NULL DEFAULT '0',
		utilidad TEXT NOT NULL DEFAULT '0'
	);

	-- Inflow movements
	CREATE TABLE IF NOT EXISTS entradas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		codigo TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		cantidad INTEGER NOT NULL,
		fecha TEXT NOT NULL
	);

	-- Outflow movements
	CREATE TABLE IF NOT EXISTS salidas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		codigo TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		cantidad INTEGER NOT NULL,
		fecha TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entradas_codigo ON entradas(codigo);
	CREATE INDEX IF NOT EXISTS idx_entradas_fecha ON entradas(fecha);
	CREATE INDEX IF NOT EXISTS idx_salidas_codigo ON salidas(codigo);
	CREATE INDEX IF NOT EXISTS idx_salidas_fecha ON salidas(fecha);

	-- Exported report metadata (files themselves live on disk)
	CREATE TABLE IF NOT EXISTS historial_reportes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fecha TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		temporalidad TEXT NOT NULL,
		file_path TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases from before the utility tracking release lack this column.
	hasUtilidad, err := s.columnExists("productos", "utilidad")
	if err != nil {
		return err
	}
	if !hasUtilidad {
		if _, err := s.db.Exec(`ALTER TABLE productos ADD COLUMN utilidad TEXT NOT NULL DEFAULT '0'`); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// querier is satisfied by both *sql.DB and *sql.Tx. The unexported
// row-level helpers take a querier so WithTx can reuse them verbatim.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tableFor maps a movement direction onto its relation.
func tableFor(kind inventory.MovementKind) (string, error) {
	switch kind {
	case inventory.Inflow:
		return "entradas", nil
	case inventory.Outflow:
		return "salidas", nil
	default:
		return "", &inventory.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown movement kind %q", kind)}
	}
}

// =============================================================================
// PRODUCT STORE (inventory.Store interface)
// =============================================================================

// GetProduct returns the product with the given code, or nil when absent.
func (s *Store) GetProduct(ctx context.Context, code string) (*inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getProduct(ctx, s.db, code)
}

func (s *Store) getProduct(ctx context.Context, q querier, code string) (*inventory.Product, error) {
	row := q.QueryRowContext(ctx, `
		SELECT codigo, descripcion, entradas_totales, salidas_totales, stock,
		       precio_compra, precio_venta, valor_total, utilidad
		FROM productos
		WHERE codigo = ?
	`, code)

	p, err := scanProduct(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &inventory.StorageError{Op: "get product", Err: err}
	}
	return p, nil
}

// InsertProduct adds a new catalog row.
func (s *Store) InsertProduct(ctx context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertProduct(ctx, s.db, p)
}

func (s *Store) insertProduct(ctx context.Context, q querier, p inventory.Product) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO productos
		(codigo, descripcion, entradas_totales, salidas_totales, stock,
		 precio_compra, precio_venta, valor_total, utilidad)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Code, p.Description, p.TotalInflows, p.TotalOutflows, p.Stock,
		p.PurchasePrice.String(), p.SalePrice.String(),
		p.TotalValue.String(), p.Utility.String(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &inventory.DuplicateKeyError{Code: p.Code}
		}
		return &inventory.StorageError{Op: "insert product", Err: err}
	}
	return nil
}

// UpdateProduct overwrites every mutable column of the catalog row.
func (s *Store) UpdateProduct(ctx context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateProduct(ctx, s.db, p)
}

func (s *Store) updateProduct(ctx context.Context, q querier, p inventory.Product) error {
	_, err := q.ExecContext(ctx, `
		UPDATE productos
		SET descripcion = ?, entradas_totales = ?, salidas_totales = ?, stock = ?,
		    precio_compra = ?, precio_venta = ?, valor_total = ?, utilidad = ?
		WHERE codigo = ?
	`,
		p.Description, p.TotalInflows, p.TotalOutflows, p.Stock,
		p.PurchasePrice.String(), p.SalePrice.String(),
		p.TotalValue.String(), p.Utility.String(),
		p.Code,
	)
	if err != nil {
		return &inventory.StorageError{Op: "update product", Err: err}
	}
	return nil
}

// DeleteProduct removes the catalog row. Movement rows are left in place.
func (s *Store) DeleteProduct(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteProduct(ctx, s.db, code)
}

func (s *Store) deleteProduct(ctx context.Context, q querier, code string) (bool, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM productos WHERE codigo = ?", code)
	if err != nil {
		return false, &inventory.StorageError{Op: "delete product", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &inventory.StorageError{Op: "delete product", Err: err}
	}
	return n > 0, nil
}

// ListProducts returns the whole catalog ordered by code.
func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listProducts(ctx, s.db)
}

func (s *Store) listProducts(ctx context.Context, q querier) ([]inventory.Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT codigo, descripcion, entradas_totales, salidas_totales, stock,
		       precio_compra, precio_venta, valor_total, utilidad
		FROM productos
		ORDER BY codigo
	`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list products", Err: err}
	}
	defer rows.Close()

	var products []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, &inventory.StorageError{Op: "list products", Err: err}
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func scanProduct(scan func(dest ...any) error) (*inventory.Product, error) {
	var (
		p                                   inventory.Product
		purchase, sale, totalValue, utility string
	)
	err := scan(
		&p.Code, &p.Description, &p.TotalInflows, &p.TotalOutflows, &p.Stock,
		&purchase, &sale, &totalValue, &utility,
	)
	if err != nil {
		return nil, err
	}
	p.PurchasePrice = parseDecimal(purchase)
	p.SalePrice = parseDecimal(sale)
	p.TotalValue = parseDecimal(totalValue)
	p.Utility = parseDecimal(utility)
	return &p, nil
}

// =============================================================================
// MOVEMENT STORE (inventory.Store interface)
// =============================================================================

// InsertMovement adds a movement row to the relation of its kind.
func (s *Store) InsertMovement(ctx context.Context, m inventory.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertMovement(ctx, s.db, m)
}

func (s *Store) insertMovement(ctx context.Context, q querier, m inventory.Movement) error {
	table, err := tableFor(m.Kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (codigo, descripcion, cantidad, fecha)
		VALUES (?, ?, ?, ?)
	`, table)

	_, err = q.ExecContext(ctx, query,
		m.Code, m.Description, m.Quantity,
		m.Date.Format(inventory.TimestampLayout),
	)
	if err != nil {
		return &inventory.StorageError{Op: "insert " + string(m.Kind), Err: err}
	}
	return nil
}

// GetMovement returns the movement with the given id, or nil when absent.
func (s *Store) GetMovement(ctx context.Context, kind inventory.MovementKind, id int64) (*inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getMovement(ctx, s.db, kind, id)
}

func (s *Store) getMovement(ctx context.Context, q querier, kind inventory.MovementKind, id int64) (*inventory.Movement, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, codigo, descripcion, cantidad, fecha FROM %s WHERE id = ?
	`, table)

	m, err := scanMovement(q.QueryRowContext(ctx, query, id).Scan, kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &inventory.StorageError{Op: "get " + string(kind), Err: err}
	}
	return m, nil
}

// GetMovementAt returns the newest movement of a product at an exact
// timestamp, or nil when absent.
func (s *Store) GetMovementAt(ctx context.Context, kind inventory.MovementKind, code string, at time.Time) (*inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getMovementAt(ctx, s.db, kind, code, at)
}

func (s *Store) getMovementAt(ctx context.Context, q querier, kind inventory.MovementKind, code string, at time.Time) (*inventory.Movement, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, codigo, descripcion, cantidad, fecha FROM %s
		WHERE codigo = ? AND fecha = ?
		ORDER BY id DESC
		LIMIT 1
	`, table)

	m, err := scanMovement(q.QueryRowContext(ctx, query, code, at.Format(inventory.TimestampLayout)).Scan, kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &inventory.StorageError{Op: "get " + string(kind), Err: err}
	}
	return m, nil
}

// SumMovementsAt totals the quantities of every movement of a product at
// an exact timestamp. Deletion by (code, timestamp) can remove several
// rows at once; compensation has to account for all of them.
func (s *Store) SumMovementsAt(ctx context.Context, kind inventory.MovementKind, code string, at time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumMovementsAt(ctx, s.db, kind, code, at)
}

func (s *Store) sumMovementsAt(ctx context.Context, q querier, kind inventory.MovementKind, code string, at time.Time) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(cantidad), 0) FROM %s WHERE codigo = ? AND fecha = ?
	`, table)

	var total int64
	if err := q.QueryRowContext(ctx, query, code, at.Format(inventory.TimestampLayout)).Scan(&total); err != nil {
		return 0, &inventory.StorageError{Op: "sum " + string(kind), Err: err}
	}
	return total, nil
}

// UpdateMovementQuantity rewrites one movement's quantity.
func (s *Store) UpdateMovementQuantity(ctx context.Context, kind inventory.MovementKind, id int64, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateMovementQuantity(ctx, s.db, kind, id, quantity)
}

func (s *Store) updateMovementQuantity(ctx context.Context, q querier, kind inventory.MovementKind, id int64, quantity int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET cantidad = ? WHERE id = ?", table)
	if _, err := q.ExecContext(ctx, query, quantity, id); err != nil {
		return &inventory.StorageError{Op: "update " + string(kind), Err: err}
	}
	return nil
}

// DeleteMovementAt removes the movements of a product at an exact
// timestamp and reports whether any row was deleted.
func (s *Store) DeleteMovementAt(ctx context.Context, kind inventory.MovementKind, code string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteMovementAt(ctx, s.db, kind, code, at)
}

func (s *Store) deleteMovementAt(ctx context.Context, q querier, kind inventory.MovementKind, code string, at time.Time) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE codigo = ? AND fecha = ?", table)
	res, err := q.ExecContext(ctx, query, code, at.Format(inventory.TimestampLayout))
	if err != nil {
		return false, &inventory.StorageError{Op: "delete " + string(kind), Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &inventory.StorageError{Op: "delete " + string(kind), Err: err}
	}
	return n > 0, nil
}

// ListMovements returns every movement of one direction in chronological
// order.
func (s *Store) ListMovements(ctx context.Context, kind inventory.MovementKind) ([]inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listMovements(ctx, s.db, kind)
}

func (s *Store) listMovements(ctx context.Context, q querier, kind inventory.MovementKind) ([]inventory.Movement, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, codigo, descripcion, cantidad, fecha FROM %s
		ORDER BY fecha, id
	`, table)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list " + string(kind), Err: err}
	}
	defer rows.Close()

	var movements []inventory.Movement
	for rows.Next() {
		m, err := scanMovement(rows.Scan, kind)
		if err != nil {
			return nil, &inventory.StorageError{Op: "list " + string(kind), Err: err}
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

// UpdateMovementDescriptions rewrites the denormalized description copy
// on every movement row of a product, in both relations.
func (s *Store) UpdateMovementDescriptions(ctx context.Context, code, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateMovementDescriptions(ctx, s.db, code, description)
}

func (s *Store) updateMovementDescriptions(ctx context.Context, q querier, code, description string) error {
	if _, err := q.ExecContext(ctx, "UPDATE entradas SET descripcion = ? WHERE codigo = ?", description, code); err != nil {
		return &inventory.StorageError{Op: "update entrada descriptions", Err: err}
	}
	if _, err := q.ExecContext(ctx, "UPDATE salidas SET descripcion = ? WHERE codigo = ?", description, code); err != nil {
		return &inventory.StorageError{Op: "update salida descriptions", Err: err}
	}
	return nil
}

func scanMovement(scan func(dest ...any) error, kind inventory.MovementKind) (*inventory.Movement, error) {
	var (
		m     inventory.Movement
		fecha string
	)
	if err := scan(&m.ID, &m.Code, &m.Description, &m.Quantity, &fecha); err != nil {
		return nil, err
	}
	m.Kind = kind
	m.Date, _ = time.Parse(inventory.TimestampLayout, fecha)
	return &m, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a single database transaction. Any error
// from fn rolls the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(store inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &inventory.StorageError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &inventory.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// txStore binds the row-level helpers to one open transaction. The
// parent's mutex is already held by WithTx, so no method locks.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) GetProduct(ctx context.Context, code string) (*inventory.Product, error) {
	return ts.parent.getProduct(ctx, ts.tx, code)
}

func (ts *txStore) InsertProduct(ctx context.Context, p inventory.Product) error {
	return ts.parent.insertProduct(ctx, ts.tx, p)
}

func (ts *txStore) UpdateProduct(ctx context.Context, p inventory.Product) error {
	return ts.parent.updateProduct(ctx, ts.tx, p)
}

func (ts *txStore) DeleteProduct(ctx context.Context, code string) (bool, error) {
	return ts.parent.deleteProduct(ctx, ts.tx, code)
}

func (ts *txStore) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	return ts.parent.listProducts(ctx, ts.tx)
}

func (ts *txStore) InsertMovement(ctx context.Context, m inventory.Movement) error {
	return ts.parent.insertMovement(ctx, ts.tx, m)
}

func (ts *txStore) GetMovement(ctx context.Context, kind inventory.MovementKind, id int64) (*inventory.Movement, error) {
	return ts.parent.getMovement(ctx, ts.tx, kind, id)
}

func (ts *txStore) GetMovementAt(ctx context.Context, kind inventory.MovementKind, code string, at time.Time) (*inventory.Movement, error) {
	return ts.parent.getMovementAt(ctx, ts.tx, kind, code, at)
}

func (ts *txStore) SumMovementsAt(ctx context.Context, kind inventory.MovementKind, code string, at time.Time) (int64, error) {
	return ts.parent.sumMovementsAt(ctx, ts.tx, kind, code, at)
}

func (ts *txStore) UpdateMovementQuantity(ctx context.Context, kind inventory.MovementKind, id int64, quantity int64) error {
	return ts.parent.updateMovementQuantity(ctx, ts.tx, kind, id, quantity)
}

func (ts *txStore) DeleteMovementAt(ctx context.Context, kind inventory.MovementKind, code string, at time.Time) (bool, error) {
	return ts.parent.deleteMovementAt(ctx, ts.tx, kind, code, at)
}

func (ts *txStore) ListMovements(ctx context.Context, kind inventory.MovementKind) ([]inventory.Movement, error) {
	return ts.parent.listMovements(ctx, ts.tx, kind)
}

func (ts *txStore) UpdateMovementDescriptions(ctx context.Context, code, description string) error {
	return ts.parent.updateMovementDescriptions(ctx, ts.tx, code, description)
}

func (ts *txStore) WithTx(ctx context.Context, fn func(store inventory.Store) error) error {
	// Already inside a transaction; run fn on the same one.
	return fn(ts)
}

// =============================================================================
// ANALYTICS STORE (inventory.AnalyticsStore interface)
// =============================================================================

// movementUnion is the shared FROM clause of the unified movement
// queries: both relations tagged by direction, joined to the catalog for
// current prices and stock. LEFT JOIN tolerates orphaned movements.
const movementUnion = `
	FROM (
		SELECT fecha, codigo, descripcion, cantidad, 'entrada' AS tipo FROM entradas
		UNION ALL
		SELECT fecha, codigo, descripcion, cantidad, 'salida' AS tipo FROM salidas
	) m
	LEFT JOIN productos p ON p.codigo = m.codigo
`

const movementViewColumns = `
	SELECT m.fecha, m.codigo, m.descripcion, m.tipo, m.cantidad,
	       COALESCE(p.stock, 0),
	       COALESCE(p.precio_compra, '0'), COALESCE(p.precio_venta, '0'),
	       COALESCE(p.valor_total, '0'), COALESCE(p.utilidad, '0')
`

// SearchMovements returns the unified movement history filtered by a
// case-insensitive substring match on code or description, newest first.
func (s *Store) SearchMovements(ctx context.Context, pattern string) ([]inventory.MovementView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	like := "%" + strings.ToLower(pattern) + "%"
	query := movementViewColumns + movementUnion + `
		WHERE LOWER(m.codigo) LIKE ? OR LOWER(m.descripcion) LIKE ?
		ORDER BY m.fecha DESC
	`
	return s.queryMovementViews(ctx, query, like, like)
}

func (s *Store) queryMovementViews(ctx context.Context, query string, args ...any) ([]inventory.MovementView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &inventory.StorageError{Op: "query movements", Err: err}
	}
	defer rows.Close()

	views := []inventory.MovementView{}
	for rows.Next() {
		var (
			v                                   inventory.MovementView
			fecha, tipo                         string
			purchase, sale, stockValue, utility string
		)
		err := rows.Scan(
			&fecha, &v.Code, &v.Description, &tipo, &v.Quantity,
			&v.StockAfter, &purchase, &sale, &stockValue, &utility,
		)
		if err != nil {
			return nil, &inventory.StorageError{Op: "query movements", Err: err}
		}

		v.Date, _ = time.Parse(inventory.TimestampLayout, fecha)
		v.Kind = inventory.MovementKind(tipo)
		v.PurchasePrice = parseDecimal(purchase)
		v.SalePrice = parseDecimal(sale)
		v.StockValue = parseDecimal(stockValue)
		v.Utility = parseDecimal(utility)

		// Inflows move at purchase price, outflows at sale price.
		unit := v.PurchasePrice
		if v.Kind == inventory.Outflow {
			unit = v.SalePrice
		}
		v.MovementValue = decimal.NewFromInt(v.Quantity).Mul(unit)

		views = append(views, v)
	}
	return views, rows.Err()
}

// MonthlyFlowSeries buckets one product's movements by calendar month.
func (s *Store) MonthlyFlowSeries(ctx context.Context, code string) ([]inventory.MonthlyFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT mes, SUM(ent), SUM(sal) FROM (
			SELECT strftime('%Y-%m', fecha) AS mes, cantidad AS ent, 0 AS sal
			FROM entradas WHERE codigo = ?
			UNION ALL
			SELECT strftime('%Y-%m', fecha), 0, cantidad
			FROM salidas WHERE codigo = ?
		)
		GROUP BY mes
		ORDER BY mes
	`, code, code)
	if err != nil {
		return nil, &inventory.StorageError{Op: "monthly flow series", Err: err}
	}
	defer rows.Close()

	var series []inventory.MonthlyFlow
	for rows.Next() {
		var f inventory.MonthlyFlow
		if err := rows.Scan(&f.Month, &f.Inflows, &f.Outflows); err != nil {
			return nil, &inventory.StorageError{Op: "monthly flow series", Err: err}
		}
		series = append(series, f)
	}
	return series, rows.Err()
}

// StockTimeSeries reconstructs one product's cumulative stock curve from
// its movement history, one point per movement in chronological order.
func (s *Store) StockTimeSeries(ctx context.Context, code string) ([]inventory.StockPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT fecha, SUM(delta) OVER (ORDER BY fecha ROWS UNBOUNDED PRECEDING)
		FROM (
			SELECT fecha, cantidad AS delta FROM entradas WHERE codigo = ?
			UNION ALL
			SELECT fecha, -cantidad FROM salidas WHERE codigo = ?
		)
		ORDER BY fecha
	`, code, code)
	if err != nil {
		return nil, &inventory.StorageError{Op: "stock time series", Err: err}
	}
	defer rows.Close()

	var points []inventory.StockPoint
	for rows.Next() {
		var (
			p     inventory.StockPoint
			fecha string
		)
		if err := rows.Scan(&fecha, &p.Stock); err != nil {
			return nil, &inventory.StorageError{Op: "stock time series", Err: err}
		}
		p.Date, _ = time.Parse(inventory.TimestampLayout, fecha)
		points = append(points, p)
	}
	return points, rows.Err()
}

// TopMovedProducts ranks products by combined moved quantity, excluding
// products with no movements.
func (s *Store) TopMovedProducts(ctx context.Context, limit int) ([]inventory.ProductActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT codigo, descripcion, ent, sal FROM (
			SELECT p.codigo, p.descripcion,
			       COALESCE((SELECT SUM(cantidad) FROM entradas e WHERE e.codigo = p.codigo), 0) AS ent,
			       COALESCE((SELECT SUM(cantidad) FROM salidas s WHERE s.codigo = p.codigo), 0) AS sal
			FROM productos p
		)
		WHERE ent + sal > 0
		ORDER BY ent + sal DESC, codigo
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, &inventory.StorageError{Op: "top moved products", Err: err}
	}
	defer rows.Close()

	var ranking []inventory.ProductActivity
	for rows.Next() {
		var a inventory.ProductActivity
		if err := rows.Scan(&a.Code, &a.Description, &a.Inflows, &a.Outflows); err != nil {
			return nil, &inventory.StorageError{Op: "top moved products", Err: err}
		}
		ranking = append(ranking, a)
	}
	return ranking, rows.Err()
}

// MovementStatistics computes the single-row movement summary for one
// product. Aggregates without rows come back nil.
func (s *Store) MovementStatistics(ctx context.Context, code string) (*inventory.MovementStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats                     inventory.MovementStats
		inflowCount, outflowCount int64
		avgIn, avgOut             sql.NullFloat64
		first, last               sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entradas WHERE codigo = ?),
			(SELECT COALESCE(SUM(cantidad), 0) FROM entradas WHERE codigo = ?),
			(SELECT AVG(cantidad) FROM entradas WHERE codigo = ?),
			(SELECT COUNT(*) FROM salidas WHERE codigo = ?),
			(SELECT COALESCE(SUM(cantidad), 0) FROM salidas WHERE codigo = ?),
			(SELECT AVG(cantidad) FROM salidas WHERE codigo = ?),
			(SELECT MIN(fecha) FROM (
				SELECT fecha FROM entradas WHERE codigo = ?
				UNION ALL SELECT fecha FROM salidas WHERE codigo = ?)),
			(SELECT MAX(fecha) FROM (
				SELECT fecha FROM entradas WHERE codigo = ?
				UNION ALL SELECT fecha FROM salidas WHERE codigo = ?))
	`,
		code, code, code, code, code, code, code, code, code, code,
	).Scan(
		&inflowCount, &stats.TotalInflows, &avgIn,
		&outflowCount, &stats.TotalOutflows, &avgOut,
		&first, &last,
	)
	if err != nil {
		return nil, &inventory.StorageError{Op: "movement statistics", Err: err}
	}

	stats.TotalMovements = inflowCount + outflowCount
	if avgIn.Valid {
		v := decimal.NewFromFloat(avgIn.Float64).Round(2)
		stats.AvgInflow = &v
	}
	if avgOut.Valid {
		v := decimal.NewFromFloat(avgOut.Float64).Round(2)
		stats.AvgOutflow = &v
	}
	if first.Valid {
		t, _ := time.Parse(inventory.TimestampLayout, first.String)
		stats.FirstMovement = &t
	}
	if last.Valid {
		t, _ := time.Parse(inventory.TimestampLayout, last.String)
		stats.LastMovement = &t
	}

	// Price bounds come from the catalog row, but only for directions
	// that actually have movements: purchase prices are observed on
	// inflows, sale prices on outflows.
	p, err := s.getProduct(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if p != nil {
		if inflowCount > 0 {
			purchase := p.PurchasePrice
			stats.MinPurchasePrice = &purchase
			stats.MaxPurchasePrice = &purchase
		}
		if outflowCount > 0 {
			sale := p.SalePrice
			stats.MinSalePrice = &sale
			stats.MaxSalePrice = &sale
		}
	}

	return &stats, nil
}

// PeriodInventory returns one summary line per catalog product with the
// movement columns restricted to [from, to] by calendar date.
func (s *Store) PeriodInventory(ctx context.Context, from, to time.Time) ([]inventory.InventoryLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromDay := from.Format(inventory.DateLayout)
	toDay := to.Format(inventory.DateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.codigo, p.descripcion,
		       COALESCE((SELECT SUM(cantidad) FROM entradas e
		                 WHERE e.codigo = p.codigo AND DATE(e.fecha) BETWEEN ? AND ?), 0),
		       COALESCE((SELECT SUM(cantidad) FROM salidas s
		                 WHERE s.codigo = p.codigo AND DATE(s.fecha) BETWEEN ? AND ?), 0),
		       p.stock, p.precio_compra, p.precio_venta, p.utilidad
		FROM productos p
		ORDER BY p.codigo
	`, fromDay, toDay, fromDay, toDay)
	if err != nil {
		return nil, &inventory.StorageError{Op: "period inventory", Err: err}
	}
	defer rows.Close()

	lines := []inventory.InventoryLine{}
	for rows.Next() {
		var (
			l                       inventory.InventoryLine
			purchase, sale, utility string
		)
		err := rows.Scan(
			&l.Code, &l.Description, &l.Inflows, &l.Outflows,
			&l.Stock, &purchase, &sale, &utility,
		)
		if err != nil {
			return nil, &inventory.StorageError{Op: "period inventory", Err: err}
		}
		l.PurchasePrice = parseDecimal(purchase)
		l.SalePrice = parseDecimal(sale)
		l.Utility = parseDecimal(utility)
		stock := decimal.NewFromInt(l.Stock)
		l.PurchaseValueTotal = stock.Mul(l.PurchasePrice)
		l.SaleValueTotal = stock.Mul(l.SalePrice)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// PeriodMovements returns one direction's movements within [from, to] by
// calendar date, priced at the product's current unit price.
func (s *Store) PeriodMovements(ctx context.Context, kind inventory.MovementKind, from, to time.Time) ([]inventory.MovementLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	priceColumn := "precio_compra"
	if kind == inventory.Outflow {
		priceColumn = "precio_venta"
	}

	query := fmt.Sprintf(`
		SELECT m.fecha, m.codigo, m.descripcion, m.cantidad, COALESCE(p.%s, '0')
		FROM %s m
		LEFT JOIN productos p ON p.codigo = m.codigo
		WHERE DATE(m.fecha) BETWEEN ? AND ?
		ORDER BY m.fecha, m.id
	`, priceColumn, table)

	rows, err := s.db.QueryContext(ctx, query,
		from.Format(inventory.DateLayout), to.Format(inventory.DateLayout))
	if err != nil {
		return nil, &inventory.StorageError{Op: "period " + string(kind), Err: err}
	}
	defer rows.Close()

	lines := []inventory.MovementLine{}
	for rows.Next() {
		var (
			l            inventory.MovementLine
			fecha, price string
		)
		if err := rows.Scan(&fecha, &l.Code, &l.Description, &l.Quantity, &price); err != nil {
			return nil, &inventory.StorageError{Op: "period " + string(kind), Err: err}
		}
		l.Date, _ = time.Parse(inventory.TimestampLayout, fecha)
		l.UnitPrice = parseDecimal(price)
		l.LineValue = decimal.NewFromInt(l.Quantity).Mul(l.UnitPrice)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ProductOverview returns the catalog row with its per-direction movement
// counts and its lastN most recent movements.
func (s *Store) ProductOverview(ctx context.Context, code string, lastN int) (*inventory.ProductOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.getProduct(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &inventory.NotFoundError{Entity: "product", Key: code}
	}

	var inflowCount, outflowCount int64
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entradas WHERE codigo = ?),
			(SELECT COUNT(*) FROM salidas WHERE codigo = ?)
	`, code, code).Scan(&inflowCount, &outflowCount)
	if err != nil {
		return nil, &inventory.StorageError{Op: "product overview", Err: err}
	}

	query := movementViewColumns + movementUnion + `
		WHERE m.codigo = ?
		ORDER BY m.fecha DESC
		LIMIT ?
	`
	recent, err := s.queryMovementViews(ctx, query, code, lastN)
	if err != nil {
		return nil, err
	}

	return &inventory.ProductOverview{
		Product:       *p,
		InflowCount:   inflowCount,
		OutflowCount:  outflowCount,
		LastMovements: recent,
	}, nil
}

// ProductTotals sums the running totals and valuations over the whole
// catalog. Decimal sums run in Go; SQLite would coerce the TEXT columns
// to floats.
func (s *Store) ProductTotals(ctx context.Context) (*inventory.ProductTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products, err := s.listProducts(ctx, s.db)
	if err != nil {
		return nil, err
	}

	totals := &inventory.ProductTotals{
		PurchaseValueTotal: decimal.Zero,
		SaleValueTotal:     decimal.Zero,
		Utility:            decimal.Zero,
	}
	for _, p := range products {
		totals.Inflows += p.TotalInflows
		totals.Outflows += p.TotalOutflows
		totals.Stock += p.Stock
		stock := decimal.NewFromInt(p.Stock)
		totals.PurchaseValueTotal = totals.PurchaseValueTotal.Add(stock.Mul(p.PurchasePrice))
		totals.SaleValueTotal = totals.SaleValueTotal.Add(stock.Mul(p.SalePrice))
		totals.Utility = totals.Utility.Add(p.Utility)
	}
	return totals, nil
}

// =============================================================================
// HISTORY STORE (inventory.HistoryStore interface)
// =============================================================================

// InsertReportRecord persists the metadata of an exported report and
// returns its id.
func (s *Store) InsertReportRecord(ctx context.Context, r inventory.ReportRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO historial_reportes (fecha, descripcion, temporalidad, file_path)
		VALUES (?, ?, ?, ?)
	`,
		r.Date.Format(reportDateLayout), r.Label, r.Temporality, r.FilePath,
	)
	if err != nil {
		return 0, &inventory.StorageError{Op: "insert report record", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &inventory.StorageError{Op: "insert report record", Err: err}
	}
	return id, nil
}

// ListReportRecords returns the report history, newest first.
func (s *Store) ListReportRecords(ctx context.Context) ([]inventory.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fecha, descripcion, temporalidad, file_path
		FROM historial_reportes
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list report records", Err: err}
	}
	defer rows.Close()

	records := []inventory.ReportRecord{}
	for rows.Next() {
		var (
			r     inventory.ReportRecord
			fecha string
		)
		if err := rows.Scan(&r.ID, &fecha, &r.Label, &r.Temporality, &r.FilePath); err != nil {
			return nil, &inventory.StorageError{Op: "list report records", Err: err}
		}
		r.Date, _ = time.Parse(reportDateLayout, fecha)
		records = append(records, r)
	}
	return records, rows.Err()
}

// RenameReportRecord rewrites a report's label and reports whether the
// row existed.
func (s *Store) RenameReportRecord(ctx context.Context, id int64, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE historial_reportes SET descripcion = ? WHERE id = ?", label, id)
	if err != nil {
		return false, &inventory.StorageError{Op: "rename report record", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &inventory.StorageError{Op: "rename report record", Err: err}
	}
	return n > 0, nil
}

// DeleteReportRecord removes a history row and reports whether it existed.
// The spreadsheet file on disk is the caller's responsibility.
func (s *Store) DeleteReportRecord(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM historial_reportes WHERE id = ?", id)
	if err != nil {
		return false, &inventory.StorageError{Op: "delete report record", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &inventory.StorageError{Op: "delete report record", Err: err}
	}
	return n > 0, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// parseDecimal parses a stored decimal, treating unparseable values as
// zero. Every value in these columns was written by decimal.String.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
