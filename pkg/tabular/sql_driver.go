package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// sqlCollectionRecord is the catalog table: one record per collection.
type sqlCollectionRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:191;uniqueIndex;not null"`
	Header    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (sqlCollectionRecord) TableName() string { return "tabular_collections" }

// sqlRowRecord stores one grid row as a JSON array of cells. Row order is
// primary key order.
type sqlRowRecord struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	CollectionID uint   `gorm:"index;not null"`
	Cells        string `gorm:"type:text;not null"`
}

func (sqlRowRecord) TableName() string { return "tabular_rows" }

// SQLBackend stores collections in two relational tables through gorm, so
// any dialect pkg/database can open works as a backend.
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend migrates the backing tables and returns the backend.
func NewSQLBackend(db *gorm.DB) (*SQLBackend, error) {
	if err := db.AutoMigrate(&sqlCollectionRecord{}, &sqlRowRecord{}); err != nil {
		return nil, fmt.Errorf("tabular/sql: migrate: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

// DB exposes the underlying connection (shared with the failed-jobs table).
func (b *SQLBackend) DB() *gorm.DB { return b.db }

func (b *SQLBackend) Collection(ctx context.Context, name string) (Collection, error) {
	var rec sqlCollectionRecord
	err := b.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("tabular/sql: %q: %w", name, ErrCollectionNotFound)
	}
	if err != nil {
		return nil, sqlErr("find collection", err)
	}
	return &sqlCollection{b: b, id: rec.ID, name: rec.Name}, nil
}

func (b *SQLBackend) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	c, err := b.Collection(ctx, name)
	if err == nil || !errors.Is(err, ErrCollectionNotFound) {
		return c, err
	}

	rec := sqlCollectionRecord{Name: name, Header: "[]"}
	if err := b.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// Lost a creation race with another process.
		if c, findErr := b.Collection(ctx, name); findErr == nil {
			return c, nil
		}
		return nil, sqlErr("create collection", err)
	}
	return &sqlCollection{b: b, id: rec.ID, name: name}, nil
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return sqlErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return sqlErr("ping", err)
	}
	return nil
}

func (b *SQLBackend) Close(context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ─── Collection ──────────────────────────────────────────────────────────────

type sqlCollection struct {
	b    *SQLBackend
	id   uint
	name string
}

func (c *sqlCollection) Name() string { return c.name }

func (c *sqlCollection) record(ctx context.Context) (sqlCollectionRecord, error) {
	var rec sqlCollectionRecord
	err := c.b.db.WithContext(ctx).Take(&rec, c.id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fmt.Errorf("tabular/sql: %q: %w", c.name, ErrStaleHandle)
	}
	if err != nil {
		return rec, sqlErr("load collection", err)
	}
	if rec.Name != c.name {
		return rec, fmt.Errorf("tabular/sql: %q renamed to %q: %w", c.name, rec.Name, ErrStaleHandle)
	}
	return rec, nil
}

func (c *sqlCollection) ReadHeader(ctx context.Context) ([]string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return nil, err
	}
	return decodeCells(rec.Header)
}

func (c *sqlCollection) WriteHeader(ctx context.Context, header []string) error {
	if _, err := c.record(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("tabular/sql: encode header: %w", err)
	}
	err = c.b.db.WithContext(ctx).Model(&sqlCollectionRecord{}).
		Where("id = ?", c.id).
		Update("header", string(raw)).Error
	if err != nil {
		return sqlErr("write header", err)
	}
	return nil
}

func (c *sqlCollection) ReadAllRows(ctx context.Context) ([][]string, error) {
	if _, err := c.record(ctx); err != nil {
		return nil, err
	}

	var recs []sqlRowRecord
	err := c.b.db.WithContext(ctx).
		Where("collection_id = ?", c.id).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, sqlErr("read rows", err)
	}

	out := make([][]string, 0, len(recs))
	for _, r := range recs {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, nil
}

func (c *sqlCollection) AppendRow(ctx context.Context, values []string) error {
	if _, err := c.record(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("tabular/sql: encode row: %w", err)
	}
	if err := c.b.db.WithContext(ctx).Create(&sqlRowRecord{CollectionID: c.id, Cells: string(raw)}).Error; err != nil {
		return sqlErr("append row", err)
	}
	return nil
}

// nth loads the record behind a physical data row.
func (c *sqlCollection) nth(ctx context.Context, row int) (sqlRowRecord, error) {
	var rec sqlRowRecord
	if row <= HeaderRow {
		return rec, fmt.Errorf("tabular/sql: row %d: %w", row, ErrRowOutOfRange)
	}
	err := c.b.db.WithContext(ctx).
		Where("collection_id = ?", c.id).
		Order("id ASC").
		Offset(row - HeaderRow - 1).
		Limit(1).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fmt.Errorf("tabular/sql: row %d: %w", row, ErrRowOutOfRange)
	}
	if err != nil {
		return rec, sqlErr("locate row", err)
	}
	return rec, nil
}

func (c *sqlCollection) UpdateCell(ctx context.Context, row, col int, value string) error {
	if col < 1 {
		return fmt.Errorf("tabular/sql: column %d: %w", col, ErrRowOutOfRange)
	}
	if row == HeaderRow {
		header, err := c.ReadHeader(ctx)
		if err != nil {
			return err
		}
		header = padTo(header, col)
		header[col-1] = value
		return c.WriteHeader(ctx, header)
	}

	rec, err := c.nth(ctx, row)
	if err != nil {
		return err
	}
	cells, err := decodeCells(rec.Cells)
	if err != nil {
		return err
	}
	cells = padTo(cells, col)
	cells[col-1] = value
	return c.saveCells(ctx, rec.ID, cells)
}

func (c *sqlCollection) UpdateRow(ctx context.Context, row int, values []string) error {
	rec, err := c.nth(ctx, row)
	if err != nil {
		return err
	}
	return c.saveCells(ctx, rec.ID, values)
}

func (c *sqlCollection) saveCells(ctx context.Context, id uint64, cells []string) error {
	raw, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("tabular/sql: encode row: %w", err)
	}
	err = c.b.db.WithContext(ctx).Model(&sqlRowRecord{}).
		Where("id = ?", id).
		Update("cells", string(raw)).Error
	if err != nil {
		return sqlErr("update row", err)
	}
	return nil
}

func (c *sqlCollection) DeleteRow(ctx context.Context, row int) error {
	rec, err := c.nth(ctx, row)
	if err != nil {
		return err
	}
	if err := c.b.db.WithContext(ctx).Delete(&sqlRowRecord{}, rec.ID).Error; err != nil {
		return sqlErr("delete row", err)
	}
	return nil
}

func decodeCells(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("tabular/sql: decode cells: %w", err)
	}
	if cells == nil {
		cells = []string{}
	}
	return cells, nil
}

func sqlErr(op string, err error) error {
	return fmt.Errorf("tabular/sql: %s: %w: %w", op, ErrUnavailable, err)
}
