package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type documentRow struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:128"`
	Data       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// SQL keeps documents as JSON text in a single table. Filters and ordering
// compare the extracted values as text, so only string and timestamp fields
// are meaningful for them.
type SQL struct {
	conn    *gorm.DB
	dialect string
	closer  func() error
}

func NewSQL(client *db.Client) *SQL {
	return &SQL{conn: client.DB(), dialect: client.Dialect(), closer: client.Close}
}

func (s *SQL) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := s.conn.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return row.document()
}

func (s *SQL) Set(ctx context.Context, collection, id string, data map[string]any) error {
	payload, err := json.Marshal(encodeTimes(cloneData(data)))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	row := documentRow{Collection: collection, ID: id, Data: string(payload)}
	return s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *SQL) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQL) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	tx := s.conn.WithContext(ctx).Model(&documentRow{}).Where("collection = ?", q.Collection)
	for _, f := range q.Filters {
		expr, err := s.fieldExpr(f.Field)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr+" = ?", sqlValue(f.Value))
	}

	orders := withImplicitID(q.OrderBy)
	if len(q.StartAfter) > 0 {
		cond, args, err := s.keyset(orders, q.StartAfter)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(cond, args...)
	}
	for _, o := range orders {
		expr, err := s.fieldExpr(o.Field)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if o.Direction == Desc {
			dir = "DESC"
		}
		tx = tx.Order(expr + " " + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQL) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// AutoMigrate creates the documents table; tests use it instead of goose.
func (s *SQL) AutoMigrate() error {
	return s.conn.AutoMigrate(&documentRow{})
}

func (s *SQL) fieldExpr(field string) (string, error) {
	if field == DocumentID {
		return "id", nil
	}
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("docstore: invalid field name %q", field)
	}
	if s.dialect == db.DialectSQLite {
		return fmt.Sprintf("json_extract(data, '$.%s')", field), nil
	}
	return fmt.Sprintf("(data::jsonb ->> '%s')", field), nil
}

// keyset expands a cursor into (a < x) OR (a = x AND b < y) ...
func (s *SQL) keyset(orders []Order, cursor []any) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for i := range cursor {
		var parts []string
		for j := 0; j < i; j++ {
			expr, err := s.fieldExpr(orders[j].Field)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, expr+" = ?")
			args = append(args, sqlValue(cursor[j]))
		}
		expr, err := s.fieldExpr(orders[i].Field)
		if err != nil {
			return "", nil, err
		}
		op := ">"
		if orders[i].Direction == Desc {
			op = "<"
		}
		parts = append(parts, expr+" "+op+" ?")
		args = append(args, sqlValue(cursor[i]))
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args, nil
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return FormatTime(x)
	case string:
		return x
	default:
		return AsString(x)
	}
}

func (r documentRow) document() (Document, error) {
	data := map[string]any{}
	dec := json.NewDecoder(strings.NewReader(r.Data))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return Document{}, fmt.Errorf("decode document %s/%s: %w", r.Collection, r.ID, err)
	}
	return Document{ID: r.ID, Data: normalizeNumbers(data).(map[string]any)}, nil
}

// normalizeNumbers turns json.Number into int64 or float64 the way Firestore
// hands values back.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	default:
		return x
	}
}
