package sus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource reads the e-SUS patients table.
type PGSource struct {
	db    querier
	pool  *pgxpool.Pool
	query string
}

func NewPGSource(ctx context.Context, databaseURL, table string) (*PGSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening SUS database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging SUS database: %w", err)
	}
	src := newPGSource(pool, table)
	src.pool = pool
	return src, nil
}

func newPGSource(db querier, table string) *PGSource {
	return &PGSource{db: db, query: selectQuery(table)}
}

// selectQuery quotes table, which may be schema-qualified.
func selectQuery(table string) string {
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return "SELECT name, sus_card, birth_date, last_consultation, medication FROM " + ident + " ORDER BY name"
}

func (s *PGSource) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying SUS patients: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var (
			name, card        *string
			birth, lastConsul *time.Time
			r                 Record
		)
		if err := row.Scan(&name, &card, &birth, &lastConsul, &r.Medication); err != nil {
			return Record{}, err
		}
		if name != nil {
			r.Name = *name
		}
		if card != nil {
			r.SUSCard = *card
		}
		r.BirthDate = optionalDate(birth)
		r.LastConsultation = optionalDate(lastConsul)
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading SUS patients: %w", err)
	}
	return out, nil
}

func (s *PGSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func optionalDate(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}
