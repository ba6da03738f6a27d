package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/lending-engine/internal/core/domain"
	"github.com/rl1809/lending-engine/internal/port"
)

const (
	tableTitles       = "titles"
	tableCopies       = "copies"
	tableBorrowers    = "borrowers"
	tableLoans        = "loans"
	tableLoanEvents   = "loan_events"
	tableReservations = "reservations"
)

// SQLAdapter stores lending state in MySQL (driver "mysql") or Postgres
// (driver "pgx"). Queries are built with goqu in the matching dialect.
type SQLAdapter struct {
	db       *sqlx.DB
	dialect  goqu.DialectWrapper
	postgres bool
}

func NewSQLAdapter(db *sqlx.DB) *SQLAdapter {
	name := dialectName(db.DriverName())
	return &SQLAdapter{
		db:       db,
		dialect:  goqu.Dialect(name),
		postgres: name == "postgres",
	}
}

func dialectName(driver string) string {
	switch driver {
	case "pgx", "postgres":
		return "postgres"
	default:
		return "mysql"
	}
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// querier is the subset shared by *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
}

func (a *SQLAdapter) from(table string) *goqu.SelectDataset {
	return a.dialect.From(table).Prepared(true)
}

func get(ctx context.Context, q querier, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func selectAll(ctx context.Context, q querier, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func exec(ctx context.Context, q querier, b sqlBuilder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

func (a *SQLAdapter) insert(ctx context.Context, q querier, table string, record goqu.Record) (int64, error) {
	ds := a.dialect.Insert(table).Rows(record).Prepared(true)
	if a.postgres {
		var id int64
		if err := get(ctx, q, &id, ds.Returning("id")); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := exec(ctx, q, ds)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func count(ctx context.Context, q querier, ds *goqu.SelectDataset) (int, error) {
	var n int
	if err := get(ctx, q, &n, ds.Select(goqu.COUNT("*"))); err != nil {
		return 0, err
	}
	return n, nil
}

func (a *SQLAdapter) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.LendingTx) error) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{adapter: a, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// sqlTx takes row locks in a fixed order: borrower, loan, title, copy,
// reservation. Checkout locks borrower then copy; Return locks loan, title,
// copy, reservation; Renew locks loan; Reserve locks title. New methods must
// keep to this order.
type sqlTx struct {
	adapter *SQLAdapter
	tx      *sqlx.Tx
}

func (t *sqlTx) LockBorrower(ctx context.Context, borrowerID int64) (*domain.Borrower, error) {
	var row borrowerRow
	err := get(ctx, t.tx, &row, t.adapter.from(tableBorrowers).
		Select(borrowerColumns...).
		Where(goqu.C("id").Eq(borrowerID)).
		ForUpdate(exp.Wait))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBorrowerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock borrower: %w", err)
	}
	b := row.toDomain()
	return &b, nil
}

func (t *sqlTx) LockTitle(ctx context.Context, titleID int64) (*domain.Title, error) {
	title, err := t.adapter.getTitle(ctx, t.tx, titleID, true)
	if err != nil {
		return nil, fmt.Errorf("lock title: %w", err)
	}
	if title == nil {
		return nil, domain.ErrTitleNotFound
	}
	return title, nil
}

func (t *sqlTx) GetTitle(ctx context.Context, titleID int64) (*domain.Title, error) {
	return t.adapter.getTitle(ctx, t.tx, titleID, false)
}

func (t *sqlTx) GetCopy(ctx context.Context, copyID int64) (*domain.Copy, error) {
	var row copyRow
	err := get(ctx, t.tx, &row, t.adapter.from(tableCopies).
		Select(copyColumns...).
		Where(goqu.C("id").Eq(copyID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query copy: %w", err)
	}
	c := row.toDomain()
	return &c, nil
}

// FindAvailableCopy locks the copy it returns. Copies locked by concurrent
// checkouts are skipped, so each claim lands on a different row.
func (t *sqlTx) FindAvailableCopy(ctx context.Context, titleID int64, exclude ...int64) (*domain.Copy, error) {
	where := []exp.Expression{
		goqu.C("title_id").Eq(titleID),
		goqu.C("status").Eq(string(domain.CopyStatusAvailable)),
	}
	if len(exclude) > 0 {
		where = append(where, goqu.C("id").NotIn(exclude))
	}

	var row copyRow
	err := get(ctx, t.tx, &row, t.adapter.from(tableCopies).
		Select(copyColumns...).
		Where(where...).
		Order(goqu.C("id").Asc()).
		Limit(1).
		ForUpdate(exp.SkipLocked))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query available copy: %w", err)
	}
	c := row.toDomain()
	return &c, nil
}

func (t *sqlTx) CountAvailableCopies(ctx context.Context, titleID int64) (int, error) {
	n, err := count(ctx, t.tx, t.adapter.from(tableCopies).Where(
		goqu.C("title_id").Eq(titleID),
		goqu.C("status").Eq(string(domain.CopyStatusAvailable)),
	))
	if err != nil {
		return 0, fmt.Errorf("count available copies: %w", err)
	}
	return n, nil
}

func (t *sqlTx) UpdateCopyStatus(ctx context.Context, c domain.Copy, status domain.CopyStatus) error {
	result, err := exec(ctx, t.tx, t.adapter.dialect.Update(tableCopies).Prepared(true).
		Set(goqu.Record{
			"status":  string(status),
			"version": goqu.L("version + 1"),
		}).
		Where(
			goqu.C("id").Eq(c.ID),
			goqu.C("version").Eq(c.Version),
			goqu.C("status").Eq(string(c.Status)),
		))
	if err != nil {
		return fmt.Errorf("update copy: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

func (t *sqlTx) CountOpenLoans(ctx context.Context, borrowerID int64) (int, error) {
	n, err := count(ctx, t.tx, t.adapter.from(tableLoans).Where(
		goqu.C("borrower_id").Eq(borrowerID),
		goqu.C("returned_at").IsNull(),
	))
	if err != nil {
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return n, nil
}

func (t *sqlTx) HasOpenLoanForTitle(ctx context.Context, borrowerID, titleID int64) (bool, error) {
	n, err := count(ctx, t.tx, t.adapter.from(tableLoans).Where(
		goqu.C("borrower_id").Eq(borrowerID),
		goqu.C("title_id").Eq(titleID),
		goqu.C("returned_at").IsNull(),
	))
	if err != nil {
		return false, fmt.Errorf("count open loans for title: %w", err)
	}
	return n > 0, nil
}

func (t *sqlTx) GetLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	return t.findLoan(ctx, goqu.C("id").Eq(loanID))
}

func (t *sqlTx) FindOpenLoan(ctx context.Context, borrowerID, copyID int64) (*domain.Loan, error) {
	return t.findLoan(ctx,
		goqu.C("borrower_id").Eq(borrowerID),
		goqu.C("copy_id").Eq(copyID),
		goqu.C("returned_at").IsNull(),
	)
}

func (t *sqlTx) findLoan(ctx context.Context, where ...exp.Expression) (*domain.Loan, error) {
	var row loanRow
	err := get(ctx, t.tx, &row, t.adapter.from(tableLoans).
		Select(loanColumns...).
		Where(where...).
		Order(goqu.C("id").Desc()).
		Limit(1).
		ForUpdate(exp.Wait))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query loan: %w", err)
	}
	l := row.toDomain()
	return &l, nil
}

func (t *sqlTx) InsertLoan(ctx context.Context, loan *domain.Loan) error {
	id, err := t.adapter.insert(ctx, t.tx, tableLoans, goqu.Record{
		"borrower_id": loan.BorrowerID,
		"copy_id":     loan.CopyID,
		"title_id":    loan.TitleID,
		"issued_at":   loan.IssuedAt.UTC(),
		"due_at":      loan.DueAt.UTC(),
		"returned_at": timeOrNil(loan.ReturnedAt),
		"fine_cents":  int64(loan.Fine),
		"status":      string(loan.Status),
		"last_event":  string(loan.LastEvent),
		"renewals":    loan.Renewals,
	})
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	loan.ID = id
	return nil
}

func (t *sqlTx) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	_, err := exec(ctx, t.tx, t.adapter.dialect.Update(tableLoans).Prepared(true).
		Set(goqu.Record{
			"due_at":      loan.DueAt.UTC(),
			"returned_at": timeOrNil(loan.ReturnedAt),
			"fine_cents":  int64(loan.Fine),
			"status":      string(loan.Status),
			"last_event":  string(loan.LastEvent),
			"renewals":    loan.Renewals,
		}).
		Where(goqu.C("id").Eq(loan.ID)))
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	return nil
}

func (t *sqlTx) AppendLoanEvent(ctx context.Context, event *domain.LoanEvent) error {
	id, err := t.adapter.insert(ctx, t.tx, tableLoanEvents, goqu.Record{
		"loan_id":     event.LoanID,
		"kind":        string(event.Kind),
		"occurred_at": event.OccurredAt.UTC(),
		"due_at":      event.DueAt.UTC(),
		"fine_cents":  int64(event.Fine),
	})
	if err != nil {
		return fmt.Errorf("insert loan event: %w", err)
	}
	event.ID = id
	return nil
}

func (t *sqlTx) HasActiveReservation(ctx context.Context, borrowerID, titleID int64) (bool, error) {
	n, err := count(ctx, t.tx, t.adapter.from(tableReservations).Where(
		goqu.C("borrower_id").Eq(borrowerID),
		goqu.C("title_id").Eq(titleID),
		goqu.C("status").Eq(string(domain.ReservationStatusActive)),
	))
	if err != nil {
		return false, fmt.Errorf("count active reservations: %w", err)
	}
	return n > 0, nil
}

func (t *sqlTx) InsertReservation(ctx context.Context, reservation *domain.Reservation) error {
	id, err := t.adapter.insert(ctx, t.tx, tableReservations, goqu.Record{
		"borrower_id": reservation.BorrowerID,
		"title_id":    reservation.TitleID,
		"created_at":  reservation.CreatedAt.UTC(),
		"notified_at": timeOrNil(reservation.NotifiedAt),
		"status":      string(reservation.Status),
	})
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	reservation.ID = id
	return nil
}

func (t *sqlTx) OldestActiveReservation(ctx context.Context, titleID int64) (*domain.Reservation, error) {
	var row reservationRow
	err := get(ctx, t.tx, &row, t.adapter.from(tableReservations).
		Select(reservationColumns...).
		Where(
			goqu.C("title_id").Eq(titleID),
			goqu.C("status").Eq(string(domain.ReservationStatusActive)),
		).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Limit(1).
		ForUpdate(exp.Wait))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query oldest reservation: %w", err)
	}
	r := row.toDomain()
	return &r, nil
}

func (t *sqlTx) MarkReservationNotified(ctx context.Context, reservationID int64, at time.Time) error {
	result, err := exec(ctx, t.tx, t.adapter.dialect.Update(tableReservations).Prepared(true).
		Set(goqu.Record{
			"status":      string(domain.ReservationStatusNotified),
			"notified_at": at.UTC(),
		}).
		Where(
			goqu.C("id").Eq(reservationID),
			goqu.C("status").Eq(string(domain.ReservationStatusActive)),
		))
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

// Queries

func (a *SQLAdapter) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error) {
	ds := a.from(tableLoans).Select(loanColumns...)
	if filter.BorrowerID != 0 {
		ds = ds.Where(goqu.C("borrower_id").Eq(filter.BorrowerID))
	}
	if filter.OpenOnly {
		ds = ds.Where(goqu.C("returned_at").IsNull())
	}
	return a.selectLoans(ctx, ds.Order(goqu.C("issued_at").Desc(), goqu.C("id").Desc()))
}

func (a *SQLAdapter) ListOverdueLoans(ctx context.Context, now time.Time) ([]domain.Loan, error) {
	return a.selectLoans(ctx, a.from(tableLoans).
		Select(loanColumns...).
		Where(
			goqu.C("returned_at").IsNull(),
			goqu.C("due_at").Lt(now.UTC()),
		).
		Order(goqu.C("due_at").Asc(), goqu.C("id").Asc()))
}

func (a *SQLAdapter) selectLoans(ctx context.Context, ds *goqu.SelectDataset) ([]domain.Loan, error) {
	var rows []loanRow
	if err := selectAll(ctx, a.db, &rows, ds); err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	loans := make([]domain.Loan, 0, len(rows))
	for _, r := range rows {
		loans = append(loans, r.toDomain())
	}
	return loans, nil
}

func (a *SQLAdapter) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	ds := a.from(tableReservations).Select(reservationColumns...)
	if filter.BorrowerID != 0 {
		ds = ds.Where(goqu.C("borrower_id").Eq(filter.BorrowerID))
	}
	if filter.ActiveOnly {
		ds = ds.Where(goqu.C("status").Eq(string(domain.ReservationStatusActive)))
	}

	var rows []reservationRow
	if err := selectAll(ctx, a.db, &rows, ds.Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())); err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	reservations := make([]domain.Reservation, 0, len(rows))
	for _, r := range rows {
		reservations = append(reservations, r.toDomain())
	}
	return reservations, nil
}

func (a *SQLAdapter) ListLoanEvents(ctx context.Context, loanID int64) ([]domain.LoanEvent, error) {
	var rows []loanEventRow
	err := selectAll(ctx, a.db, &rows, a.from(tableLoanEvents).
		Select(loanEventColumns...).
		Where(goqu.C("loan_id").Eq(loanID)).
		Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, fmt.Errorf("query loan events: %w", err)
	}
	events := make([]domain.LoanEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toDomain())
	}
	return events, nil
}

func (a *SQLAdapter) InventoryCounts(ctx context.Context) (domain.InventoryCounts, error) {
	var counts domain.InventoryCounts

	titles, err := count(ctx, a.db, a.from(tableTitles))
	if err != nil {
		return counts, fmt.Errorf("count titles: %w", err)
	}
	counts.Titles = titles

	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	err = selectAll(ctx, a.db, &rows, a.from(tableCopies).
		Select(goqu.C("status"), goqu.COUNT("*").As("n")).
		GroupBy(goqu.C("status")))
	if err != nil {
		return counts, fmt.Errorf("count copies: %w", err)
	}
	for _, r := range rows {
		counts.Copies += r.N
		switch domain.CopyStatus(r.Status) {
		case domain.CopyStatusAvailable:
			counts.Available = r.N
		case domain.CopyStatusCheckedOut:
			counts.CheckedOut = r.N
		}
	}
	return counts, nil
}

// Catalog

func (a *SQLAdapter) getTitle(ctx context.Context, q querier, titleID int64, lock bool) (*domain.Title, error) {
	ds := a.from(tableTitles).Select(titleColumns...).Where(goqu.C("id").Eq(titleID))
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}

	var row titleRow
	err := get(ctx, q, &row, ds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query title: %w", err)
	}
	t := row.toDomain()
	return &t, nil
}

func (a *SQLAdapter) GetTitle(ctx context.Context, titleID int64) (*domain.Title, error) {
	return a.getTitle(ctx, a.db, titleID, false)
}

func (a *SQLAdapter) CreateTitle(ctx context.Context, title *domain.Title, copies int) ([]domain.Copy, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := a.insert(ctx, tx, tableTitles, goqu.Record{
		"name":           title.Name,
		"creator":        title.Creator,
		"category":       title.Category,
		"published_on":   title.PublishedOn.UTC(),
		"shelf_location": title.ShelfLocation,
		"created_at":     title.CreatedAt.UTC(),
		"updated_at":     title.UpdatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("insert title: %w", err)
	}

	if copies > 0 {
		rows := make([]any, 0, copies)
		for i := 1; i <= copies; i++ {
			rows = append(rows, goqu.Record{
				"title_id": id,
				"barcode":  domain.CopyBarcode(id, i),
				"status":   string(domain.CopyStatusAvailable),
				"version":  0,
			})
		}
		if _, err := exec(ctx, tx, a.dialect.Insert(tableCopies).Rows(rows...).Prepared(true)); err != nil {
			return nil, fmt.Errorf("insert copies: %w", err)
		}
	}

	created, err := a.listCopies(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	title.ID = id
	return created, nil
}

func (a *SQLAdapter) UpdateTitle(ctx context.Context, title domain.Title) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := a.getTitle(ctx, tx, title.ID, true)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrTitleNotFound
	}

	_, err = exec(ctx, tx, a.dialect.Update(tableTitles).Prepared(true).
		Set(goqu.Record{
			"name":           title.Name,
			"creator":        title.Creator,
			"category":       title.Category,
			"published_on":   title.PublishedOn.UTC(),
			"shelf_location": title.ShelfLocation,
			"updated_at":     title.UpdatedAt.UTC(),
		}).
		Where(goqu.C("id").Eq(title.ID)))
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}

	return tx.Commit()
}

func (a *SQLAdapter) DeleteTitle(ctx context.Context, titleID int64) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := a.getTitle(ctx, tx, titleID, true)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrTitleNotFound
	}

	loans, err := count(ctx, tx, a.from(tableLoans).Where(goqu.C("title_id").Eq(titleID)))
	if err != nil {
		return fmt.Errorf("count loans: %w", err)
	}
	if loans > 0 {
		return domain.ErrTitleHasLoans
	}

	for _, table := range []string{tableReservations, tableCopies} {
		if _, err := exec(ctx, tx, a.dialect.Delete(table).Prepared(true).Where(goqu.C("title_id").Eq(titleID))); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err := exec(ctx, tx, a.dialect.Delete(tableTitles).Prepared(true).Where(goqu.C("id").Eq(titleID))); err != nil {
		return fmt.Errorf("delete title: %w", err)
	}

	return tx.Commit()
}

func (a *SQLAdapter) ListCopies(ctx context.Context, titleID int64) ([]domain.Copy, error) {
	return a.listCopies(ctx, a.db, titleID)
}

func (a *SQLAdapter) listCopies(ctx context.Context, q querier, titleID int64) ([]domain.Copy, error) {
	var rows []copyRow
	err := selectAll(ctx, q, &rows, a.from(tableCopies).
		Select(copyColumns...).
		Where(goqu.C("title_id").Eq(titleID)).
		Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, fmt.Errorf("query copies: %w", err)
	}
	copies := make([]domain.Copy, 0, len(rows))
	for _, r := range rows {
		copies = append(copies, r.toDomain())
	}
	return copies, nil
}

func (a *SQLAdapter) SearchTitles(ctx context.Context, filter domain.TitleFilter) ([]domain.Title, error) {
	ds := a.from(tableTitles).Select(titleColumns...)
	for _, f := range []struct{ column, value string }{
		{"name", filter.Name},
		{"creator", filter.Creator},
		{"category", filter.Category},
	} {
		if f.value != "" {
			ds = ds.Where(goqu.C(f.column).ILike("%" + escapeLike(f.value) + "%"))
		}
	}
	if filter.PublishedOn != nil {
		ds = ds.Where(goqu.C("published_on").Eq(filter.PublishedOn.UTC()))
	}

	var rows []titleRow
	if err := selectAll(ctx, a.db, &rows, ds.Order(goqu.C("id").Asc())); err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	titles := make([]domain.Title, 0, len(rows))
	for _, r := range rows {
		titles = append(titles, r.toDomain())
	}
	return titles, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Borrowers

func (a *SQLAdapter) GetBorrower(ctx context.Context, borrowerID int64) (*domain.Borrower, error) {
	var row borrowerRow
	err := get(ctx, a.db, &row, a.from(tableBorrowers).
		Select(borrowerColumns...).
		Where(goqu.C("id").Eq(borrowerID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query borrower: %w", err)
	}
	b := row.toDomain()
	return &b, nil
}

func (a *SQLAdapter) SaveBorrower(ctx context.Context, borrower domain.Borrower) error {
	_, err := exec(ctx, a.db, a.dialect.Insert(tableBorrowers).Prepared(true).
		Rows(goqu.Record{
			"id":     borrower.ID,
			"name":   borrower.Name,
			"email":  borrower.Email,
			"active": borrower.Active,
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":   borrower.Name,
			"email":  borrower.Email,
			"active": borrower.Active,
		})))
	if err != nil {
		return fmt.Errorf("upsert borrower: %w", err)
	}
	return nil
}
