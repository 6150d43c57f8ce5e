package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// ExpenseRepo persists suppliers, expense categories and expenses.
type ExpenseRepo struct{ db *sql.DB }

func NewExpenseRepo(db *sql.DB) *ExpenseRepo { return &ExpenseRepo{db: db} }

// ---- Suppliers ----

const supplierColumns = "id, name, contact_person, email, phone, address, created_at, updated_at"

func scanSupplier(s interface{ Scan(...any) error }, sp *model.Supplier) error {
	return s.Scan(&sp.ID, &sp.Name, &sp.ContactPerson, &sp.Email, &sp.Phone, &sp.Address, &sp.CreatedAt, &sp.UpdatedAt)
}

// CreateSupplier inserts a supplier.
func (r *ExpenseRepo) CreateSupplier(ctx context.Context, sp *model.Supplier) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO suppliers (name, contact_person, email, phone, address) VALUES (?,?,?,?,?)",
		sp.Name, sp.ContactPerson, sp.Email, sp.Phone, sp.Address)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetSupplier(ctx, uint64(id))
	if err != nil {
		return err
	}
	*sp = got
	return nil
}

// GetSupplier loads one supplier.
func (r *ExpenseRepo) GetSupplier(ctx context.Context, id uint64) (model.Supplier, error) {
	var sp model.Supplier
	err := scanSupplier(r.db.QueryRowContext(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE id=?", id), &sp)
	return sp, mapErr(err)
}

// ListSuppliers returns every supplier by name.
func (r *ExpenseRepo) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+supplierColumns+" FROM suppliers ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Supplier{}
	for rows.Next() {
		var sp model.Supplier
		if err := scanSupplier(rows, &sp); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// UpdateSupplier overwrites a supplier.
func (r *ExpenseRepo) UpdateSupplier(ctx context.Context, sp *model.Supplier) error {
	err := affected(r.db.ExecContext(ctx, "UPDATE suppliers SET name=?, contact_person=?, email=?, phone=?, address=? WHERE id=?",
		sp.Name, sp.ContactPerson, sp.Email, sp.Phone, sp.Address, sp.ID))
	if err != nil {
		return err
	}
	got, err := r.GetSupplier(ctx, sp.ID)
	if err != nil {
		return err
	}
	*sp = got
	return nil
}

// DeleteSupplier removes a supplier without expenses.
func (r *ExpenseRepo) DeleteSupplier(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id=?", id))
}

// ---- Categories ----

// CreateCategory inserts a category. Duplicate names yield ErrConflict.
func (r *ExpenseRepo) CreateCategory(ctx context.Context, c *model.ExpenseCategory) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO expense_categories (name, description) VALUES (?,?)", c.Name, c.Description)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListCategories returns every category by name.
func (r *ExpenseRepo) ListCategories(ctx context.Context) ([]model.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, description, created_at FROM expense_categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ExpenseCategory{}
	for rows.Next() {
		var c model.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategory renames a category.
func (r *ExpenseRepo) UpdateCategory(ctx context.Context, c *model.ExpenseCategory) error {
	return affected(r.db.ExecContext(ctx, "UPDATE expense_categories SET name=?, description=? WHERE id=?", c.Name, c.Description, c.ID))
}

// DeleteCategory removes a category without expenses.
func (r *ExpenseRepo) DeleteCategory(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM expense_categories WHERE id=?", id))
}

// ---- Expenses ----

const expenseColumns = `id, supplier_id, category_id, amount, currency, expense_date, description, reference,
	attachment_url, created_at, updated_at`

func scanExpense(s interface{ Scan(...any) error }, e *model.Expense) error {
	return s.Scan(&e.ID, &e.SupplierID, &e.CategoryID, &e.Amount, &e.Currency, &e.ExpenseDate, &e.Description,
		&e.Reference, &e.AttachmentURL, &e.CreatedAt, &e.UpdatedAt)
}

// CreateExpense inserts an expense. Unknown supplier or category ids yield
// ErrNotFound.
func (r *ExpenseRepo) CreateExpense(ctx context.Context, e *model.Expense) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO expenses (supplier_id, category_id, amount, currency, expense_date,
		description, reference, attachment_url) VALUES (?,?,?,?,?,?,?,?)`,
		e.SupplierID, e.CategoryID, e.Amount, e.Currency, e.ExpenseDate, e.Description, e.Reference, e.AttachmentURL)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetExpense(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// GetExpense loads one expense.
func (r *ExpenseRepo) GetExpense(ctx context.Context, id uint64) (model.Expense, error) {
	var e model.Expense
	err := scanExpense(r.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id=?", id), &e)
	return e, mapErr(err)
}

// expenseWhere builds the filter clause; col qualifies column names.
func expenseWhere(f model.ExpenseFilter, col string) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.From != nil {
		where += " AND " + col + "expense_date>=?"
		args = append(args, *f.From)
	}
	if f.To != nil {
		where += " AND " + col + "expense_date<=?"
		args = append(args, *f.To)
	}
	if f.SupplierID != nil {
		where += " AND " + col + "supplier_id=?"
		args = append(args, *f.SupplierID)
	}
	if f.CategoryID != nil {
		where += " AND " + col + "category_id=?"
		args = append(args, *f.CategoryID)
	}
	return where, args
}

// ListExpenses returns a page of expenses, most recent first.
func (r *ExpenseRepo) ListExpenses(ctx context.Context, f model.ExpenseFilter, p model.PageRequest) ([]model.Expense, int, error) {
	where, args := expenseWhere(f, "")
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses"+where+
		" ORDER BY expense_date DESC, id DESC LIMIT ? OFFSET ?", append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Expense
	for rows.Next() {
		var e model.Expense
		if err := scanExpense(rows, &e); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// CategoryTotal is the summed spend of one category (nil for uncategorised).
type CategoryTotal struct {
	CategoryID *uint64         `json:"category_id"`
	Category   *string         `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// Totals sums expenses matching the filter, per category.
func (r *ExpenseRepo) Totals(ctx context.Context, f model.ExpenseFilter) ([]CategoryTotal, error) {
	where, args := expenseWhere(f, "x.")
	rows, err := r.db.QueryContext(ctx, `SELECT x.category_id, c.name, COALESCE(SUM(x.amount), 0), COUNT(*)
		FROM expenses x LEFT JOIN expense_categories c ON c.id = x.category_id`+
		where+` GROUP BY x.category_id, c.name ORDER BY c.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategoryTotal{}
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.CategoryID, &t.Category, &t.Total, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateExpense overwrites an expense.
func (r *ExpenseRepo) UpdateExpense(ctx context.Context, e *model.Expense) error {
	err := affected(r.db.ExecContext(ctx, `UPDATE expenses SET supplier_id=?, category_id=?, amount=?, currency=?,
		expense_date=?, description=?, reference=?, attachment_url=? WHERE id=?`,
		e.SupplierID, e.CategoryID, e.Amount, e.Currency, e.ExpenseDate, e.Description, e.Reference, e.AttachmentURL, e.ID))
	if err != nil {
		return err
	}
	got, err := r.GetExpense(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// DeleteExpense removes an expense.
func (r *ExpenseRepo) DeleteExpense(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id=?", id))
}
