package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// CustomerRepo persists customers and their certifications, emergency
// contacts and insurance policy.
type CustomerRepo struct{ db *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, full_name, email, phone, gender, date_of_birth, nationality,
	passport_no, address, notes, created_at, updated_at`

func scanCustomer(s interface{ Scan(...any) error }, c *model.Customer) error {
	return s.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Gender, &c.DateOfBirth,
		&c.Nationality, &c.PassportNo, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
}

// Create inserts the customer and fills in its id and timestamps.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO customers
		(full_name, email, phone, gender, date_of_birth, nationality, passport_no, address, notes)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.FullName, c.Email, c.Phone, c.Gender, c.DateOfBirth, c.Nationality, c.PassportNo, c.Address, c.Notes)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// GetByID loads one customer.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	var c model.Customer
	err := scanCustomer(r.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id=?", id), &c)
	return c, mapErr(err)
}

// Exists reports whether the customer id is known.
func (r *CustomerRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM customers WHERE id=?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// List returns one page of customers ordered by name. A non-empty search
// matches name, email, phone or passport number.
func (r *CustomerRepo) List(ctx context.Context, search string, p model.PageRequest) ([]model.Customer, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + s + "%"
		where = " WHERE full_name LIKE ? OR email LIKE ? OR phone LIKE ? OR passport_no LIKE ?"
		args = append(args, like, like, like, like)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+customerColumns+" FROM customers"+where+" ORDER BY full_name, id LIMIT ? OFFSET ?",
		append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update overwrites the editable fields.
func (r *CustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	err := affected(r.db.ExecContext(ctx, `UPDATE customers SET full_name=?, email=?, phone=?, gender=?,
		date_of_birth=?, nationality=?, passport_no=?, address=?, notes=? WHERE id=?`,
		c.FullName, c.Email, c.Phone, c.Gender, c.DateOfBirth, c.Nationality, c.PassportNo, c.Address, c.Notes, c.ID))
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// Delete removes a customer. Customers with bookings, baskets or invoices are
// referenced and yield ErrConflict.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM customers WHERE id=?", id))
}

// ---- Certifications ----

// ListCertifications returns a customer's certifications, newest first.
func (r *CustomerRepo) ListCertifications(ctx context.Context, customerID uint64) ([]model.Certification, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, customer_id, agency, level, certification_no,
		certification_date, last_dive_date, document_url, created_at
		FROM certifications WHERE customer_id=? ORDER BY certification_date DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Certification{}
	for rows.Next() {
		var c model.Certification
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Agency, &c.Level, &c.CertificationNo,
			&c.CertificationDate, &c.LastDiveDate, &c.DocumentURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCertification adds a certification to a customer.
func (r *CustomerRepo) CreateCertification(ctx context.Context, c *model.Certification) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO certifications
		(customer_id, agency, level, certification_no, certification_date, last_dive_date, document_url)
		VALUES (?,?,?,?,?,?,?)`,
		c.CustomerID, c.Agency, c.Level, c.CertificationNo, c.CertificationDate, c.LastDiveDate, c.DocumentURL)
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

// DeleteCertification removes one certification of the given customer.
func (r *CustomerRepo) DeleteCertification(ctx context.Context, customerID, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM certifications WHERE id=? AND customer_id=?", id, customerID))
}

// ---- Emergency contacts ----

// ListContacts returns a customer's emergency contacts, primary first.
func (r *CustomerRepo) ListContacts(ctx context.Context, customerID uint64) ([]model.EmergencyContact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, customer_id, name, relationship, phone, email, is_primary, created_at
		FROM emergency_contacts WHERE customer_id=? ORDER BY is_primary DESC, id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.EmergencyContact{}
	for rows.Next() {
		var c model.EmergencyContact
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Name, &c.Relationship, &c.Phone, &c.Email, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateContact adds an emergency contact. Marking it primary demotes the
// customer's other contacts in the same transaction.
func (r *CustomerRepo) CreateContact(ctx context.Context, c *model.EmergencyContact) error {
	return NewTxManager(r.db).InTx(ctx, func(tx *sql.Tx) error {
		if c.IsPrimary {
			if _, err := tx.ExecContext(ctx, "UPDATE emergency_contacts SET is_primary=0 WHERE customer_id=?", c.CustomerID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO emergency_contacts (customer_id, name, relationship, phone, email, is_primary)
			VALUES (?,?,?,?,?,?)`, c.CustomerID, c.Name, c.Relationship, c.Phone, c.Email, c.IsPrimary)
		if err != nil {
			return mapErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
		return nil
	})
}

// DeleteContact removes one emergency contact of the given customer.
func (r *CustomerRepo) DeleteContact(ctx context.Context, customerID, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM emergency_contacts WHERE id=? AND customer_id=?", id, customerID))
}

// ---- Insurance ----

// GetInsurance returns the customer's policy or ErrNotFound.
func (r *CustomerRepo) GetInsurance(ctx context.Context, customerID uint64) (model.Insurance, error) {
	var in model.Insurance
	err := r.db.QueryRowContext(ctx, `SELECT id, customer_id, provider, policy_no, expiry_date, document_url, created_at
		FROM insurances WHERE customer_id=?`, customerID).
		Scan(&in.ID, &in.CustomerID, &in.Provider, &in.PolicyNo, &in.ExpiryDate, &in.DocumentURL, &in.CreatedAt)
	return in, mapErr(err)
}

// SaveInsurance creates or replaces the customer's single policy.
func (r *CustomerRepo) SaveInsurance(ctx context.Context, in *model.Insurance) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO insurances (customer_id, provider, policy_no, expiry_date, document_url)
		VALUES (?,?,?,?,?)
		ON DUPLICATE KEY UPDATE provider=VALUES(provider), policy_no=VALUES(policy_no),
			expiry_date=VALUES(expiry_date), document_url=VALUES(document_url)`,
		in.CustomerID, in.Provider, in.PolicyNo, in.ExpiryDate, in.DocumentURL)
	if err != nil {
		return mapErr(err)
	}
	got, err := r.GetInsurance(ctx, in.CustomerID)
	if err != nil {
		return err
	}
	*in = got
	return nil
}
