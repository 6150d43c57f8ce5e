package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// ExpenseHandler serves suppliers, expense categories and expenses.
type ExpenseHandler struct {
	Repo     *repository.ExpenseRepo
	Settings *repository.SettingsRepo
}

func NewExpenseHandler(r *repository.ExpenseRepo, s *repository.SettingsRepo) *ExpenseHandler {
	return &ExpenseHandler{Repo: r, Settings: s}
}

// ---- Suppliers ----

type supplierReq struct {
	Name          string  `json:"name" validate:"required,max=150"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=150"`
	Email         *string `json:"email" validate:"omitempty,email,max=190"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Address       *string `json:"address"`
}

func (r supplierReq) toSupplier(id uint64) model.Supplier {
	return model.Supplier{
		ID:            id,
		Name:          strings.TrimSpace(r.Name),
		ContactPerson: trimPtr(r.ContactPerson),
		Email:         trimPtr(r.Email),
		Phone:         trimPtr(r.Phone),
		Address:       trimPtr(r.Address),
	}
}

// ListSuppliers GET /v1/suppliers
func (h *ExpenseHandler) ListSuppliers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.ListSuppliers(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateSupplier POST /v1/suppliers
func (h *ExpenseHandler) CreateSupplier(c echo.Context) error {
	var req supplierReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	sp := req.toSupplier(0)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateSupplier(ctx, &sp); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sp)
}

// GetSupplier GET /v1/suppliers/:id
func (h *ExpenseHandler) GetSupplier(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.Repo.GetSupplier(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

// UpdateSupplier PUT /v1/suppliers/:id
func (h *ExpenseHandler) UpdateSupplier(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req supplierReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	sp := req.toSupplier(id)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.UpdateSupplier(ctx, &sp); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

// DeleteSupplier DELETE /v1/suppliers/:id
func (h *ExpenseHandler) DeleteSupplier(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteSupplier(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Categories ----

type categoryReq struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

// ListCategories GET /v1/expense-categories
func (h *ExpenseHandler) ListCategories(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.ListCategories(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateCategory POST /v1/expense-categories
func (h *ExpenseHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	cat := model.ExpenseCategory{Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description)}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateCategory(ctx, &cat); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

// UpdateCategory PUT /v1/expense-categories/:id
func (h *ExpenseHandler) UpdateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req categoryReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	cat := model.ExpenseCategory{ID: id, Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description)}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.UpdateCategory(ctx, &cat); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory DELETE /v1/expense-categories/:id
func (h *ExpenseHandler) DeleteCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteCategory(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Expenses ----

type expenseReq struct {
	SupplierID    *uint64        `json:"supplier_id" validate:"omitempty,gt=0"`
	CategoryID    *uint64        `json:"category_id" validate:"omitempty,gt=0"`
	Amount        billing.Amount `json:"amount"`
	Currency      string         `json:"currency" validate:"omitempty,len=3"`
	ExpenseDate   model.Date     `json:"expense_date" validate:"required"`
	Description   string         `json:"description" validate:"required,max=255"`
	Reference     *string        `json:"reference" validate:"omitempty,max=100"`
	AttachmentURL *string        `json:"attachment_url" validate:"omitempty,max=500"`
}

// toExpense checks the amount and fills the currency from the dive-center
// settings when the client leaves it out.
func (h *ExpenseHandler) toExpense(c echo.Context, req expenseReq, id uint64) (model.Expense, error) {
	if req.Amount.Sign() <= 0 {
		return model.Expense{}, badRequestf("amount must be greater than 0")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		s, err := h.Settings.Get(c.Request().Context())
		if err != nil {
			return model.Expense{}, err
		}
		currency = s.Currency
	}
	return model.Expense{
		ID:            id,
		SupplierID:    req.SupplierID,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount.Round(2),
		Currency:      currency,
		ExpenseDate:   req.ExpenseDate,
		Description:   strings.TrimSpace(req.Description),
		Reference:     trimPtr(req.Reference),
		AttachmentURL: trimPtr(req.AttachmentURL),
	}, nil
}

func expenseFilter(c echo.Context) (model.ExpenseFilter, error) {
	var (
		f   model.ExpenseFilter
		err error
	)
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && !f.From.OnOrBefore(*f.To) {
		return f, badRequestf("from must not be after to")
	}
	if f.SupplierID, err = queryUint(c, "supplier_id"); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryUint(c, "category_id"); err != nil {
		return f, err
	}
	return f, nil
}

// ListExpenses GET /v1/expenses?from=&to=&supplier_id=&category_id=
func (h *ExpenseHandler) ListExpenses(c echo.Context) error {
	f, err := expenseFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	p := pageRequest(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Repo.ListExpenses(ctx, f, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.NewPage(rows, total, p))
}

// Totals GET /v1/expenses/totals?from=&to=&supplier_id=&category_id=
func (h *ExpenseHandler) Totals(c echo.Context) error {
	f, err := expenseFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.Totals(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	sum := billing.NewAmount(decimal.Zero)
	for _, t := range out {
		sum.Decimal = sum.Add(t.Total)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": out, "total": sum})
}

// CreateExpense POST /v1/expenses
func (h *ExpenseHandler) CreateExpense(c echo.Context) error {
	var req expenseReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	e, err := h.toExpense(c, req, 0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateExpense(ctx, &e); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// GetExpense GET /v1/expenses/:id
func (h *ExpenseHandler) GetExpense(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Repo.GetExpense(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// UpdateExpense PUT /v1/expenses/:id
func (h *ExpenseHandler) UpdateExpense(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req expenseReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	e, err := h.toExpense(c, req, id)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.UpdateExpense(ctx, &e); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// DeleteExpense DELETE /v1/expenses/:id
func (h *ExpenseHandler) DeleteExpense(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteExpense(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
