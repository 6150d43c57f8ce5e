package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// CustomerHandler serves customers and their certifications, emergency
// contacts and insurance.
type CustomerHandler struct {
	Repo *repository.CustomerRepo
}

func NewCustomerHandler(r *repository.CustomerRepo) *CustomerHandler {
	return &CustomerHandler{Repo: r}
}

type customerReq struct {
	FullName    string      `json:"full_name" validate:"required,max=150"`
	Email       *string     `json:"email" validate:"omitempty,email,max=190"`
	Phone       *string     `json:"phone" validate:"omitempty,max=50"`
	Gender      *string     `json:"gender" validate:"omitempty,max=20"`
	DateOfBirth *model.Date `json:"date_of_birth"`
	Nationality *string     `json:"nationality" validate:"omitempty,max=100"`
	PassportNo  *string     `json:"passport_no" validate:"omitempty,max=50"`
	Address     *string     `json:"address"`
	Notes       *string     `json:"notes"`
}

func (r customerReq) apply(c *model.Customer) {
	c.FullName = strings.TrimSpace(r.FullName)
	c.Email = trimPtr(r.Email)
	c.Phone = trimPtr(r.Phone)
	c.Gender = trimPtr(r.Gender)
	c.DateOfBirth = r.DateOfBirth
	c.Nationality = trimPtr(r.Nationality)
	c.PassportNo = trimPtr(r.PassportNo)
	c.Address = trimPtr(r.Address)
	c.Notes = r.Notes
}

// List GET /v1/customers?search=&page=&per_page=
func (h *CustomerHandler) List(c echo.Context) error {
	p := pageRequest(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Repo.List(ctx, c.QueryParam("search"), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.NewPage(rows, total, p))
}

// Create POST /v1/customers
func (h *CustomerHandler) Create(c echo.Context) error {
	var req customerReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	var cust model.Customer
	req.apply(&cust)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Create(ctx, &cust); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

// Get GET /v1/customers/:id
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cust, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Update PUT /v1/customers/:id
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req customerReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	cust := model.Customer{ID: id}
	req.apply(&cust)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Update(ctx, &cust); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Delete DELETE /v1/customers/:id
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// requireCustomer resolves :id and confirms the customer exists so that
// sub-resource routes answer 404 for unknown customers.
func (h *CustomerHandler) requireCustomer(c echo.Context) (uint64, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return 0, err
	}
	ok, err := h.Repo.Exists(c.Request().Context(), id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

// ---- Certifications ----

type certificationReq struct {
	Agency            string      `json:"agency" validate:"required,max=50"`
	Level             string      `json:"level" validate:"required,max=100"`
	CertificationNo   *string     `json:"certification_no" validate:"omitempty,max=100"`
	CertificationDate *model.Date `json:"certification_date"`
	LastDiveDate      *model.Date `json:"last_dive_date"`
	DocumentURL       *string     `json:"document_url" validate:"omitempty,max=500"`
}

// ListCertifications GET /v1/customers/:id/certifications
func (h *CustomerHandler) ListCertifications(c echo.Context) error {
	cid, err := h.requireCustomer(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.ListCertifications(ctx, cid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateCertification POST /v1/customers/:id/certifications
func (h *CustomerHandler) CreateCertification(c echo.Context) error {
	cid, err := h.requireCustomer(c)
	if err != nil {
		return respondError(c, err)
	}
	var req certificationReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	cert := model.Certification{
		CustomerID:        cid,
		Agency:            strings.TrimSpace(req.Agency),
		Level:             strings.TrimSpace(req.Level),
		CertificationNo:   trimPtr(req.CertificationNo),
		CertificationDate: req.CertificationDate,
		LastDiveDate:      req.LastDiveDate,
		DocumentURL:       trimPtr(req.DocumentURL),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateCertification(ctx, &cert); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cert)
}

// DeleteCertification DELETE /v1/customers/:id/certifications/:certId
func (h *CustomerHandler) DeleteCertification(c echo.Context) error {
	cid, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	certID, err := parseID(c, "certId")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteCertification(ctx, cid, certID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Emergency contacts ----

type contactReq struct {
	Name         string  `json:"name" validate:"required,max=150"`
	Relationship *string `json:"relationship" validate:"omitempty,max=50"`
	Phone        string  `json:"phone" validate:"required,max=50"`
	Email        *string `json:"email" validate:"omitempty,email,max=190"`
	IsPrimary    bool    `json:"is_primary"`
}

// ListContacts GET /v1/customers/:id/emergency-contacts
func (h *CustomerHandler) ListContacts(c echo.Context) error {
	cid, err := h.requireCustomer(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.ListContacts(ctx, cid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateContact POST /v1/customers/:id/emergency-contacts
func (h *CustomerHandler) CreateContact(c echo.Context) error {
	cid, err := h.requireCustomer(c)
	if err != nil {
		return respondError(c, err)
	}
	var req contactReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ec := model.EmergencyContact{
		CustomerID:   cid,
		Name:         strings.TrimSpace(req.Name),
		Relationship: trimPtr(req.Relationship),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        trimPtr(req.Email),
		IsPrimary:    req.IsPrimary,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateContact(ctx, &ec); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ec)
}

// DeleteContact DELETE /v1/customers/:id/emergency-contacts/:contactId
func (h *CustomerHandler) DeleteContact(c echo.Context) error {
	cid, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	contactID, err := parseID(c, "contactId")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteContact(ctx, cid, contactID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Insurance ----

type insuranceReq struct {
	Provider    string      `json:"provider" validate:"required,max=150"`
	PolicyNo    string      `json:"policy_no" validate:"required,max=100"`
	ExpiryDate  *model.Date `json:"expiry_date"`
	DocumentURL *string     `json:"document_url" validate:"omitempty,max=500"`
}

// GetInsurance GET /v1/customers/:id/insurance
func (h *CustomerHandler) GetInsurance(c echo.Context) error {
	cid, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	in, err := h.Repo.GetInsurance(ctx, cid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, in)
}

// SaveInsurance PUT /v1/customers/:id/insurance
func (h *CustomerHandler) SaveInsurance(c echo.Context) error {
	cid, err := h.requireCustomer(c)
	if err != nil {
		return respondError(c, err)
	}
	var req insuranceReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	in := model.Insurance{
		CustomerID:  cid,
		Provider:    strings.TrimSpace(req.Provider),
		PolicyNo:    strings.TrimSpace(req.PolicyNo),
		ExpiryDate:  req.ExpiryDate,
		DocumentURL: trimPtr(req.DocumentURL),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.SaveInsurance(ctx, &in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, in)
}
