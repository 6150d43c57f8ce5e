package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/handler"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/middleware"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// Handlers bundles the resource handlers mounted under /v1.
type Handlers struct {
	Customers *handler.CustomerHandler
	Bookings  *handler.BookingHandler
	Equipment *handler.EquipmentHandler
	Baskets   *handler.BasketHandler
	Invoices  *handler.InvoiceHandler
	Expenses  *handler.ExpenseHandler
	Settings  *handler.SettingsHandler
	Uploads   *handler.UploadHandler
}

// RegisterResources registers the staff API under /v1. Every route needs a
// valid access token; mw runs after authentication (rate limit, cache).
// Deletes, settings changes and the expense ledger are ADMIN only.
func RegisterResources(e *echo.Echo, h Handlers, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	g.Use(mw...)
	admin := middleware.RequireRole(model.RoleAdmin)

	// ---- Customers ----
	c := h.Customers
	g.GET("/customers", c.List)
	g.POST("/customers", c.Create)
	g.GET("/customers/:id", c.Get)
	g.PUT("/customers/:id", c.Update)
	g.DELETE("/customers/:id", c.Delete, admin)
	g.GET("/customers/:id/certifications", c.ListCertifications)
	g.POST("/customers/:id/certifications", c.CreateCertification)
	g.DELETE("/customers/:id/certifications/:certId", c.DeleteCertification)
	g.GET("/customers/:id/emergency-contacts", c.ListContacts)
	g.POST("/customers/:id/emergency-contacts", c.CreateContact)
	g.DELETE("/customers/:id/emergency-contacts/:contactId", c.DeleteContact)
	g.GET("/customers/:id/insurance", c.GetInsurance)
	g.PUT("/customers/:id/insurance", c.SaveInsurance)

	// ---- Bookings, dives and groups ----
	b := h.Bookings
	g.GET("/bookings", b.List)
	g.POST("/bookings", b.Create)
	g.GET("/bookings/:id", b.Get)
	g.PUT("/bookings/:id", b.Update)
	g.DELETE("/bookings/:id", b.Delete, admin)
	g.GET("/booking-dives", b.ListDives)
	g.POST("/booking-dives", b.CreateDive)
	g.GET("/booking-dives/:id", b.GetDive)
	g.PUT("/booking-dives/:id", b.UpdateDive)
	g.POST("/booking-dives/:id/complete", b.CompleteDive)
	g.POST("/booking-dives/:id/cancel", b.CancelDive)
	g.DELETE("/booking-dives/:id", b.DeleteDive, admin)
	g.GET("/dive-groups", b.ListGroups)
	g.POST("/dive-groups", b.CreateGroup)
	g.GET("/dive-groups/:id", b.GetGroup)
	g.PUT("/dive-groups/:id", b.UpdateGroup)
	g.DELETE("/dive-groups/:id", b.DeleteGroup, admin)

	// ---- Equipment catalog and service tracking ----
	q := h.Equipment
	g.GET("/equipment", q.List)
	g.POST("/equipment", q.Create)
	g.GET("/equipment/:id", q.Get)
	g.PUT("/equipment/:id", q.Update)
	g.DELETE("/equipment/:id", q.Delete, admin)
	g.GET("/equipment-items", q.ListItems)
	g.GET("/equipment-items/overdue", q.Overdue)
	g.GET("/equipment-items/due", q.Due)
	g.POST("/equipment-items", q.CreateItem)
	g.GET("/equipment-items/:id", q.GetItem)
	g.PUT("/equipment-items/:id", q.UpdateItem)
	g.DELETE("/equipment-items/:id", q.DeleteItem, admin)
	g.GET("/equipment-items/:id/service-history", q.History)
	g.POST("/equipment-service-history/bulk", q.BulkService)

	// ---- Baskets and assignments ----
	k := h.Baskets
	g.GET("/equipment-baskets", k.List)
	g.POST("/equipment-baskets", k.Create)
	g.GET("/equipment-baskets/:id", k.Get)
	g.PUT("/equipment-baskets/:id", k.Update)
	g.DELETE("/equipment-baskets/:id", k.Delete, admin)
	g.POST("/equipment-baskets/:id/equipment/bulk", k.AddEquipment)
	g.POST("/equipment-baskets/:id/return", k.Return)
	g.POST("/equipment-baskets/:id/return-selected", k.ReturnSelected)
	g.POST("/booking-equipment/:id/return", k.ReturnOne)
	g.POST("/booking-equipment/:id/lost", k.MarkLost)
	g.PUT("/booking-equipment/:id/damage", k.UpdateDamage)

	// ---- Invoices and payments ----
	i := h.Invoices
	g.GET("/invoices", i.List)
	g.POST("/invoices", i.Create)
	g.GET("/invoices/:id", i.Get)
	g.PUT("/invoices/:id", i.Update)
	g.DELETE("/invoices/:id", i.Delete, admin)
	g.POST("/invoices/:id/cancel", i.Cancel)
	g.POST("/invoices/:id/recalculate", i.Recalculate)
	g.POST("/invoices/:id/items", i.AddItem)
	g.PUT("/invoices/:id/items/:itemId", i.UpdateItem)
	g.DELETE("/invoices/:id/items/:itemId", i.DeleteItem)
	g.POST("/invoices/:id/damage-charges", i.BillDamage)
	g.GET("/invoices/:id/payments", i.ListPayments)
	g.POST("/invoices/:id/payments", i.RecordPayment)
	g.DELETE("/payments/:id", i.DeletePayment, admin)

	// ---- Expenses (ADMIN) ----
	x := h.Expenses
	g.GET("/suppliers", x.ListSuppliers, admin)
	g.POST("/suppliers", x.CreateSupplier, admin)
	g.GET("/suppliers/:id", x.GetSupplier, admin)
	g.PUT("/suppliers/:id", x.UpdateSupplier, admin)
	g.DELETE("/suppliers/:id", x.DeleteSupplier, admin)
	g.GET("/expense-categories", x.ListCategories, admin)
	g.POST("/expense-categories", x.CreateCategory, admin)
	g.PUT("/expense-categories/:id", x.UpdateCategory, admin)
	g.DELETE("/expense-categories/:id", x.DeleteCategory, admin)
	g.GET("/expenses", x.ListExpenses, admin)
	g.GET("/expenses/totals", x.Totals, admin)
	g.POST("/expenses", x.CreateExpense, admin)
	g.GET("/expenses/:id", x.GetExpense, admin)
	g.PUT("/expenses/:id", x.UpdateExpense, admin)
	g.DELETE("/expenses/:id", x.DeleteExpense, admin)

	// ---- Settings and uploads ----
	g.GET("/settings", h.Settings.Get)
	g.PUT("/settings", h.Settings.Update, admin)
	g.POST("/uploads", h.Uploads.Upload)
}
