package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/food-pantry/internal/handler"
)

// Middlewares groups the optional per-route middleware.  Cache wraps the
// read endpoints, Limit the mutating ones.  Nil entries are skipped.
type Middlewares struct {
	Cache echo.MiddlewareFunc
	Limit echo.MiddlewareFunc
}

func (m Middlewares) cache() []echo.MiddlewareFunc { return nonNil(m.Cache) }
func (m Middlewares) limit() []echo.MiddlewareFunc { return nonNil(m.Limit) }

func nonNil(fns ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(fns))
	for _, f := range fns {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// RegisterHealth exposes GET /healthz.
func RegisterHealth(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterInventory registers the pantry API:
//
//	GET    /items             list items
//	GET    /items.xlsx        download items as .xlsx
//	POST   /items.xlsx        create items from an .xlsx upload
//	GET    /items/:name       one item
//	DELETE /items/:name       delete one item
//	POST   /create            create an item
//	POST   /checkout          single or batch checkout
//	POST   /restock           single or batch restock
//	GET    /logs              query the transaction log
//	DELETE /delete_all        wipe items and logs
func RegisterInventory(e *echo.Echo, h *handler.InventoryHandler, m Middlewares) {
	e.GET("/items", h.ListItems, m.cache()...)
	e.GET("/items.xlsx", h.ExportItems)
	e.POST("/items.xlsx", h.ImportItems, m.limit()...)
	e.GET("/items/:name", h.GetItem, m.cache()...)
	e.DELETE("/items/:name", h.DeleteItem, m.limit()...)
	e.POST("/create", h.CreateItem, m.limit()...)
	e.POST("/checkout", h.Checkout, m.limit()...)
	e.POST("/restock", h.Restock, m.limit()...)
	e.GET("/logs", h.Logs, m.cache()...)
	e.DELETE("/delete_all", h.DeleteAll, m.limit()...)
}
