package handler

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/model"
	"github.com/iliyamo/food-pantry/internal/spreadsheet"
)

// maxImportBytes bounds the size of an uploaded workbook.
const maxImportBytes = 10 << 20

// InventoryHandler serves the item, checkout/restock and log endpoints.
type InventoryHandler struct {
	Svc       *inventory.Service
	Log       *zap.Logger
	ImportMax int // max_checkout given to items created by an import
}

// NewInventoryHandler panics when svc is nil.
func NewInventoryHandler(svc *inventory.Service, logger *zap.Logger, importMax int) *InventoryHandler {
	if svc == nil {
		panic("nil service passed to NewInventoryHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{Svc: svc, Log: logger, ImportMax: importMax}
}

// createRequest is the body of POST /create.
type createRequest struct {
	Name         string `json:"name"`
	InitialStock *int   `json:"initial_stock"`
	MaxCheckout  *int   `json:"max_checkout"`
}

// actionRequest accepts both the single-item shape {name, quantity,
// student_id} and the batch shape {student_id, items: [...]}.  Per-line
// student ids inside items are ignored.
type actionRequest struct {
	Name      *string                 `json:"name"`
	Quantity  *int                    `json:"quantity"`
	StudentID *string                 `json:"student_id"`
	Items     []inventory.LineRequest `json:"items"`
}

func (r actionRequest) batch() (inventory.BatchRequest, bool) {
	if r.Items != nil {
		return inventory.BatchRequest{StudentID: r.StudentID, Items: r.Items}, true
	}
	if r.Name == nil || r.Quantity == nil {
		return inventory.BatchRequest{}, false
	}
	return inventory.BatchRequest{
		StudentID: r.StudentID,
		Items:     []inventory.LineRequest{{Name: *r.Name, Quantity: *r.Quantity}},
	}, true
}

// failureResponse is returned when a batch is rejected.  All three
// buckets are always present.
type failureResponse struct {
	Message string `json:"message"`
	inventory.ValidationResult
}

// ListItems handles GET /items.
func (h *InventoryHandler) ListItems(c echo.Context) error {
	items, err := h.Svc.ListItems(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetItem handles GET /items/:name.
func (h *InventoryHandler) GetItem(c echo.Context) error {
	name, err := pathName(c)
	if err != nil {
		return h.fail(c, err)
	}
	item, err := h.Svc.GetItem(c.Request().Context(), name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /items/:name.  The item's history in the
// transaction log is kept.
func (h *InventoryHandler) DeleteItem(c echo.Context) error {
	name, err := pathName(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.Svc.DeleteItem(c.Request().Context(), name); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully."})
}

// CreateItem handles POST /create.  It answers 201 with a Location
// header, or 409 when the name is taken.
func (h *InventoryHandler) CreateItem(c echo.Context) error {
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "invalid request body"})
	}
	if body.InitialStock == nil || body.MaxCheckout == nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "name, initial_stock and max_checkout are required"})
	}
	item, err := h.Svc.CreateItem(c.Request().Context(), body.Name, *body.InitialStock, *body.MaxCheckout)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/items/"+url.PathEscape(item.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Created item " + item.Name + " with an initial stock of " + itoa(item.Stock),
	})
}

// Checkout handles POST /checkout.  Every line is validated before
// anything changes; a rejected batch lists all failing lines and maps to
// 404 (unknown item), 400 (over max) or 409 (not enough stock), in that
// precedence.
func (h *InventoryHandler) Checkout(c echo.Context) error {
	req, ok := h.bindAction(c)
	if !ok {
		return nil
	}
	rec, err := h.Svc.Checkout(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "Checked out items successfully.",
		"transaction_id": rec.ID,
	})
}

// Restock handles POST /restock.  Restocks only fail on unknown items.
func (h *InventoryHandler) Restock(c echo.Context) error {
	req, ok := h.bindAction(c)
	if !ok {
		return nil
	}
	rec, err := h.Svc.Restock(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	msg := "Restocked items successfully."
	if len(req.Items) == 1 {
		msg = "Restocked " + itoa(req.Items[0].Quantity) + " " + req.Items[0].Name + "(s)."
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":        msg,
		"transaction_id": rec.ID,
	})
}

// Logs handles GET /logs with optional day_of_week (name or 0-6, Monday
// = 0), student_id, item_name and action filters combined with AND.
func (h *InventoryHandler) Logs(c echo.Context) error {
	var f model.LogFilter
	if v := c.QueryParam("day_of_week"); v != "" {
		day, err := model.ParseWeekday(v)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
		}
		f.DayOfWeek = &day
	}
	if v := c.QueryParam("action"); v != "" {
		action, err := model.ParseAction(v)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
		}
		f.Action = &action
	}
	if c.QueryParams().Has("student_id") {
		v := c.QueryParam("student_id")
		f.StudentID = &v
	}
	if c.QueryParams().Has("item_name") {
		v := c.QueryParam("item_name")
		f.ItemName = &v
	}
	logs, err := h.Svc.QueryLogs(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

// DeleteAll handles DELETE /delete_all: every item and the whole log.
func (h *InventoryHandler) DeleteAll(c echo.Context) error {
	if err := h.Svc.DeleteAll(c.Request().Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All items have been deleted."})
}

// ExportItems handles GET /items.xlsx and streams an .xlsx workbook
// with one (name, stock) row per item.
func (h *InventoryHandler) ExportItems(c echo.Context) error {
	items, err := h.Svc.ListItems(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	var buf bytes.Buffer
	if err := spreadsheet.Encode(&buf, items); err != nil {
		h.Log.Error("encode workbook failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to write workbook"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=inventory.xlsx")
	return c.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

// ImportItems handles POST /items.xlsx.  The multipart field "file"
// holds an .xlsx workbook of (name, stock) rows; each row becomes a new
// item, and names that already exist are reported as skipped.
func (h *InventoryHandler) ImportItems(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "workbook file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to open upload"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImportBytes+1))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to read upload"})
	}
	if len(data) > maxImportBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"message": "workbook too large"})
	}
	seeds, err := spreadsheet.Decode(data)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
	}
	res, err := h.Svc.ImportItems(c.Request().Context(), seeds, h.ImportMax)
	if err != nil {
		if inventory.KindOf(err) == inventory.KindInvalid {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error(), "created": res.Created, "skipped": res.Skipped})
		}
		h.Log.Error("import failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "import failed", "created": res.Created, "skipped": res.Skipped})
	}
	return c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) bindAction(c echo.Context) (inventory.BatchRequest, bool) {
	var body actionRequest
	if err := c.Bind(&body); err != nil {
		_ = c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "invalid request body"})
		return inventory.BatchRequest{}, false
	}
	req, ok := body.batch()
	if !ok {
		_ = c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "either items or name and quantity are required"})
		return inventory.BatchRequest{}, false
	}
	return req, true
}

// fail maps a service error onto the HTTP taxonomy.
func (h *InventoryHandler) fail(c echo.Context, err error) error {
	if verr, ok := asValidation(err); ok {
		return c.JSON(StatusFor(verr.Kind()), failureResponse{Message: verr.Error(), ValidationResult: verr.Result})
	}
	kind := inventory.KindOf(err)
	switch kind {
	case inventory.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Item not found."})
	case inventory.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": "Item with the given name already exists."})
	case inventory.KindInvalid:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
	}
	h.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
}

// pathName returns the decoded :name segment.  Echo routes on
// URL.RawPath when it is set (e.g. an escaped "/"), and then hands back
// the segment still escaped; otherwise the segment is already decoded
// and must not be unescaped again.
func pathName(c echo.Context) (string, error) {
	name := c.Param("name")
	if c.Request().URL.RawPath != "" {
		decoded, err := url.PathUnescape(name)
		if err != nil {
			return "", inventory.ErrInvalidRequest
		}
		name = decoded
	}
	if strings.TrimSpace(name) == "" {
		return "", inventory.ErrInvalidRequest
	}
	return name, nil
}
