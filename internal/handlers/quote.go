package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/models"
	"github.com/localnerve/salesops/internal/services"
	"github.com/shopspring/decimal"
)

// QuoteHandler handles quotation routes
type QuoteHandler struct {
	Service *services.QuoteService
	Log     *logger.Logger
}

// QuoteRequest is the body of create and update quote. Lines are replaced as a whole on update.
type QuoteRequest struct {
	Title        string                 `json:"title" validate:"required,max=255"`
	CustomerName string                 `json:"customerName" validate:"max=255"`
	Currency     string                 `json:"currency" validate:"required,len=3"`
	ValidUntil   string                 `json:"validUntil" validate:"omitempty,datetime=2006-01-02"`
	Note         string                 `json:"note"`
	CreatedBy    string                 `json:"createdBy" validate:"max=64"`
	Customers    []QuoteCustomerRequest `json:"customers" validate:"required,min=1,dive"`
}

// QuoteCustomerRequest is one customer block of a quote
type QuoteCustomerRequest struct {
	CustomerName string             `json:"customerName" validate:"required,max=255"`
	ContactName  string             `json:"contactName" validate:"max=255"`
	ContactEmail string             `json:"contactEmail" validate:"omitempty,email,max=255"`
	Items        []QuoteItemRequest `json:"items" validate:"dive"`
}

// QuoteItemRequest is one priced line; amount is computed
type QuoteItemRequest struct {
	ProductCode string          `json:"productCode" validate:"required,max=64"`
	ProductName string          `json:"productName" validate:"max=255"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=0" swaggertype:"number"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0" swaggertype:"number"`
	Attributes  models.JSON     `json:"attributes" swaggertype:"object"`
}

// QuoteStatusRequest is the body of a status change
type QuoteStatusRequest struct {
	Status       string `json:"status" validate:"required,oneof=DRAFT SUBMITTED APPROVED REJECTED SENT WON LOST"`
	ApprovalRule string `json:"approvalRule" validate:"max=64"`
}

func (r QuoteRequest) model() (*models.Quote, error) {
	q := &models.Quote{
		Title:        r.Title,
		CustomerName: r.CustomerName,
		Currency:     r.Currency,
		Note:         r.Note,
		CreatedBy:    r.CreatedBy,
		Customers:    make([]models.QuoteCustomer, len(r.Customers)),
	}
	if r.ValidUntil != "" {
		t, err := parseDate("validUntil", r.ValidUntil)
		if err != nil {
			return nil, err
		}
		q.ValidUntil = &t
	}
	for i, cr := range r.Customers {
		cust := models.QuoteCustomer{
			CustomerName: cr.CustomerName,
			ContactName:  cr.ContactName,
			ContactEmail: cr.ContactEmail,
			Items:        make([]models.QuoteItem, len(cr.Items)),
		}
		for j, ir := range cr.Items {
			cust.Items[j] = models.QuoteItem{
				ProductCode: ir.ProductCode,
				ProductName: ir.ProductName,
				Quantity:    ir.Quantity,
				UnitPrice:   ir.UnitPrice,
				Attributes:  ir.Attributes,
			}
		}
		q.Customers[i] = cust
	}
	return q, nil
}

// Search handles GET /api/quotes
// @Summary Search quotes
// @Description All filters optional and combined; keyword matches number, title and note; customer matches any customer name
// @Tags Quotes
// @Produce json
// @Param startDate query string false "From quote date (YYYY-MM-DD)"
// @Param endDate query string false "To quote date (YYYY-MM-DD)"
// @Param status query string false "Status"
// @Param keyword query string false "Keyword"
// @Param customer query string false "Customer name contains"
// @Success 200 {array} models.Quote
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /quotes [get]
func (h *QuoteHandler) Search(c *fiber.Ctx) error {
	quotes, err := h.Service.SearchQuotes(c.UserContext(), services.QuoteSearch{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Status:    c.Query("status"),
		Keyword:   c.Query("keyword"),
		Customer:  c.Query("customer"),
	})
	if err != nil {
		return writeError(c, h.Log, err, "searchQuotes")
	}
	return c.JSON(quotes)
}

// NextNumber handles GET /api/quotes/next-number
// @Summary Preview the next quote number for today
// @Description The number is not reserved; a concurrent create may take it
// @Tags Quotes
// @Produce json
// @Success 200 {object} services.QuoteNumber
// @Router /quotes/next-number [get]
func (h *QuoteHandler) NextNumber(c *fiber.Ctx) error {
	num, err := h.Service.PreviewQuoteNumber(c.UserContext())
	if err != nil {
		return writeError(c, h.Log, err, "nextQuoteNumber")
	}
	return c.JSON(num)
}

// Get handles GET /api/quotes/:id
// @Summary Get a quote with its customers and items
// @Tags Quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} models.Quote
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /quotes/{id} [get]
func (h *QuoteHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "getQuote")
	}
	q, err := h.Service.GetQuote(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.Log, err, "getQuote")
	}
	return c.JSON(q)
}

// Create handles POST /api/quotes
// @Summary Create a quote
// @Description Allocates the next quote number for today and stores all lines in one transaction
// @Tags Quotes
// @Accept json
// @Produce json
// @Param quote body QuoteRequest true "Quote"
// @Success 201 {object} models.Quote
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /quotes [post]
func (h *QuoteHandler) Create(c *fiber.Ctx) error {
	var req QuoteRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "createQuote")
	}
	q, err := req.model()
	if err != nil {
		return writeError(c, h.Log, err, "createQuote")
	}
	created, err := h.Service.CreateQuote(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.Log, err, "createQuote")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Update handles PUT /api/quotes/:id
// @Summary Replace a draft or rejected quote
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param quote body QuoteRequest true "Quote"
// @Success 200 {object} models.Quote
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /quotes/{id} [put]
func (h *QuoteHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "updateQuote")
	}
	var req QuoteRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "updateQuote")
	}
	q, err := req.model()
	if err != nil {
		return writeError(c, h.Log, err, "updateQuote")
	}
	q.ID = id
	updated, err := h.Service.UpdateQuote(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.Log, err, "updateQuote")
	}
	return c.JSON(updated)
}

// UpdateStatus handles PATCH /api/quotes/:id/status
// @Summary Change quote status
// @Description Approving or rejecting a submitted quote requires the approval rule applied
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param status body QuoteStatusRequest true "Status"
// @Success 200 {object} models.Quote
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /quotes/{id}/status [patch]
func (h *QuoteHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "updateQuoteStatus")
	}
	var req QuoteStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.Log, err, "updateQuoteStatus")
	}
	q, err := h.Service.UpdateQuoteStatus(c.UserContext(), id, req.Status, req.ApprovalRule)
	if err != nil {
		return writeError(c, h.Log, err, "updateQuoteStatus")
	}
	return c.JSON(q)
}

// Delete handles DELETE /api/quotes/:id
// @Summary Delete a draft quote
// @Tags Quotes
// @Param id path int true "Quote ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err, "deleteQuote")
	}
	if err := h.Service.DeleteQuote(c.UserContext(), id); err != nil {
		return writeError(c, h.Log, err, "deleteQuote")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
