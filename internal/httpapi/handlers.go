package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/service"
)

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.BookQuery{
		Search:   q.Get("search"),
		Page:     atoi(q.Get("page")),
		PageSize: atoi(q.Get("page_size")),
	}

	var err error
	if v := q.Get("category"); v != "" {
		if query.Category, err = domain.ParseBookCategory(v); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("status"); v != "" {
		if query.Status, err = domain.ParseBookStatus(v); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if query.MinPrice, err = decimalParam(q.Get("min_price")); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid min_price")
		return
	}
	if query.MaxPrice, err = decimalParam(q.Get("max_price")); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid max_price")
		return
	}

	page, err := h.svc.ListBooks(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var cmd service.CreateBookCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	book, err := h.svc.CreateBook(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.GetBookByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	var cmd service.UpdateBookCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.ID = chi.URLParam(r, "id")
	book, err := h.svc.UpdateBook(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	h.writeDeleted(w, r, "Book", chi.URLParam(r, "id"), h.svc.DeleteBook)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	var status domain.CustomerStatus
	if v := r.URL.Query().Get("status"); v != "" {
		var err error
		if status, err = domain.ParseCustomerStatus(v); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	customers, err := h.svc.ListCustomers(r.Context(), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var cmd service.CreateCustomerCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.GetCustomerByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) getCustomerByEmail(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.GetCustomerByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var cmd service.UpdateCustomerCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.ID = chi.URLParam(r, "id")
	customer, err := h.svc.UpdateCustomer(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomerStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.CustomerStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	customer, err := h.svc.UpdateCustomerStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	h.writeDeleted(w, r, "Customer", chi.URLParam(r, "id"), h.svc.DeleteCustomer)
}

// listOrders filters by placement time when both from and to are given as RFC 3339.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		h.writeOrders(w, r)(h.svc.ListOrders(r.Context()))
		return
	}

	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid from")
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid to")
		return
	}
	h.writeOrders(w, r)(h.svc.ListOrdersByDateRange(r.Context(), from, to))
}

func (h *Handler) listOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	h.writeOrders(w, r)(h.svc.ListOrdersByCustomer(r.Context(), chi.URLParam(r, "customerId")))
}

func (h *Handler) listOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseOrderStatus(chi.URLParam(r, "status"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeOrders(w, r)(h.svc.ListOrdersByStatus(r.Context(), status))
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var cmd service.CreateOrderCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.svc.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrderByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd service.UpdateOrderCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.ID = chi.URLParam(r, "id")
	order, err := h.svc.UpdateOrder(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) addOrderItem(w http.ResponseWriter, r *http.Request) {
	var cmd service.AddOrderItemCommand
	if err := decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")
	order, err := h.svc.AddOrderItem(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.svc.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	h.writeDeleted(w, r, "Order", chi.URLParam(r, "id"), h.svc.DeleteOrder)
}

func (h *Handler) writeOrders(w http.ResponseWriter, r *http.Request) func([]service.OrderDTO, error) {
	return func(orders []service.OrderDTO, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

// writeDeleted answers 204 on delete and 404 when there was nothing to delete.
func (h *Handler) writeDeleted(w http.ResponseWriter, r *http.Request, entity, id string, del func(context.Context, string) (bool, error)) {
	deleted, err := del(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		h.writeError(w, r, &domain.NotFoundError{Entity: entity, ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func decimalParam(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
