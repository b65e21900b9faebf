package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ticketbay/ticketing/internal/app"
	"github.com/ticketbay/ticketing/internal/clock"
	"github.com/ticketbay/ticketing/internal/storage/postgres"
	"github.com/ticketbay/ticketing/internal/testutil"
)

func TestOrderLifecycle_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	clk := clock.NewManual(time.Now())
	inventory := app.NewInventoryService(postgres.NewInventoryRepository(pool), clk)
	orderRepo := postgres.NewOrderRepository(pool)
	orders := app.NewOrderService(orderRepo, app.NewAllocator(orderRepo), clk)
	reports := app.NewReportService(postgres.NewReportRepository(pool))
	router := NewRouter(Services{Events: inventory, TicketTypes: inventory, Orders: orders, Reports: reports}, RouterConfig{})

	rec := doRequest(router, http.MethodPost, "/events", `{"name":"Concert","description":"Live"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var event eventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}

	rec = doRequest(router, http.MethodPost, "/ticket-types", `{"event_id":"`+event.ID+`","name":"General","quantity":10}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ticket type: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tt ticketTypeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tt); err != nil {
		t.Fatalf("decode ticket type: %v", err)
	}
	if free := testutil.CountFree(t, ctx, pool, tt.ID); free != 10 {
		t.Fatalf("expected 10 free tickets, got %d", free)
	}

	rec = doRequest(router, http.MethodPost, "/orders", `{"ticket_type":"`+tt.ID+`","quantity":5}`, userIDHeader, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("order A: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var orderA orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &orderA); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	rec = doRequest(router, http.MethodPost, "/orders", `{"ticket_type":"`+tt.ID+`","quantity":6}`, userIDHeader, "bob")
	if rec.Code != http.StatusConflict {
		t.Fatalf("order B: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var pending pendingOrderError
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if pending.OrderID == "" {
		t.Fatalf("expected pending order id in conflict response")
	}

	rec = doRequest(router, http.MethodPatch, "/orders/"+orderA.ID, `{"cancelled":true}`, userIDHeader, "bob")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel: expected 404, got %d", rec.Code)
	}

	clk.Advance(5 * time.Minute)
	rec = doRequest(router, http.MethodPatch, "/orders/"+orderA.ID, `{"cancelled":true}`, userIDHeader, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel A: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if free := testutil.CountFree(t, ctx, pool, tt.ID); free != 10 {
		t.Fatalf("expected 10 free tickets after cancel, got %d", free)
	}

	rec = doRequest(router, http.MethodPost, "/orders/"+pending.OrderID+"/allocate", "", userIDHeader, "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("retry B: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/ticket-types/"+tt.ID+"/availability", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d", rec.Code)
	}
	var avail availabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if avail.Available != 4 {
		t.Fatalf("expected 4 available, got %d", avail.Available)
	}

	rec = doRequest(router, http.MethodGet, "/reports/cancellations?event=Concert", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary cancellationSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if summary.NumberOfOrders != 2 || summary.CancellationRate != "50.0%" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
