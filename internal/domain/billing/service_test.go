package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	invoices      map[uuid.UUID]*Invoice
	takenNumbers  map[string]bool
	failUniqueFor string
}

func newMockRepo() *mockRepo {
	return &mockRepo{invoices: make(map[uuid.UUID]*Invoice), takenNumbers: make(map[string]bool)}
}

func (m *mockRepo) Create(ctx context.Context, inv *Invoice) error {
	if inv.InvoiceNumber == m.failUniqueFor {
		// The rival create commits its row at the moment we collide.
		m.failUniqueFor = ""
		m.takenNumbers[inv.InvoiceNumber] = true
		return &pgconn.PgError{Code: "23505", ConstraintName: "billings_invoice_number_key"}
	}
	if m.takenNumbers[inv.InvoiceNumber] {
		return &pgconn.PgError{Code: "23505", ConstraintName: "billings_invoice_number_key"}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.invoices[inv.ID] = inv
	m.takenNumbers[inv.InvoiceNumber] = true
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return inv, nil
}

func (m *mockRepo) UpdatePayment(ctx context.Context, inv *Invoice) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Invoice, int, error) {
	var items []*Invoice
	for _, inv := range m.invoices {
		if filter.PatientID != nil && inv.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && inv.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		items = append(items, inv)
	}
	return items, len(items), nil
}

func (m *mockRepo) CountForYear(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	n := 0
	for number := range m.takenNumbers {
		if strings.HasPrefix(number, prefix) {
			n++
		}
	}
	return n, nil
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, nil, nil, zerolog.Nop())
}

func createReq() CreateRequest {
	return CreateRequest{
		PatientID: uuid.New().String(),
		DoctorID:  uuid.New().String(),
		Items: []LineItemRequest{
			{Description: "Consultation fee", Quantity: 1, UnitPrice: 150},
		},
	}
}

func TestCreate_AssignsSequentialInvoiceNumbers(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	first, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.InvoiceNumber != "INV-2026-000001" {
		t.Errorf("expected INV-2026-000001, got %s", first.InvoiceNumber)
	}
	if first.Status != StatusPending {
		t.Errorf("expected Pending, got %s", first.Status)
	}

	second, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.InvoiceNumber != "INV-2026-000002" {
		t.Errorf("expected INV-2026-000002, got %s", second.InvoiceNumber)
	}
}

func TestCreate_SequenceRestartsEachYear(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	svc.now = func() time.Time { return time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC) }
	if _, err := svc.Create(context.Background(), createReq()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2027, 1, 1, 1, 0, 0, 0, time.UTC) }
	inv, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.InvoiceNumber != "INV-2027-000001" {
		t.Errorf("expected INV-2027-000001, got %s", inv.InvoiceNumber)
	}
}

func TestCreate_RetriesOnInvoiceNumberCollision(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	// A concurrent create claimed the first number between our count and
	// insert. The unique violation must trigger a retry, not an error.
	repo.failUniqueFor = "INV-2026-000001"

	inv, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.InvoiceNumber != "INV-2026-000002" {
		t.Errorf("expected INV-2026-000002 after collision, got %s", inv.InvoiceNumber)
	}
}

func TestCreate_ComputesTotals(t *testing.T) {
	svc := newTestService(newMockRepo())

	req := createReq()
	req.Items = []LineItemRequest{
		{Description: "Consultation", Quantity: 1, UnitPrice: 150},
		{Description: "Blood panel", Quantity: 2, UnitPrice: 40},
	}
	req.Tax = 23
	req.Discount = 10

	inv, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.Items[1].Total != 80 {
		t.Errorf("expected line total 80, got %v", inv.Items[1].Total)
	}
	if inv.Subtotal != 230 {
		t.Errorf("expected subtotal 230, got %v", inv.Subtotal)
	}
	if inv.TotalAmount != 243 {
		t.Errorf("expected total 243, got %v", inv.TotalAmount)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"bad patient id", func(r *CreateRequest) { r.PatientID = "nope" }},
		{"bad doctor id", func(r *CreateRequest) { r.DoctorID = "nope" }},
		{"no items", func(r *CreateRequest) { r.Items = nil }},
		{"item without description", func(r *CreateRequest) { r.Items[0].Description = "" }},
		{"zero quantity", func(r *CreateRequest) { r.Items[0].Quantity = 0 }},
		{"negative unit price", func(r *CreateRequest) { r.Items[0].UnitPrice = -5 }},
		{"negative tax", func(r *CreateRequest) { r.Tax = -1 }},
		{"discount above total", func(r *CreateRequest) { r.Discount = 1000 }},
		{"bad due date", func(r *CreateRequest) { bad := "tomorrow"; r.DueDate = &bad }},
		{"bad appointment id", func(r *CreateRequest) { bad := "nope"; r.AppointmentID = &bad }},
		{"bad claim status", func(r *CreateRequest) { r.InsuranceClaim = &InsuranceClaim{Status: "Maybe"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createReq()
			tc.mutate(&req)
			if _, err := svc.Create(context.Background(), req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestUpdatePayment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	method := "Card"
	paid, err := svc.UpdatePayment(context.Background(), inv.ID, PaymentRequest{Status: StatusPaid, PaymentMethod: &method})
	if err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if paid.Status != StatusPaid {
		t.Errorf("expected Paid, got %s", paid.Status)
	}
	if paid.PaymentDate == nil {
		t.Error("payment date not recorded")
	}
	if paid.PaymentMethod == nil || *paid.PaymentMethod != "Card" {
		t.Errorf("payment method not recorded: %v", paid.PaymentMethod)
	}
}

func TestUpdatePayment_Transitions(t *testing.T) {
	method := "Cash"
	cases := []struct {
		name    string
		from    string
		req     PaymentRequest
		wantErr bool
	}{
		{"pending to paid", StatusPending, PaymentRequest{Status: StatusPaid, PaymentMethod: &method}, false},
		{"pending to partially paid", StatusPending, PaymentRequest{Status: StatusPartiallyPaid, PaymentMethod: &method}, false},
		{"pending to overdue", StatusPending, PaymentRequest{Status: StatusOverdue}, false},
		{"pending to cancelled", StatusPending, PaymentRequest{Status: StatusCancelled}, false},
		{"partially paid to paid", StatusPartiallyPaid, PaymentRequest{Status: StatusPaid, PaymentMethod: &method}, false},
		{"partially paid to overdue", StatusPartiallyPaid, PaymentRequest{Status: StatusOverdue}, false},
		{"overdue to paid", StatusOverdue, PaymentRequest{Status: StatusPaid, PaymentMethod: &method}, false},
		{"overdue to partially paid", StatusOverdue, PaymentRequest{Status: StatusPartiallyPaid, PaymentMethod: &method}, false},
		{"paid is terminal", StatusPaid, PaymentRequest{Status: StatusPending}, true},
		{"paid to cancelled", StatusPaid, PaymentRequest{Status: StatusCancelled}, true},
		{"cancelled is terminal", StatusCancelled, PaymentRequest{Status: StatusPaid, PaymentMethod: &method}, true},
		{"paid without method", StatusPending, PaymentRequest{Status: StatusPaid}, true},
		{"paid with unknown method", StatusPending, PaymentRequest{Status: StatusPaid, PaymentMethod: strPtr("barter")}, true},
		{"partially paid without method", StatusPending, PaymentRequest{Status: StatusPartiallyPaid}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepo()
			svc := newTestService(repo)
			inv, _ := svc.Create(context.Background(), createReq())
			repo.invoices[inv.ID].Status = tc.from

			_, err := svc.UpdatePayment(context.Background(), inv.ID, tc.req)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUpdatePayment_RecordsInsuranceClaim(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	method := "Insurance"
	updated, err := svc.UpdatePayment(context.Background(), inv.ID, PaymentRequest{
		Status:        StatusPartiallyPaid,
		PaymentMethod: &method,
		InsuranceClaim: &InsuranceClaim{
			ClaimNumber:    "CLM-42",
			Provider:       "Acme Health",
			ClaimedAmount:  150,
			ApprovedAmount: 100,
			Status:         ClaimApproved,
		},
	})
	if err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if updated.InsuranceClaim == nil || updated.InsuranceClaim.Status != ClaimApproved {
		t.Fatalf("insurance claim not recorded: %+v", updated.InsuranceClaim)
	}
	if updated.InsuranceClaim.ApprovedAmount != 100 {
		t.Errorf("expected approved amount 100, got %v", updated.InsuranceClaim.ApprovedAmount)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Get(context.Background(), uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_FilterByStatus(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, _ := svc.Create(context.Background(), createReq())
	if _, err := svc.Create(context.Background(), createReq()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.invoices[a.ID].Status = StatusPaid

	items, total, err := svc.List(context.Background(), ListFilter{Status: StatusPaid}, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one paid invoice, got %d", total)
	}
}

func strPtr(s string) *string { return &s }
