package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	billingapp "github.com/propfolio/backend/internal/application/billing"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/infrastructure/event"
	"github.com/propfolio/backend/internal/interfaces/http/middleware"
)

var testOrgID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
var testUserID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

// MockUtilityBillRepository implements billing.UtilityBillRepository for testing
type MockUtilityBillRepository struct {
	mock.Mock
}

func (m *MockUtilityBillRepository) Create(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockUtilityBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.UtilityBill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*billing.UtilityBill, error) {
	args := m.Called(ctx, id, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) ([]*billing.UtilityBill, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUtilityBillRepository) Save(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockUtilityBillRepository) MarkPosted(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

// Unused collaborators are embedded interface stubs; any call panics,
// which is the point: these paths must not be reached by the tests here.
type stubInvoiceRepo struct{ billing.InvoiceRepository }
type stubLeaseRepo struct{ leasing.LeaseRepository }
type stubUnitRepo struct{ leasing.UnitRepository }
type stubEntityRepo struct{ ledger.FinancialEntityRepository }
type stubJournalRepo struct{ ledger.JournalEntryRepository }

func init() {
	middleware.SetupValidator()
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// Test authentication middleware with a fixed organization and user
	router.Use(func(c *gin.Context) {
		c.Set(middleware.JWTOrganizationIDKey, testOrgID.String())
		c.Set(middleware.JWTUserIDKey, testUserID.String())
		c.Next()
	})
	return router
}

func setupBillHandler(billRepo *MockUtilityBillRepository) *UtilityBillHandler {
	posting := ledger.NewPostingService(stubEntityRepo{}, stubJournalRepo{}, zap.NewNop())
	service := billingapp.NewUtilityBillService(
		billRepo, stubInvoiceRepo{}, stubLeaseRepo{}, stubUnitRepo{},
		posting, event.NewInMemoryEventBus(zap.NewNop()), zap.NewNop())
	return NewUtilityBillHandler(service)
}

func TestUtilityBillHandler_Create_Success(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)
	billRepo.On("Create", mock.Anything, mock.AnythingOfType("*billing.UtilityBill")).Return(nil)

	router := setupTestRouter()
	handler := setupBillHandler(billRepo)
	router.POST("/utility-bills", handler.Create)

	reqBody := CreateUtilityBillRequest{
		PropertyID:   uuid.New().String(),
		ProviderName: "Metro Water",
		TotalAmount:  450.00,
		BillDate:     "2026-08-01",
		DueDate:      "2026-09-01",
		SplitMethod:  "EQUAL",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/utility-bills", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    UtilityBillResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "DRAFT", resp.Data.Status)
	assert.Equal(t, testOrgID.String(), resp.Data.OrganizationID)
	billRepo.AssertExpectations(t)
}

func TestUtilityBillHandler_Create_InvalidJSON(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)
	router := setupTestRouter()
	handler := setupBillHandler(billRepo)
	router.POST("/utility-bills", handler.Create)

	req := httptest.NewRequest(http.MethodPost, "/utility-bills", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	billRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUtilityBillHandler_Create_RejectsBadSplitMethod(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)
	router := setupTestRouter()
	handler := setupBillHandler(billRepo)
	router.POST("/utility-bills", handler.Create)

	body, _ := json.Marshal(gin.H{
		"property_id":   uuid.New().String(),
		"provider_name": "Metro Water",
		"total_amount":  450.00,
		"bill_date":     "2026-08-01",
		"due_date":      "2026-09-01",
		"split_method":  "RANDOM",
	})
	req := httptest.NewRequest(http.MethodPost, "/utility-bills", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUtilityBillHandler_Create_MissingOrganization(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)
	handler := setupBillHandler(billRepo)

	gin.SetMode(gin.TestMode)
	router := gin.New() // no auth middleware
	router.POST("/utility-bills", handler.Create)

	body, _ := json.Marshal(CreateUtilityBillRequest{
		PropertyID:   uuid.New().String(),
		ProviderName: "Metro Water",
		TotalAmount:  450.00,
		BillDate:     "2026-08-01",
		DueDate:      "2026-09-01",
		SplitMethod:  "EQUAL",
	})
	req := httptest.NewRequest(http.MethodPost, "/utility-bills", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUtilityBillHandler_GetByID_NotFound(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)
	billID := uuid.New()
	billRepo.On("FindByIDForOrg", mock.Anything, billID, testOrgID).Return(nil, nil)

	router := setupTestRouter()
	handler := setupBillHandler(billRepo)
	router.GET("/utility-bills/:id", handler.GetByID)

	req := httptest.NewRequest(http.MethodGet, "/utility-bills/"+billID.String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUtilityBillHandler_Post_AlreadyPostedConflicts(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)

	bill := newPostedBill(t)
	billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, testOrgID).Return(bill, nil)

	router := setupTestRouter()
	handler := setupBillHandler(billRepo)
	router.POST("/utility-bills/:id/post", handler.Post)

	req := httptest.NewRequest(http.MethodPost, "/utility-bills/"+bill.ID.String()+"/post", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ALREADY_POSTED", resp.Error.Code)
}

func TestUtilityBillHandler_List_ReturnsMeta(t *testing.T) {
	billRepo := new(MockUtilityBillRepository)
	bills := []*billing.UtilityBill{newDraftBill(t), newDraftBill(t)}
	billRepo.On("FindAllForOrg", mock.Anything, testOrgID, mock.Anything).Return(bills, nil)
	billRepo.On("CountForOrg", mock.Anything, testOrgID, mock.Anything).Return(int64(42), nil)

	router := setupTestRouter()
	handler := setupBillHandler(billRepo)
	router.GET("/utility-bills", handler.List)

	req := httptest.NewRequest(http.MethodGet, "/utility-bills?page=1&page_size=20", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Data    []UtilityBillResponse `json:"data"`
		Meta    struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"meta"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(42), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func newDraftBill(t *testing.T) *billing.UtilityBill {
	t.Helper()
	bill, err := billing.NewUtilityBill(
		testOrgID, uuid.New(), "Metro Water",
		decimal.NewFromFloat(300.00), time.Now(), time.Now().AddDate(0, 1, 0),
		billing.SplitMethodEqual, billing.ImportMethodManual,
	)
	assert.NoError(t, err)
	return bill
}

func newPostedBill(t *testing.T) *billing.UtilityBill {
	t.Helper()
	bill := newDraftBill(t)
	bill.Status = billing.BillStatusPosted
	now := time.Now()
	bill.PostedAt = &now
	return bill
}
