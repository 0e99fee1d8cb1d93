package accountdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/randompkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/tokenpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if err := web.RegisterValidators(); err != nil {
		fmt.Fprintf(os.Stderr, "web.RegisterValidators() returned error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

var cmpOpts = []cmp.Option{
	cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
	cmpopts.EquateApproxTime(time.Second),
}

func randomAccount(owner string) domain.Account {
	return domain.Account{
		ID:          randompkg.IntBetween(1, 1000),
		Owner:       owner,
		Name:        randompkg.String(8),
		Type:        domain.AccountTypeAsset,
		Subtype:     domain.SubtypeBank,
		Balance:     decimal.Zero,
		Description: randompkg.String(20),
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func newTokenMaker(t *testing.T) tokenpkg.Maker {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	return tokenMaker
}

type routeFunc func(server *gin.Engine, h Handler)

func serve(t *testing.T, tokenMaker tokenpkg.Maker, service *MockService, route routeFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	server := gin.New()
	server.Use(middleware.AuthMiddleware(tokenMaker))
	route(server, NewHandler(service))

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	return recorder
}

func TestCreate(t *testing.T) {
	username := randompkg.Owner()
	account := randomAccount(username)
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	type requestBody struct {
		Name        string `json:"name,omitempty"`
		Type        string `json:"type,omitempty"`
		Subtype     string `json:"subtype,omitempty"`
		Balance     any    `json:"balance,omitempty"`
		Description string `json:"description,omitempty"`
	}

	validBody := requestBody{
		Name:        account.Name,
		Type:        string(account.Type),
		Subtype:     string(account.Subtype),
		Description: account.Description,
	}

	wantParams := domain.CreateAccountParams{
		Owner:       username,
		Name:        account.Name,
		Type:        account.Type,
		Subtype:     account.Subtype,
		Balance:     decimal.Zero,
		Description: account.Description,
	}

	withBody := func(f func(b *requestBody)) requestBody {
		b := validBody
		f(&b)

		return b
	}

	testCases := []struct {
		name           string
		requestBody    requestBody
		setupAuth      func(t *testing.T, r *http.Request) error
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:        "OK",
			requestBody: validBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Eq(wantParams)).
					Times(1).
					Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "SeedBalance",
			requestBody: withBody(func(b *requestBody) {
				b.Balance = "125.50"
			}),
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(1).
					DoAndReturn(func(_ any, arg domain.CreateAccountParams) (domain.Account, error) {
						if !arg.Balance.Equal(decimal.RequireFromString("125.5")) {
							t.Errorf("arg.Balance = %v, want 125.5", arg.Balance)
						}

						return account, nil
					})
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:        "NoAuthorization",
			requestBody: validBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name: "InvalidType",
			requestBody: withBody(func(b *requestBody) {
				b.Type = "crypto"
			}),
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Type is not a supported account type",
		},
		{
			name: "InvalidSubtype",
			requestBody: withBody(func(b *requestBody) {
				b.Subtype = "brokerage"
			}),
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Subtype is not a supported account subtype",
		},
		{
			name: "NegativeBalance",
			requestBody: withBody(func(b *requestBody) {
				b.Balance = -10
			}),
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Balance must be a non negative amount with at most 13 digits and 2 decimals",
		},
		{
			name: "MissingName",
			requestBody: withBody(func(b *requestBody) {
				b.Name = ""
			}),
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Name field is required",
		},
		{
			name:        "ErrOwnerNotFound",
			requestBody: validBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Eq(wantParams)).
					Times(1).
					Return(domain.Account{}, domain.ErrOwnerNotFound)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrOwnerNotFound.Error(),
		},
		{
			name:        "InternalServerError",
			requestBody: validBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Eq(wantParams)).
					Times(1).
					Return(domain.Account{}, errorspkg.ErrStorage)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			accountService := NewMockService(ctrl)
			tc.buildStubs(accountService)

			body, err := json.Marshal(tc.requestBody)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := serve(t, tokenMaker, accountService, func(server *gin.Engine, h Handler) {
				server.POST("/accounts", h.Create)
			}, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &struct {
				Account domain.Account `json:"account"`
			}{}
			res := web.Response{Data: got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(account, got.Account, cmpOpts...); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetAndDeactivate(t *testing.T) {
	username := randompkg.Owner()
	account := randomAccount(username)
	deactivated := account
	deactivated.IsActive = false
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	testCases := []struct {
		name           string
		method         string
		accountID      string
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
		wantAccount    domain.Account
	}{
		{
			name:      "GetOK",
			method:    http.MethodGet,
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Get(gomock.Any(), gomock.Eq(username), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
			wantAccount:    account,
		},
		{
			name:      "GetNotFound",
			method:    http.MethodGet,
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Get(gomock.Any(), gomock.Eq(username), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name:      "GetOwnerMismatch",
			method:    http.MethodGet,
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Get(gomock.Any(), gomock.Eq(username), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountOwnerMismatch)
			},
			wantStatusCode: http.StatusForbidden,
			wantError:      domain.ErrAccountOwnerMismatch.Error(),
		},
		{
			name:      "GetInvalidID",
			method:    http.MethodGet,
			accountID: "0",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID field is required",
		},
		{
			name:      "DeactivateOK",
			method:    http.MethodDelete,
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Deactivate(gomock.Any(), gomock.Eq(username), gomock.Eq(account.ID)).
					Times(1).
					Return(deactivated, nil)
			},
			wantStatusCode: http.StatusOK,
			wantAccount:    deactivated,
		},
		{
			name:      "DeactivateOwnerMismatch",
			method:    http.MethodDelete,
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Deactivate(gomock.Any(), gomock.Eq(username), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountOwnerMismatch)
			},
			wantStatusCode: http.StatusForbidden,
			wantError:      domain.ErrAccountOwnerMismatch.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			accountService := NewMockService(ctrl)
			tc.buildStubs(accountService)

			req, err := http.NewRequest(tc.method, "/accounts/"+tc.accountID, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err := middleware.AddAuthorization(req, tokenMaker, authType, username, duration); err != nil {
				t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
			}

			recorder := serve(t, tokenMaker, accountService, func(server *gin.Engine, h Handler) {
				server.GET("/accounts/:id", h.Get)
				server.DELETE("/accounts/:id", h.Deactivate)
			}, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &struct {
				Account domain.Account `json:"account"`
			}{}
			res := web.Response{Data: got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(tc.wantAccount, got.Account, cmpOpts...); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListAndProvision(t *testing.T) {
	username := randompkg.Owner()
	tokenMaker := newTokenMaker(t)

	accounts := make([]domain.Account, 3)
	for i := range accounts {
		accounts[i] = randomAccount(username)
	}

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	testCases := []struct {
		name           string
		method         string
		url            string
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:   "ListActiveByDefault",
			method: http.MethodGet,
			url:    "/accounts",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					List(gomock.Any(), gomock.Eq(username), gomock.Eq(true)).
					Times(1).
					Return(accounts, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "ListAll",
			method: http.MethodGet,
			url:    "/accounts?active_only=false",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					List(gomock.Any(), gomock.Eq(username), gomock.Eq(false)).
					Times(1).
					Return(accounts, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "ListInternalError",
			method: http.MethodGet,
			url:    "/accounts",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					List(gomock.Any(), gomock.Eq(username), gomock.Eq(true)).
					Times(1).
					Return(nil, errorspkg.ErrStorage)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
		{
			name:   "ProvisionOK",
			method: http.MethodPost,
			url:    "/accounts/provision",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					ProvisionDefaultAccounts(gomock.Any(), gomock.Eq(username)).
					Times(1).
					Return(accounts, nil)
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			accountService := NewMockService(ctrl)
			tc.buildStubs(accountService)

			req, err := http.NewRequest(tc.method, tc.url, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err := middleware.AddAuthorization(req, tokenMaker, authType, username, duration); err != nil {
				t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
			}

			recorder := serve(t, tokenMaker, accountService, func(server *gin.Engine, h Handler) {
				server.GET("/accounts", h.List)
				server.POST("/accounts/provision", h.Provision)
			}, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &struct {
				Accounts []domain.Account `json:"accounts"`
			}{}
			res := web.Response{Data: got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(accounts, got.Accounts, cmpOpts...); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
