package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roomly/roomly-server/internal/auth"
	"github.com/roomly/roomly-server/internal/database"
	"github.com/roomly/roomly-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// findCookie is a helper function to find a cookie by name in the response recorder.
// It returns the cookie if found, or nil if not found.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func testAccount() database.User {
	now := time.Now().UTC()
	return database.User{
		Id:           1,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PhoneNumber:  "+15550100",
		EmailAddress: "ada@example.com",
		PasswordHash: "hashedpassword",
		Location:     "London",
		BudgetMin:    400,
		BudgetMax:    900,
		Hobbies:      "chess,rowing",
		Role:         string(types.RoleUser),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateAccountHandler(t *testing.T) {
	expectedUser := testAccount()
	validReq := RegisterRequest{
		FirstName:   expectedUser.FirstName,
		LastName:    expectedUser.LastName,
		PhoneNumber: expectedUser.PhoneNumber,
		Email:       expectedUser.EmailAddress,
		Password:    "password",
	}

	tcases := []struct {
		name        string
		body        any
		callDb      bool
		mockUser    database.User
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:     "successfully creates a new account",
			body:     validReq,
			callDb:   true,
			mockUser: expectedUser,
		},
		{
			name:        "failed with invalid json body",
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing first name",
			body: RegisterRequest{
				LastName:    validReq.LastName,
				PhoneNumber: validReq.PhoneNumber,
				Email:       validReq.Email,
				Password:    validReq.Password,
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing phone number",
			body: RegisterRequest{
				FirstName: validReq.FirstName,
				LastName:  validReq.LastName,
				Email:     validReq.Email,
				Password:  validReq.Password,
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with malformed email",
			body: RegisterRequest{
				FirstName:   validReq.FirstName,
				LastName:    validReq.LastName,
				PhoneNumber: validReq.PhoneNumber,
				Email:       "not-an-email",
				Password:    validReq.Password,
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing password",
			body: RegisterRequest{
				FirstName:   validReq.FirstName,
				LastName:    validReq.LastName,
				PhoneNumber: validReq.PhoneNumber,
				Email:       validReq.Email,
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with duplicate email",
			body:        validReq,
			callDb:      true,
			mockErr:     fmt.Errorf("%w: accounts_email_key", database.ErrConflict),
			expectedErr: NewConflictError(),
		},
		{
			name:        "fails with database error",
			body:        validReq,
			callDb:      true,
			mockErr:     errors.New("database error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.callDb {
				mockRepo.On("CreateAccount", mock.Anything, mock.MatchedBy(func(p database.CreateAccountParams) bool {
					return p.EmailAddress == validReq.Email &&
						p.FirstName == validReq.FirstName &&
						auth.VerifyPassword(p.PasswordHash, validReq.Password)
				})).Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil, nil)
			rr := doRequest(t, app, http.MethodPost, "/api/auth/register", tc.body, 0)

			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code)
				assert.Equal(t, tc.expectedErr.Message, decodeApiError(t, rr).Message)
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code)
			var u types.User
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&u))
			assert.Equal(t, expectedUser.Public(), u)
			assert.NotContains(t, rr.Body.String(), "hashedpassword")
		})
	}
}

func TestLoginHandler(t *testing.T) {
	hash, err := auth.HashPassword("password")
	assert.NoError(t, err)
	dbUser := testAccount()
	dbUser.PasswordHash = hash

	tcases := []struct {
		name     string
		body     any
		mockUser database.User
		mockErr  error
		callDb   bool
		wantCode int
	}{
		{
			name:     "successful login",
			body:     LoginRequest{Email: "Ada@Example.com", Password: "password"},
			mockUser: dbUser,
			callDb:   true,
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong password",
			body:     LoginRequest{Email: dbUser.EmailAddress, Password: "wrong"},
			mockUser: dbUser,
			callDb:   true,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown email",
			body:     LoginRequest{Email: dbUser.EmailAddress, Password: "password"},
			mockErr:  sql.ErrNoRows,
			callDb:   true,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "database error",
			body:     LoginRequest{Email: dbUser.EmailAddress, Password: "password"},
			mockErr:  errors.New("db error"),
			callDb:   true,
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "missing password",
			body:     LoginRequest{Email: dbUser.EmailAddress},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid json",
			body:     "{",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.callDb {
				mockRepo.On("GetAccountByEmail", mock.Anything, dbUser.EmailAddress).
					Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil, nil)
			rr := doRequest(t, app, http.MethodPost, "/api/auth/login", tc.body, 0)

			assert.Equal(t, tc.wantCode, rr.Code)
			if tc.wantCode != http.StatusOK {
				assert.Nil(t, findCookie(rr, auth.TokenCookieKey))
				return
			}

			var resp LoginResponse
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, dbUser.Public(), resp.User)

			id, err := auth.NewVerifier(testSigningKey).Verify(resp.Token)
			assert.NoError(t, err)
			assert.Equal(t, dbUser.Id, id.UserId)

			cookie := findCookie(rr, auth.TokenCookieKey)
			if assert.NotNil(t, cookie) {
				assert.Equal(t, resp.Token, cookie.Value)
				assert.True(t, cookie.HttpOnly)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	app := newTestApp(t, nil, nil, nil)
	rr := doRequest(t, app, http.MethodGet, "/api/auth/logout", nil, 1)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	cookie := findCookie(rr, auth.TokenCookieKey)
	if assert.NotNil(t, cookie) {
		assert.Empty(t, cookie.Value)
		assert.False(t, cookie.Expires.After(time.Now()))
	}
}

func TestCurrentAccountHandler(t *testing.T) {
	dbUser := testAccount()

	t.Run("found", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountById", mock.Anything, dbUser.Id).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo, nil, nil)
		rr := doRequest(t, app, http.MethodGet, "/api/users/me", nil, dbUser.Id)

		assert.Equal(t, http.StatusOK, rr.Code)
		var u types.User
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&u))
		assert.Equal(t, []string{"chess", "rowing"}, u.Hobbies)
	})

	t.Run("deleted account", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountById", mock.Anything, dbUser.Id).Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo, nil, nil)
		rr := doRequest(t, app, http.MethodGet, "/api/users/me", nil, dbUser.Id)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUpdateAccountHandler(t *testing.T) {
	cur := testAccount()

	tcases := []struct {
		name        string
		body        string
		decodeFails bool
		wantParams  *database.UpdateAccountParams
		wantCode    int
	}{
		{
			name: "hobbies as array and partial fields",
			body: `{"location": " Paris ", "hobbies": ["climbing", " jazz "]}`,
			wantParams: &database.UpdateAccountParams{
				UserId: cur.Id, FirstName: cur.FirstName, LastName: cur.LastName, PhoneNumber: cur.PhoneNumber,
				Location: "Paris", BudgetMin: cur.BudgetMin, BudgetMax: cur.BudgetMax, Hobbies: "climbing,jazz",
			},
			wantCode: http.StatusOK,
		},
		{
			name: "hobbies as comma separated string",
			body: `{"hobbies": "cooking, ,hiking", "budgetMin": 100, "budgetMax": 200, "gender": "female"}`,
			wantParams: &database.UpdateAccountParams{
				UserId: cur.Id, FirstName: cur.FirstName, LastName: cur.LastName, PhoneNumber: cur.PhoneNumber,
				Location: cur.Location, BudgetMin: 100, BudgetMax: 200, Hobbies: "cooking,hiking", Gender: "female",
			},
			wantCode: http.StatusOK,
		},
		{
			name: "null hobbies keep stored value",
			body: `{"hobbies": null}`,
			wantParams: &database.UpdateAccountParams{
				UserId: cur.Id, FirstName: cur.FirstName, LastName: cur.LastName, PhoneNumber: cur.PhoneNumber,
				Location: cur.Location, BudgetMin: cur.BudgetMin, BudgetMax: cur.BudgetMax, Hobbies: cur.Hobbies,
			},
			wantCode: http.StatusOK,
		},
		{
			name:        "hobbies of the wrong type",
			body:        `{"hobbies": 12}`,
			decodeFails: true,
			wantCode:    http.StatusBadRequest,
		},
		{
			name:     "inverted budget range",
			body:     `{"budgetMin": 900, "budgetMax": 100}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "blank first name",
			body:     `{"firstName": "  "}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)

			if !tc.decodeFails {
				mockRepo.On("GetAccountById", mock.Anything, cur.Id).Return(cur, nil).Once()
			}
			if tc.wantParams != nil {
				updated := cur
				updated.Hobbies = tc.wantParams.Hobbies
				mockRepo.On("UpdateAccount", mock.Anything, *tc.wantParams).Return(updated, nil).Once()
			}

			app := newTestApp(t, mockRepo, nil, nil)
			rr := doRequest(t, app, http.MethodPut, "/api/users/me", tc.body, cur.Id)

			assert.Equal(t, tc.wantCode, rr.Code)
		})
	}
}

func TestGetAccountHandler(t *testing.T) {
	dbUser := testAccount()
	dbUser.Id = 2

	tcases := []struct {
		name     string
		target   string
		mockErr  error
		callDb   bool
		wantCode int
	}{
		{name: "found", target: "/api/users/2", callDb: true, wantCode: http.StatusOK},
		{name: "not found", target: "/api/users/2", callDb: true, mockErr: sql.ErrNoRows, wantCode: http.StatusNotFound},
		{name: "non numeric id", target: "/api/users/abc", wantCode: http.StatusBadRequest},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.callDb {
				mockRepo.On("GetAccountById", mock.Anything, 2).Return(dbUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil, nil)
			rr := doRequest(t, app, http.MethodGet, tc.target, nil, 1)

			assert.Equal(t, tc.wantCode, rr.Code)
			if tc.wantCode == http.StatusOK {
				assert.NotContains(t, rr.Body.String(), "hashedpassword")
			}
		})
	}
}

func TestSearchAccountsHandler(t *testing.T) {
	budgetLo, budgetHi := 300.0, 800.0

	t.Run("passes filters through", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SearchAccounts", mock.Anything, database.SearchAccountsParams{
			Query:     "ada",
			Location:  "London",
			RoomType:  "private",
			Gender:    "female",
			Hobbies:   "chess",
			BudgetMin: &budgetLo,
			BudgetMax: &budgetHi,
		}).Return([]database.User{testAccount()}, nil).Once()

		app := newTestApp(t, mockRepo, nil, nil)
		rr := doRequest(t, app, http.MethodGet,
			"/api/users?query=ada&location=London&roomType=private&gender=female&hobbies=chess&budgetMin=300&budgetMax=800", nil, 5)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp UsersResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Len(t, resp.Users, 1)
		assert.Equal(t, "Ada", resp.Users[0].FirstName)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("SearchAccounts", mock.Anything, database.SearchAccountsParams{}).Return([]database.User{}, nil).Once()

		app := newTestApp(t, mockRepo, nil, nil)
		rr := doRequest(t, app, http.MethodGet, "/api/users", nil, 5)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"users": []}`, rr.Body.String())
	})

	t.Run("invalid budget", func(t *testing.T) {
		app := newTestApp(t, &database.MockRepository{}, nil, nil)
		rr := doRequest(t, app, http.MethodGet, "/api/users?budgetMin=cheap", nil, 5)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
