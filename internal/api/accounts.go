package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/roomly/roomly-server/internal/auth"
	"github.com/roomly/roomly-server/internal/database"
	"github.com/roomly/roomly-server/internal/types"
)

const defaultJwtExpiration = 7 * 24 * time.Hour

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type RegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// UpdateAccountRequest carries the profile fields a user may change.
// Omitted fields keep their stored value.
type UpdateAccountRequest struct {
	FirstName       *string  `json:"firstName"`
	LastName        *string  `json:"lastName"`
	PhoneNumber     *string  `json:"phoneNumber"`
	Location        *string  `json:"location"`
	RoomType        *string  `json:"roomType"`
	BudgetMin       *float64 `json:"budgetMin"`
	BudgetMax       *float64 `json:"budgetMax"`
	Hobbies         Hobbies  `json:"hobbies"`
	Gender          *string  `json:"gender"`
	PreferredGender *string  `json:"preferredGender"`
}

// Hobbies accepts either a JSON array of strings or a single comma
// separated string. A nil value means the field was not sent.
type Hobbies []string

func (h *Hobbies) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		*h = list
		return nil
	}

	var csv string
	if err := json.Unmarshal(b, &csv); err != nil {
		return errors.New("hobbies must be an array or a comma separated string")
	}
	*h = database.SplitHobbies(csv)
	return nil
}

type UsersResponse struct {
	Users []types.User `json:"users"`
}

func (s *RoomlyApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.FirstName == "" || req.LastName == "" || req.PhoneNumber == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := auth.HashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateAccount(r.Context(), database.CreateAccountParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, newUser.Public())
}

func (s *RoomlyApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	lr.Email = strings.ToLower(strings.TrimSpace(lr.Email))
	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(r.Context(), lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
			s.log.Printf("login: %v", err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !auth.VerifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := dbUser.Public()
	token, err := s.verifier.CreateToken(u.Id, u.Role, s.tokenTTL)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, s.tokenTTL))

	s.writeJson(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

func (s *RoomlyApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     auth.TokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *RoomlyApp) currentAccount(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, user.Public())
}

func (s *RoomlyApp) updateAccount(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cur, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	params := mergeProfile(cur, req)
	if params.FirstName == "" || params.LastName == "" ||
		params.BudgetMin < 0 || params.BudgetMax < 0 ||
		(params.BudgetMax > 0 && params.BudgetMin > params.BudgetMax) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.db.UpdateAccount(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, updated.Public())
}

// mergeProfile overlays the fields present in req on the stored account.
func mergeProfile(cur database.User, req UpdateAccountRequest) database.UpdateAccountParams {
	params := database.UpdateAccountParams{
		UserId:          cur.Id,
		FirstName:       cur.FirstName,
		LastName:        cur.LastName,
		PhoneNumber:     cur.PhoneNumber,
		Location:        cur.Location,
		RoomType:        cur.RoomType,
		BudgetMin:       cur.BudgetMin,
		BudgetMax:       cur.BudgetMax,
		Hobbies:         cur.Hobbies,
		Gender:          cur.Gender,
		PreferredGender: cur.PreferredGender,
	}

	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setString(&params.FirstName, req.FirstName)
	setString(&params.LastName, req.LastName)
	setString(&params.PhoneNumber, req.PhoneNumber)
	setString(&params.Location, req.Location)
	setString(&params.RoomType, req.RoomType)
	setString(&params.Gender, req.Gender)
	setString(&params.PreferredGender, req.PreferredGender)

	if req.BudgetMin != nil {
		params.BudgetMin = *req.BudgetMin
	}
	if req.BudgetMax != nil {
		params.BudgetMax = *req.BudgetMax
	}
	if req.Hobbies != nil {
		params.Hobbies = database.JoinHobbies(req.Hobbies)
	}

	return params
}

func (s *RoomlyApp) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, user.Public())
}

func (s *RoomlyApp) searchAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := database.SearchAccountsParams{
		Query:    strings.TrimSpace(q.Get("query")),
		Location: strings.TrimSpace(q.Get("location")),
		RoomType: strings.TrimSpace(q.Get("roomType")),
		Gender:   strings.TrimSpace(q.Get("gender")),
		Hobbies:  strings.TrimSpace(q.Get("hobbies")),
	}

	var err error
	if params.BudgetMin, err = parseBudget(q.Get("budgetMin")); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if params.BudgetMax, err = parseBudget(q.Get("budgetMax")); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUsers, err := s.db.SearchAccounts(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, u.Public())
	}

	s.writeJson(w, http.StatusOK, UsersResponse{Users: users})
}

func parseBudget(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil, errors.New("invalid budget")
	}
	return &f, nil
}
