package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"player-manager/internal/auth"
	"player-manager/internal/auth/denylist"
	"player-manager/internal/domain"
	"player-manager/internal/repository/sqlite"
	"player-manager/internal/service"
)

type APISuite struct {
	suite.Suite
	router  *gin.Engine
	db      *sql.DB
	users   service.UserService
	players service.PlayerService
	logger  *logrus.Logger
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(s.T().TempDir(), "test.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.db = db

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	s.Require().NoError(userRepo.Init(ctx))
	playerRepo := sqlite.NewPlayerRepository(db)
	s.Require().NoError(playerRepo.Init(ctx))

	denied := denylist.NewMemory(time.Minute)
	s.T().Cleanup(func() { _ = denied.Close() })

	tokens, err := auth.NewTokenService("test-secret", "HS256", 30*time.Minute, denied)
	s.Require().NoError(err)

	s.users = service.NewUserService(userRepo)
	s.players = service.NewPlayerService(playerRepo, false)
	s.logger = logrus.New()
	s.logger.SetOutput(io.Discard)

	router := gin.New()
	handler := NewHandler(s.users, s.players, tokens, s.logger)
	handler.RegisterRoutes(router)
	s.router = router
}

func (s *APISuite) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *APISuite) signup(email, username, password string) *httptest.ResponseRecorder {
	return s.doJSON(http.MethodPost, "/signup", "", gin.H{
		"email":    email,
		"username": username,
		"password": password,
	})
}

func (s *APISuite) token(username, password string) string {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.AccessToken)
	s.Require().Equal("bearer", resp.TokenType)
	return resp.AccessToken
}

func (s *APISuite) authedToken() string {
	rec := s.signup("a@x.com", "alice", "pw123456")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return s.token("alice", "pw123456")
}

func (s *APISuite) TestSignupCreatesUser() {
	rec := s.signup("a@x.com", "alice", "pw123456")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("a@x.com", body["email"])
	s.Equal("alice", body["username"])
	s.NotContains(body, "password")
	s.NotContains(body, "password_hash")
}

func (s *APISuite) TestSignupDuplicateEmailReturnsConflict() {
	rec := s.signup("a@x.com", "alice", "pw123456")
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.signup("a@x.com", "bob", "pw123456")
	s.Equal(http.StatusConflict, rec.Code, rec.Body.String())
}

func (s *APISuite) TestSignupMissingFieldsReturnsBadRequest() {
	rec := s.doJSON(http.MethodPost, "/signup", "", gin.H{"email": "a@x.com"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestTokenRejectsWrongPassword() {
	rec := s.signup("a@x.com", "alice", "pw123456")
	s.Require().Equal(http.StatusCreated, rec.Code)

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APISuite) TestTokenRejectedAfterUserDeactivated() {
	token := s.authedToken()

	rec := s.doJSON(http.MethodGet, "/players/", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	_, err := s.db.Exec(`UPDATE users SET is_active = 0 WHERE username = ?`, "alice")
	s.Require().NoError(err)

	rec = s.doJSON(http.MethodGet, "/players/", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func (s *APISuite) TestTokenRejectedAfterUserDeleted() {
	token := s.authedToken()

	_, err := s.db.Exec(`DELETE FROM users WHERE username = ?`, "alice")
	s.Require().NoError(err)

	rec := s.doJSON(http.MethodGet, "/players/", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func (s *APISuite) TestDenylistFailureSurfacesAsServerError() {
	tokens, err := auth.NewTokenService("test-secret", "HS256", 30*time.Minute, failingDenylist{})
	s.Require().NoError(err)

	router := gin.New()
	NewHandler(s.users, s.players, tokens, s.logger).RegisterRoutes(router)

	token, err := tokens.Issue(&domain.User{ID: 1})
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodGet, "/players/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	s.Equal(http.StatusInternalServerError, rec.Code, rec.Body.String())
}

type failingDenylist struct{}

func (failingDenylist) Add(context.Context, string, time.Time) error { return nil }

func (failingDenylist) Contains(context.Context, string) (bool, error) {
	return false, errors.New("denylist backend unavailable")
}

func (failingDenylist) Close() error { return nil }

func (s *APISuite) TestPlayersRequireBearerToken() {
	rec := s.doJSON(http.MethodGet, "/players/", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.doJSON(http.MethodGet, "/players/", "bogus-token", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APISuite) TestPlayerLifecycle() {
	token := s.authedToken()

	rec := s.doJSON(http.MethodPost, "/players/", token, gin.H{
		"name":          "John Doe",
		"position":      "Forward",
		"team":          "Team A",
		"age":           25,
		"jersey_number": 10,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created PlayerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Require().NotZero(created.ID)

	rec = s.doJSON(http.MethodGet, "/players/"+itoa(created.ID), token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var got PlayerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal("John Doe", got.Name)
	s.Equal("Forward", got.Position)
	s.Equal("Team A", got.Team)
	s.Equal(25, got.Age)
	s.Equal(10, got.JerseyNumber)

	rec = s.doJSON(http.MethodDelete, "/players/"+itoa(created.ID), token, nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.doJSON(http.MethodGet, "/players/"+itoa(created.ID), token, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestCreatePlayerRejectsNegativeAge() {
	token := s.authedToken()

	rec := s.doJSON(http.MethodPost, "/players/", token, gin.H{
		"name":          "John Doe",
		"position":      "Forward",
		"team":          "Team A",
		"age":           -1,
		"jersey_number": 10,
	})
	s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
}

func (s *APISuite) TestUpdatePlayerChangesOnlyProvidedFields() {
	token := s.authedToken()

	rec := s.doJSON(http.MethodPost, "/players/", token, gin.H{
		"name":          "John Doe",
		"position":      "Forward",
		"team":          "Team A",
		"age":           25,
		"jersey_number": 10,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var created PlayerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))

	rec = s.doJSON(http.MethodPut, "/players/"+itoa(created.ID), token, gin.H{"team": "Team B"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var updated PlayerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal("Team B", updated.Team)
	s.Equal("John Doe", updated.Name)
	s.Equal(25, updated.Age)
}

func (s *APISuite) TestUpdateMissingPlayerReturnsNotFound() {
	token := s.authedToken()

	rec := s.doJSON(http.MethodPut, "/players/9999", token, gin.H{"team": "Team B"})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestLogoutRevokesToken() {
	token := s.authedToken()

	rec := s.doJSON(http.MethodGet, "/players/", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.doJSON(http.MethodPost, "/logout", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.doJSON(http.MethodGet, "/players/", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	// logging out twice is not an error
	rec = s.doJSON(http.MethodPost, "/logout", token, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APISuite) TestSearchPlayers() {
	token := s.authedToken()

	for _, name := range []string{"John Doe", "Jane Smith"} {
		rec := s.doJSON(http.MethodPost, "/players/", token, gin.H{
			"name":          name,
			"position":      "Forward",
			"team":          "Team A",
			"age":           25,
			"jersey_number": 10,
		})
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec := s.doJSON(http.MethodGet, "/players/search?name=john", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var players []PlayerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &players))
	s.Require().Len(players, 1)
	s.Equal("John Doe", players[0].Name)

	rec = s.doJSON(http.MethodGet, "/players/search?name=nobody", token, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestUploadCSVCreatesPlayers() {
	token := s.authedToken()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "players.csv")
	s.Require().NoError(err)
	_, err = part.Write([]byte("name,position,team,age,jersey_number\nJohn Doe,Forward,Team A,25,10\n"))
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/players/upload-csv", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var players []PlayerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &players))
	s.Len(players, 1)
}

func (s *APISuite) TestUploadRejectsNonCSVFile() {
	token := s.authedToken()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "players.txt")
	s.Require().NoError(err)
	_, err = part.Write([]byte("not a csv"))
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/players/upload-csv", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
