package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/fxrumble/identity-service/internal/dto"
)

type registerResponse struct {
	Message string           `json:"message"`
	User    dto.UserResponse `json:"user"`
}

func (s *Suite) register(email string) registerResponse {
	reqBody := dto.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  "Password123",
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(s.BaseURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "Registration should succeed")

	var out registerResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *Suite) verificationToken(email string) string {
	var token string
	err := s.Postgres.DB.QueryRow(
		`SELECT verification_token FROM users WHERE email = $1`, email,
	).Scan(&token)
	s.Require().NoError(err)
	return token
}

func (s *Suite) resetToken(email string) string {
	var token string
	err := s.Postgres.DB.QueryRow(
		`SELECT reset_password_token FROM users WHERE email = $1`, email,
	).Scan(&token)
	s.Require().NoError(err)
	return token
}

func (s *Suite) markVerified(email string) {
	_, err := s.Postgres.DB.Exec(
		`UPDATE users SET is_verified = TRUE, verification_token = NULL WHERE email = $1`, email,
	)
	s.Require().NoError(err)
}

func (s *Suite) login(email, password string) *http.Response {
	body, _ := json.Marshal(dto.LoginRequest{Email: email, Password: password})
	resp, err := http.Post(s.BaseURL+"/auth/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "jwt" {
			return cookie
		}
	}
	return nil
}

func (s *Suite) TestRegister_Success() {
	out := s.register("test@example.com")

	s.NotEmpty(out.User.ID)
	s.Equal("test@example.com", out.User.Email)
	s.False(out.User.IsVerified)

	token := s.verificationToken("test@example.com")
	s.NotEmpty(token, "a verification token must be issued")
}

func (s *Suite) TestRegister_DoesNotLogIn() {
	reqBody := dto.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "fresh@example.com",
		Password:  "Password123",
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(s.BaseURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Nil(sessionCookie(resp), "registration must not set a session cookie")
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com")

	reqBody := dto.RegisterRequest{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "duplicate@example.com",
		Password:  "Password456",
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(s.BaseURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_InvalidEmail() {
	reqBody := dto.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "invalid-email",
		Password:  "Password123",
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(s.BaseURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_BeforeVerification() {
	s.register("unverified@example.com")

	resp := s.login("unverified@example.com", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Nil(sessionCookie(resp))
}

func (s *Suite) TestLogin_InvalidCredentials() {
	resp := s.login("nonexistent@example.com", "wrongpassword")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.register("wrongpass@example.com")
	s.markVerified("wrongpass@example.com")

	resp := s.login("wrongpass@example.com", "WrongPassword1")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestVerifyEmailFlow() {
	s.register("verify@example.com")
	token := s.verificationToken("verify@example.com")

	client := s.noRedirectClient()
	resp, err := client.Get(s.BaseURL + "/auth/verify-email?token=" + token)
	s.Require().NoError(err)
	resp.Body.Close()

	s.Equal(http.StatusFound, resp.StatusCode)
	s.Contains(resp.Header.Get("Location"), "/login?verified=true")

	var isVerified bool
	var storedToken *string
	err = s.Postgres.DB.QueryRow(
		`SELECT is_verified, verification_token FROM users WHERE email = $1`, "verify@example.com",
	).Scan(&isVerified, &storedToken)
	s.Require().NoError(err)
	s.True(isVerified)
	s.Nil(storedToken, "token must be cleared with the verification")

	// Replaying the consumed token fails
	resp2, err := client.Get(s.BaseURL + "/auth/verify-email?token=" + token)
	s.Require().NoError(err)
	resp2.Body.Close()
	s.Equal(http.StatusBadRequest, resp2.StatusCode)

	// And the account can now log in
	loginResp := s.login("verify@example.com", "Password123")
	defer loginResp.Body.Close()
	s.Equal(http.StatusOK, loginResp.StatusCode)

	cookie := sessionCookie(loginResp)
	s.Require().NotNil(cookie, "login must set the session cookie")
	s.NotEmpty(cookie.Value)
	s.True(cookie.HttpOnly)
}

func (s *Suite) TestGetMe() {
	s.register("getme@example.com")
	s.markVerified("getme@example.com")

	loginResp := s.login("getme@example.com", "Password123")
	defer loginResp.Body.Close()
	s.Require().Equal(http.StatusOK, loginResp.StatusCode)

	cookie := sessionCookie(loginResp)
	s.Require().NotNil(cookie)

	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/auth/me", nil)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		User dto.UserResponse `json:"user"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("getme@example.com", body.User.Email)
	s.True(body.User.IsVerified)
}

func (s *Suite) TestGetMe_NoCookie() {
	resp, err := http.Get(s.BaseURL + "/auth/me")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout() {
	s.register("logout@example.com")
	s.markVerified("logout@example.com")

	loginResp := s.login("logout@example.com", "Password123")
	defer loginResp.Body.Close()
	cookie := sessionCookie(loginResp)
	s.Require().NotNil(cookie)

	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/auth/logout", nil)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	cleared := sessionCookie(resp)
	s.Require().NotNil(cleared, "logout must rewrite the session cookie")
	s.Empty(cleared.Value)
	s.Negative(cleared.MaxAge)
}

func (s *Suite) TestGetUserByID() {
	out := s.register("byid@example.com")
	s.markVerified("byid@example.com")

	loginResp := s.login("byid@example.com", "Password123")
	defer loginResp.Body.Close()
	cookie := sessionCookie(loginResp)
	s.Require().NotNil(cookie)

	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/auth/user/"+out.User.ID, nil)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		User dto.UserResponse `json:"user"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("byid@example.com", body.User.Email)
	s.Equal(out.User.ID, body.User.ID)
}

func (s *Suite) TestForgotAndResetPassword() {
	s.register("reset@example.com")
	s.markVerified("reset@example.com")

	body, _ := json.Marshal(dto.ForgotPasswordRequest{Email: "reset@example.com"})
	resp, err := http.Post(s.BaseURL+"/auth/forgot-password", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	token := s.resetToken("reset@example.com")
	s.Require().NotEmpty(token)

	resetBody, _ := json.Marshal(dto.ResetPasswordRequest{Token: token, NewPassword: "NewPassword456"})
	req, _ := http.NewRequest(http.MethodPut, s.BaseURL+"/auth/reset-password", bytes.NewBuffer(resetBody))
	req.Header.Set("Content-Type", "application/json")

	resetResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resetResp.Body.Close()
	s.Equal(http.StatusOK, resetResp.StatusCode)

	// Replaying the consumed token fails
	replayBody, _ := json.Marshal(dto.ResetPasswordRequest{Token: token, NewPassword: "AnotherPassword789"})
	replayReq, _ := http.NewRequest(http.MethodPut, s.BaseURL+"/auth/reset-password", bytes.NewBuffer(replayBody))
	replayReq.Header.Set("Content-Type", "application/json")

	replayResp, err := http.DefaultClient.Do(replayReq)
	s.Require().NoError(err)
	replayResp.Body.Close()
	s.Equal(http.StatusBadRequest, replayResp.StatusCode)

	// Old password no longer works, the new one does
	oldResp := s.login("reset@example.com", "Password123")
	oldResp.Body.Close()
	s.Equal(http.StatusUnauthorized, oldResp.StatusCode)

	newResp := s.login("reset@example.com", "NewPassword456")
	defer newResp.Body.Close()
	s.Equal(http.StatusOK, newResp.StatusCode)
}

func (s *Suite) TestForgotPassword_UnknownEmail() {
	body, _ := json.Marshal(dto.ForgotPasswordRequest{Email: "nobody@example.com"})
	resp, err := http.Post(s.BaseURL+"/auth/forgot-password", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestOAuthStart_RedirectsToProvider() {
	client := s.noRedirectClient()

	resp, err := client.Get(s.BaseURL + "/auth/github")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusFound, resp.StatusCode)

	location := resp.Header.Get("Location")
	s.Contains(location, "github.com")
	s.Contains(location, "state=")
}

func (s *Suite) TestOAuthCallback_RejectsUnknownState() {
	resp, err := http.Get(s.BaseURL + "/auth/github/callback?state=forged&code=whatever")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusInternalServerError, resp.StatusCode)
}

func (s *Suite) TestOAuth_UnknownProvider() {
	resp, err := http.Get(s.BaseURL + "/auth/twitter")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}
