package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hugh/prompthub/internal/api"
	"github.com/hugh/prompthub/internal/api/handlers"
	"github.com/hugh/prompthub/internal/testutil"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (http.Handler, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)

	router := api.NewRouter(api.RouterConfig{
		DB:            env.DB,
		Logger:        env.Logger,
		Authenticator: env.Authenticator,
		AuthService:   env.Auth,
		Permissions:   env.Permissions,
		Contracts:     env.Contracts,
		Prompts:       env.Prompts,
		Cookie:        handlers.CookieSettings{Name: "token"},
	})
	return router, env
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// activationToken pulls the token out of the most recent activation mail.
func activationToken(t *testing.T, env *testutil.Env) string {
	t.Helper()
	link, err := url.Parse(env.Mailer.Last(t).ActivationURL)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
