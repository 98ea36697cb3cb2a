package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/httpx"
	"github.com/mbolis/survey-app/log"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login exchanges basic auth credentials for a bearer token.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		setFormBody(r, body)
		app.UserCredentials(w, r)
	}
}

// Refresh expects an "Authorization: Refresh <token>" header.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", nil)
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}
		setFormBody(req, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		})

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		if resp.Status() != http.StatusOK {
			log.Debugf("refresh: bearer server answered %d", resp.Status())
		}
		err = resp.Flush(w)
		if err != nil {
			log.Errorf("refresh.flush: %s", err)
		}
	}
}

func setFormBody(r *http.Request, body url.Values) {
	encoded := body.Encode()
	r.Body = io.NopCloser(strings.NewReader(encoded))
	r.ContentLength = int64(len(encoded))
	r.Header.Set("content-type", "application/x-www-form-urlencoded")
	r.Header.Set("content-length", strconv.Itoa(len(encoded)))
}
