package httpclient

import (
	"errors"
	"net/http"
)

var errEmptyCredential = errors.New("credential is empty")

// AuthProvider adds authentication to requests
type AuthProvider interface {
	Apply(req *http.Request) error
}

// APIKeyAuth sends the key in a header, X-API-Key unless Header is set.
type APIKeyAuth struct {
	Header string
	Key    string
}

func (a *APIKeyAuth) Apply(req *http.Request) error {
	if a.Key == "" {
		return errEmptyCredential
	}
	h := a.Header
	if h == "" {
		h = "X-API-Key"
	}
	req.Header.Set(h, a.Key)
	return nil
}

// BearerTokenAuth adds Bearer token authentication
type BearerTokenAuth struct {
	Token string
}

func (a *BearerTokenAuth) Apply(req *http.Request) error {
	if a.Token == "" {
		return errEmptyCredential
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// QueryParamAuth appends the credential as a query parameter, the scheme
// FMCSA QCMobile uses for its webKey.
type QueryParamAuth struct {
	Name  string
	Value string
}

func (a *QueryParamAuth) Apply(req *http.Request) error {
	if a.Value == "" {
		return errEmptyCredential
	}
	q := req.URL.Query()
	q.Set(a.Name, a.Value)
	req.URL.RawQuery = q.Encode()
	return nil
}
