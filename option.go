package dscache

import (
	"net/http"

	"go.mercari.io/dscache/internal"
	"golang.org/x/oauth2"
)

// A ClientOption configures how a backing store connects, see clouddatastore.FromContext.
// Backends that run inside App Engine take their connection from the request and ignore these.
type ClientOption interface {
	Apply(*internal.ClientSettings)
}

type clientOptionFunc func(*internal.ClientSettings)

func (f clientOptionFunc) Apply(s *internal.ClientSettings) {
	f(s)
}

// WithProjectID selects the project whose datastore backs the cache.
// Without it the project comes from the metadata server, then from $PROJECT_ID.
func WithProjectID(projectID string) ClientOption {
	return clientOptionFunc(func(s *internal.ClientSettings) {
		s.ProjectID = projectID
	})
}

// WithEndpoint points the client at another datastore endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return clientOptionFunc(func(s *internal.ClientSettings) {
		s.Endpoint = endpoint
	})
}

// WithTokenSource authenticates store calls with ts.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return clientOptionFunc(func(s *internal.ClientSettings) {
		s.TokenSource = ts
	})
}

// WithCredentialsFile authenticates store calls with a service account or refresh token JSON file.
// It wins over WithTokenSource.
func WithCredentialsFile(filename string) ClientOption {
	return clientOptionFunc(func(s *internal.ClientSettings) {
		s.CredentialsFile = filename
	})
}

// WithScopes replaces the default OAuth2 scopes.
func WithScopes(scopes ...string) ClientOption {
	scopes = append([]string(nil), scopes...)
	return clientOptionFunc(func(s *internal.ClientSettings) {
		s.Scopes = scopes
	})
}

// WithHTTPClient makes the store talk through client.
// Every authentication option is ignored then; client is expected to carry its own.
func WithHTTPClient(client *http.Client) ClientOption {
	return clientOptionFunc(func(s *internal.ClientSettings) {
		s.HTTPClient = client
	})
}
