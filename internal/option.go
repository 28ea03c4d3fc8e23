package internal

import (
	"net/http"
	"os"

	"golang.org/x/oauth2"
)

// ClientSettings is what the dscache.ClientOption values passed to a backend add up to.
type ClientSettings struct {
	ProjectID string
	Endpoint  string

	Scopes          []string
	TokenSource     oauth2.TokenSource
	CredentialsFile string
	HTTPClient      *http.Client
}

// GetProjectID is the fallback when the metadata server is not reachable.
func GetProjectID() string {
	return os.Getenv("PROJECT_ID")
}
