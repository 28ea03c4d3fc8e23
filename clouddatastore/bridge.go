package clouddatastore

import (
	"context"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/datastore"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/internal"
	"google.golang.org/api/option"
)

var (
	projectIDOnce sync.Once
	projectID     string
)

func newClientSettings(opts ...dscache.ClientOption) *internal.ClientSettings {
	settings := &internal.ClientSettings{}
	for _, opt := range opts {
		opt.Apply(settings)
	}
	if settings.ProjectID == "" {
		settings.ProjectID = defaultProjectID()
	}
	return settings
}

func defaultProjectID() string {
	projectIDOnce.Do(func() {
		pID, err := metadata.ProjectID()
		if err != nil {
			// don't check again even if it was failed...
			pID = internal.GetProjectID()
		}
		projectID = pID
	})
	return projectID
}

// toOriginalClientOptions maps settings to the options of the Cloud Datastore client.
// An HTTP client replaces every authentication option.
func toOriginalClientOptions(settings *internal.ClientSettings) []option.ClientOption {
	var origOpts []option.ClientOption
	if settings.Endpoint != "" {
		origOpts = append(origOpts, option.WithEndpoint(settings.Endpoint))
	}
	if settings.HTTPClient != nil {
		return append(origOpts, option.WithHTTPClient(settings.HTTPClient))
	}

	if len(settings.Scopes) != 0 {
		origOpts = append(origOpts, option.WithScopes(settings.Scopes...))
	}
	if settings.CredentialsFile != "" {
		origOpts = append(origOpts, option.WithCredentialsFile(settings.CredentialsFile))
	} else if settings.TokenSource != nil {
		origOpts = append(origOpts, option.WithTokenSource(settings.TokenSource))
	}
	return origOpts
}

// FromContext creates a Store connected to Cloud Datastore.
// DATASTORE_EMULATOR_HOST is honored by the underlying client.
func FromContext(ctx context.Context, opts ...dscache.ClientOption) (*Store, error) {
	settings := newClientSettings(opts...)
	origOpts := toOriginalClientOptions(settings)

	client, err := datastore.NewClient(ctx, settings.ProjectID, origOpts...)
	if err != nil {
		return nil, err
	}

	return &Store{client: client}, nil
}

// FromClient wraps an existing client.
func FromClient(client *datastore.Client) *Store {
	return &Store{client: client}
}
