// Package hrapi holds typed calls to the HR backend's reporting endpoints.
package hrapi

import (
	"context"

	"github.com/jrsteele09/go-hr-admin/apiclient"
)

// API sends requests to the HR backend. *apiclient.Client satisfies it.
type API interface {
	Do(ctx context.Context, req *apiclient.Request) (*apiclient.Response, error)
}

var _ API = (*apiclient.Client)(nil)
