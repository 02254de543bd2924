// Package identity asks the external user service whether patient and doctor
// ids exist. The check is best-effort: a definitive "no such user" rejects
// the booking, but an unreachable or slow user service never blocks it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrUnknownUser = errors.New("user does not exist")

type Resolver interface {
	CheckUser(ctx context.Context, id uuid.UUID) error
}

type HTTPResolver struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewHTTPResolver(baseURL string, log zerolog.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
		log:     log,
	}
}

func (r *HTTPResolver) CheckUser(ctx context.Context, id uuid.UUID) error {
	url := fmt.Sprintf("%s/api/users/%s", r.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.log.Warn().Err(err).Msg("build identity request")
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		// Identity is advisory; tolerate an unreachable user service.
		r.log.Warn().Err(err).Stringer("user_id", id).Msg("identity check skipped")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUnknownUser
	}
	return nil
}

// Nop accepts every id; used when no user service is configured, and in tests.
type Nop struct{}

func (Nop) CheckUser(context.Context, uuid.UUID) error { return nil }
