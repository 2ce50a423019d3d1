package artifact

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSource fetches artifacts from GET <base>/artifacts/<name>. Fetches are
// single-shot: a slow or failing registry is a startup failure, not
// something to retry around.
type HTTPSource struct {
	base string
	rest *resty.Client
}

func NewHTTPSource(base string, timeout time.Duration) *HTTPSource {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetRetryCount(0)
	return &HTTPSource{base: strings.TrimRight(base, "/"), rest: r}
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := s.base + "/artifacts/" + name

	resp, err := s.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", url, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("fetch artifact %s: status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}
