/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package toolchain

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tinywasm/fetch"
)

// Fetcher downloads node archives.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads archives over HTTP with tinywasm/fetch.
type HTTPFetcher struct{}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{}
}

type download struct {
	body []byte
	err  error
}

// Fetch returns the archive body. Anything but 200 OK is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	done := make(chan download, 1)
	fetch.Get(url).Send(func(resp *fetch.Response, err error) {
		done <- received(url, resp, err)
	})
	select {
	case d := <-done:
		return d.body, d.err
	case <-ctx.Done():
		return nil, &FetchError{URL: url, Message: ctx.Err().Error()}
	}
}

func received(url string, resp *fetch.Response, err error) download {
	switch {
	case err != nil:
		return download{err: &FetchError{URL: url, Message: err.Error()}}
	case resp.Status != http.StatusOK:
		return download{err: &FetchError{URL: url, StatusCode: resp.Status, Message: http.StatusText(resp.Status)}}
	}
	return download{body: resp.Body()}
}

// FetchError is a failed archive download.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("download %s: HTTP %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("download %s: %s", e.URL, e.Message)
}

// IsNotFound means the node release does not exist; retrying won't help.
func (e *FetchError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
