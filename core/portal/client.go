package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/core"
)

const previewLimit = 256

type (
	coursesResponse struct {
		Courses []Course `json:"courses"`
	}

	assignmentsResponse struct {
		Assignments []Assignment `json:"assignments"`
	}

	// Client issues authenticated requests against the school portal. Auth
	// rides entirely on the cookie jar; there is no formal API contract on
	// the other side, so every response goes through classify before decoding.
	Client struct {
		baseURL      string
		embedBaseURL string
		school       string
		componentID  int
		http         *http.Client
	}
)

func NewClient(conf *core.Config, jar http.CookieJar) *Client {
	return &Client{
		baseURL:      strings.TrimRight(conf.Portal.BaseURL, "/"),
		embedBaseURL: strings.TrimRight(conf.Portal.EmbedBaseURL, "/"),
		school:       conf.Portal.School,
		componentID:  conf.Portal.ComponentID,
		http: &http.Client{
			Timeout: conf.Portal.Timeout,
			Jar:     jar,
		},
	}
}

// FetchCourses loads the student's current course list.
func (c *Client) FetchCourses(ctx context.Context) ([]Course, error) {
	endpoint := fmt.Sprintf("%s/%s/student/component/ClassListStudent/%d/load_data", c.baseURL, c.school, c.componentID)
	var resp coursesResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Courses, nil
}

// FetchAssignments loads the gradebook rows for one enrollment.
func (c *Client) FetchAssignments(ctx context.Context, enrollmentPK int) ([]Assignment, error) {
	endpoint := fmt.Sprintf("%s/enrollment/%d/assignments", c.embedBaseURL, enrollmentPK)
	var resp assignmentsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Assignments, nil
}

// MarkAssignmentRead clears the unread flag on the portal side. The portal
// protects the endpoint with a CSRF token that only appears in a meta tag of
// an authenticated HTML page, so that page is fetched and scraped first.
func (c *Client) MarkAssignmentRead(ctx context.Context, scoreID int) error {
	token, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching CSRF token")
	}

	form := url.Values{}
	form.Set("score_id", fmt.Sprintf("%d", scoreID))

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.embedBaseURL+"/assignments/mark_read", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", token)

	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	// success is a bare 200; no body contract
	if res.StatusCode != http.StatusOK {
		return &ServerError{Status: res.StatusCode}
	}
	return nil
}

func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/student", c.baseURL, c.school)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", &ServerError{Status: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "parsing portal page")
	}
	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		// the login page carries no CSRF meta tag
		return "", ErrNotAuthenticated
	}
	return token, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	// the portal caches aggressively; stale gradebooks defeat the whole sync
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return &ServerError{Status: res.StatusCode}
	}
	if err := classify(res.Header.Get("Content-Type"), body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodingError{Err: err, Preview: preview(body)}
	}
	return nil
}

// classify decides whether a 200 response is decodable JSON. The portal
// serves its login page at 200 when the session has expired, so anything
// HTML-shaped is the needs-login signal. A body starting with '<' wins over
// the declared content type; otherwise a JSON content type or a leading
// '{'/'[' marks success.
func classify(contentType string, body []byte) error {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return ErrNotAuthenticated
	}
	if strings.Contains(strings.ToLower(contentType), "json") {
		return nil
	}
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return nil
	}
	return ErrNotAuthenticated
}

func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit])
	}
	return string(body)
}
