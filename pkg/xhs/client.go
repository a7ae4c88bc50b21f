package xhs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"xhstoolbox/pkg/config"
	"xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
)

// maxErrorBody bounds how much of a failed response is read for its message
const maxErrorBody = 4 << 10

// Client is a thin client for the toolbox backend. Every method maps to one
// endpoint; nothing is retried, cached or batched.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    map[string]string
	pageSize   int
	validate   *validator.Validate
	logger     logger.Logger
}

// NewClient creates a backend client. The cookie jar keeps the guest
// session established by InitGuest for later calls.
func NewClient(cfg *config.BackendConfig, log logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host are required", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		baseURL:  base,
		headers:  headers,
		pageSize: DefaultPageSize,
		validate: newValidator(),
		logger:   logger.OrGlobal(log),
	}, nil
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetPageSize changes the default feed page size
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpointURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// doRequest sends req with the configured headers and maps transport
// failures to network errors
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		logger.LogRequest(c.logger, req.Method, req.URL.String(), 0, duration)
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, err, "network error")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(path, query), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, 0, err, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// fetchJSON performs a request and decodes the JSON body into target
func (c *Client) fetchJSON(ctx context.Context, method, path string, query url.Values, target interface{}) error {
	resp, err := c.send(ctx, method, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, resp.StatusCode, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"path":         path,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, resp.StatusCode, err, "failed to parse JSON")
	}

	return nil
}

// fetchData unwraps the response envelope. A successful envelope without
// data yields nil, nil: the caller treats it as "no results".
func fetchData[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	var env Response[T]
	if err := c.fetchJSON(ctx, http.MethodGet, path, query, &env); err != nil {
		return nil, err
	}

	if !env.Succeeded() {
		c.logger.WarnWithFields("backend reported failure", map[string]interface{}{
			"path":    path,
			"code":    env.Code,
			"message": env.Message,
		})
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, errors.New(errors.ErrorTypeBackend, env.Code, "%s", msg)
	}

	return env.Data, nil
}

// checkResponseStatus turns HTTP failures into typed errors, using the
// backend's own message when the body carries one
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	errType := errors.TypeForStatus(resp.StatusCode)
	msg := backendMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	fields := map[string]interface{}{
		"status":  resp.StatusCode,
		"url":     resp.Request.URL.String(),
		"message": msg,
	}
	if errType == errors.ErrorTypeServerError {
		c.logger.ErrorWithFields("backend server error", fields)
	} else {
		c.logger.WarnWithFields("backend rejected request", fields)
	}

	return errors.New(errType, resp.StatusCode, "%s", msg)
}

func backendMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func (c *Client) check(params interface{}) error {
	if err := c.validate.Struct(params); err != nil {
		return errors.Wrap(errors.ErrorTypeValidation, 0, err, "invalid parameters")
	}
	return nil
}

// InitGuest establishes anonymous guest credentials on the backend
func (c *Client) InitGuest(ctx context.Context) (*GuestInit, error) {
	var out GuestInit
	if err := c.fetchJSON(ctx, http.MethodPost, GuestInitEndpoint, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		c.logger.WarnWithFields("guest initialisation rejected", map[string]interface{}{
			"error": out.Error,
		})
	}
	return &out, nil
}

// CreateQRCode issues a new QR login session
func (c *Client) CreateQRCode(ctx context.Context) (*QRCode, error) {
	var out QRCode
	if err := c.fetchJSON(ctx, http.MethodPost, QRCodeCreateEndpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QRCodeStatus polls the state of a QR login session
func (c *Client) QRCodeStatus(ctx context.Context, qrID string) (*QRStatus, error) {
	q := url.Values{}
	q.Set("qr_id", qrID)

	var out QRStatus
	if err := c.fetchJSON(ctx, http.MethodGet, QRCodeStatusEndpoint, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser returns the profile of the logged in user, nil when the
// backend has none
func (c *Client) CurrentUser(ctx context.Context) (*UserInfo, error) {
	return fetchData[UserInfo](ctx, c, CurrentUserEndpoint, nil)
}

// HomeFeed fetches one page of a feed category. An empty cursor asks for the
// first page; num <= 0 uses the client page size.
func (c *Client) HomeFeed(ctx context.Context, category, cursor string, num int) (*FeedPage, error) {
	if num <= 0 {
		num = c.pageSize
	}
	if err := c.check(feedParams{Category: category, Num: num}); err != nil {
		return nil, err
	}

	path, q := HomeFeedPath(category, cursor, num)
	page, err := fetchData[FeedPage](ctx, c, path, q)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &FeedPage{}, nil
	}
	return page, nil
}

// NoteDetail fetches a single note, nil when the backend returns no data
func (c *Client) NoteDetail(ctx context.Context, noteID string) (*NoteItem, error) {
	if err := c.check(noteParams{NoteID: noteID}); err != nil {
		return nil, err
	}
	return fetchData[NoteItem](ctx, c, NoteDetailEndpoint, NoteQuery(noteID))
}

// NoteComments fetches one page of comments
func (c *Client) NoteComments(ctx context.Context, noteID, cursor string) (*CommentPage, error) {
	if err := c.check(noteParams{NoteID: noteID}); err != nil {
		return nil, err
	}

	page, err := fetchData[CommentPage](ctx, c, NoteCommentsEndpoint, NoteCommentsQuery(noteID, cursor))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &CommentPage{}, nil
	}
	return page, nil
}

// VideoURLs lists the video renditions of a note
func (c *Client) VideoURLs(ctx context.Context, noteID string) ([]VideoURL, error) {
	if err := c.check(noteParams{NoteID: noteID}); err != nil {
		return nil, err
	}

	data, err := fetchData[videoURLs](ctx, c, NoteVideoEndpoint, NoteQuery(noteID))
	if err != nil || data == nil {
		return nil, err
	}
	return data.URLs, nil
}

// ImageURLs lists the image URLs of a note
func (c *Client) ImageURLs(ctx context.Context, noteID string) ([]string, error) {
	if err := c.check(noteParams{NoteID: noteID}); err != nil {
		return nil, err
	}

	data, err := fetchData[imageURLs](ctx, c, NoteImagesEndpoint, NoteQuery(noteID))
	if err != nil || data == nil {
		return nil, err
	}
	return data.URLs, nil
}

// DownloadURL returns the backend link that proxies a media download
func (c *Client) DownloadURL(mediaURL string) string {
	return c.endpointURL(MediaDownloadEndpoint, MediaDownloadQuery(mediaURL))
}

// DownloadMedia streams a media file through the backend. The caller closes
// the returned body.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) (io.ReadCloser, string, error) {
	if mediaURL == "" {
		return nil, "", errors.New(errors.ErrorTypeValidation, 0, "media URL is required")
	}

	resp, err := c.send(ctx, http.MethodGet, MediaDownloadEndpoint, MediaDownloadQuery(mediaURL))
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Trending returns the current trending search terms
func (c *Client) Trending(ctx context.Context) ([]string, error) {
	terms, err := fetchData[[]string](ctx, c, TrendingEndpoint, nil)
	if err != nil || terms == nil {
		return nil, err
	}
	return *terms, nil
}

// SearchNotes searches notes by keyword
func (c *Client) SearchNotes(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if err := c.check(params); err != nil {
		return nil, err
	}

	result, err := fetchData[SearchResult](ctx, c, SearchNotesEndpoint, SearchNotesQuery(params))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &SearchResult{}, nil
	}
	return result, nil
}

// SearchUsers searches users by keyword
func (c *Client) SearchUsers(ctx context.Context, keyword string, page int) (*UserSearchResult, error) {
	if err := c.check(userSearchParams{Keyword: keyword, Page: page}); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("keyword", keyword)
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}

	result, err := fetchData[UserSearchResult](ctx, c, SearchUsersEndpoint, q)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &UserSearchResult{}, nil
	}
	return result, nil
}

// SearchRecommend returns autocomplete suggestions for a partial keyword
func (c *Client) SearchRecommend(ctx context.Context, keyword string) ([]string, error) {
	q := url.Values{}
	q.Set("keyword", keyword)

	terms, err := fetchData[[]string](ctx, c, SearchRecommendEndpoint, q)
	if err != nil || terms == nil {
		return nil, err
	}
	return *terms, nil
}

// Notifications fetches one page of a notification feed
func (c *Client) Notifications(ctx context.Context, kind NotificationKind, cursor string) (*NotificationPage, error) {
	if err := c.check(notificationParams{Kind: kind}); err != nil {
		return nil, err
	}

	path, q := NotificationPath(kind, cursor)
	page, err := fetchData[NotificationPage](ctx, c, path, q)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &NotificationPage{}, nil
	}
	return page, nil
}

// Mentions fetches comment and @ notifications
func (c *Client) Mentions(ctx context.Context, cursor string) (*NotificationPage, error) {
	return c.Notifications(ctx, NotificationMentions, cursor)
}

// Connections fetches new follower notifications
func (c *Client) Connections(ctx context.Context, cursor string) (*NotificationPage, error) {
	return c.Notifications(ctx, NotificationConnections, cursor)
}

// Likes fetches like and collect notifications
func (c *Client) Likes(ctx context.Context, cursor string) (*NotificationPage, error) {
	return c.Notifications(ctx, NotificationLikes, cursor)
}
