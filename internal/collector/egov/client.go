// Package egov collects Japanese statutes through the e-Gov law API
// (Version 1, XML).
package egov

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"lexrag/internal/collector"
)

const (
	BaseURL   = "https://elaws.e-gov.go.jp/api/1"
	userAgent = "lexrag/0.1"
)

// Law is one entry of the law-list endpoint.
type Law struct {
	ID   string
	Name string
	No   string
}

type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithRateLimit(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: BaseURL,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &collector.StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// FetchLawList returns every law of the category. An empty list with a nil
// error is a final result; errors mean the call itself failed.
func (c *Client) FetchLawList(ctx context.Context, category int) ([]Law, error) {
	data, err := c.get(ctx, c.baseURL+"/lawlists/"+strconv.Itoa(category))
	if err != nil {
		return nil, err
	}
	return parseLawList(data)
}

// FetchLawText returns (title, plain text) for one law.
func (c *Client) FetchLawText(ctx context.Context, lawID string) (string, string, error) {
	data, err := c.get(ctx, c.baseURL+"/lawdata/"+lawID)
	if err != nil {
		return "", "", err
	}
	title, body := parseLawText(data)
	return title, body, nil
}

// parseLawList walks the token stream instead of binding to a fixed schema:
// responses nest the entries as LawNameListInfo, LawList or LawInfo depending
// on the endpoint revision.
func parseLawList(data []byte) ([]Law, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var laws []Law
	var cur Law
	inEntry := false
	var field *string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "LawNameListInfo", "LawList", "LawInfo":
				cur = Law{}
				inEntry = true
			case "LawId", "LawID":
				if inEntry {
					field = &cur.ID
				}
			case "LawName":
				if inEntry {
					field = &cur.Name
				}
			case "LawNo", "LawNum":
				if inEntry {
					field = &cur.No
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "LawNameListInfo", "LawList", "LawInfo":
				if cur.ID != "" && cur.Name != "" {
					laws = append(laws, cur)
				}
				inEntry = false
				field = nil
			case "LawId", "LawID", "LawName", "LawNo", "LawNum":
				field = nil
			}
		case xml.CharData:
			if field != nil {
				*field += strings.TrimSpace(string(t))
			}
		}
	}
	return laws, nil
}

// parseLawText extracts the law title and the full body text. Text inside
// LawFullText or LawBody is preferred; when neither element exists the whole
// document's character data is used.
func parseLawText(data []byte) (string, string) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var title string
	inTitle := false
	bodyDepth := 0
	var bodySB, allSB strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "LawName", "LawTitle":
				if title == "" {
					inTitle = true
				}
			case "LawFullText", "LawBody":
				bodyDepth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "LawName", "LawTitle":
				inTitle = false
			case "LawFullText", "LawBody":
				if bodyDepth > 0 {
					bodyDepth--
				}
			}
		case xml.CharData:
			s := strings.TrimSpace(string(t))
			if s == "" {
				continue
			}
			if inTitle && title == "" {
				title = s
			}
			if bodyDepth > 0 {
				bodySB.WriteString(s)
				bodySB.WriteByte('\n')
			}
			allSB.WriteString(s)
			allSB.WriteByte('\n')
		}
	}

	body := bodySB.String()
	if body == "" {
		body = allSB.String()
	}
	return title, strings.TrimSpace(body)
}
