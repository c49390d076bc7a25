// Package googlebooks — минимальный клиент Volumes API Google Books.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// Volume — том из выдачи Volumes API, только нужные поля.
type Volume struct {
	ID       string
	Title    string
	Authors  []string
	ISBN10   string
	ISBN13   string
	CoverURL string
}

// Author — авторы одной строкой, как мы храним их в каталоге.
func (v Volume) Author() string {
	return strings.TrimSpace(strings.Join(v.Authors, ", "))
}

type Client struct {
	APIKey  string
	BaseURL string // переопределяется в тестах
	httpc   *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// SearchBooks ищет тома по названию (и автору, если он известен).
func (c *Client) SearchBooks(ctx context.Context, title, author string) ([]Volume, error) {
	q := "intitle:" + strings.TrimSpace(title)
	if a := strings.TrimSpace(author); a != "" {
		q += " inauthor:" + a
	}
	// maxResults с запасом: порог сходства всё равно отсечёт лишнее
	return c.volumes(ctx, q, 5)
}

// SearchByISBN возвращает первый том по ISBN или nil, если ничего нет.
func (c *Client) SearchByISBN(ctx context.Context, isbn string) (*Volume, error) {
	vols, err := c.volumes(ctx, "isbn:"+strings.TrimSpace(isbn), 1)
	if err != nil {
		return nil, err
	}
	if len(vols) == 0 {
		return nil, nil
	}
	return &vols[0], nil
}

func (c *Client) volumes(ctx context.Context, query string, maxResults int) ([]Volume, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprint(maxResults))
	params.Set("printType", "books")
	if c.APIKey != "" {
		params.Set("key", c.APIKey)
	}

	reqURL := fmt.Sprintf("%s/volumes?%s", strings.TrimRight(c.BaseURL, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("google books %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Items []struct {
			ID         string `json:"id"`
			VolumeInfo struct {
				Title               string   `json:"title"`
				Authors             []string `json:"authors"`
				IndustryIdentifiers []struct {
					Type       string `json:"type"`
					Identifier string `json:"identifier"`
				} `json:"industryIdentifiers"`
				ImageLinks struct {
					Thumbnail string `json:"thumbnail"`
				} `json:"imageLinks"`
			} `json:"volumeInfo"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("google books: bad JSON: %w", err)
	}

	vols := make([]Volume, 0, len(out.Items))
	for _, it := range out.Items {
		v := Volume{
			ID:       it.ID,
			Title:    it.VolumeInfo.Title,
			Authors:  it.VolumeInfo.Authors,
			CoverURL: it.VolumeInfo.ImageLinks.Thumbnail,
		}
		for _, ident := range it.VolumeInfo.IndustryIdentifiers {
			switch ident.Type {
			case "ISBN_10":
				v.ISBN10 = ident.Identifier
			case "ISBN_13":
				v.ISBN13 = ident.Identifier
			}
		}
		if strings.TrimSpace(v.Title) == "" {
			continue
		}
		vols = append(vols, v)
	}
	return vols, nil
}
