package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const volumesFixture = `{
  "items": [
    {
      "id": "gb1",
      "volumeInfo": {
        "title": "Dune",
        "authors": ["Frank Herbert"],
        "industryIdentifiers": [
          {"type": "ISBN_10", "identifier": "0441013597"},
          {"type": "ISBN_13", "identifier": "9780441013593"}
        ],
        "imageLinks": {"thumbnail": "http://books.google.com/thumb?id=gb1"}
      }
    },
    {
      "id": "gb2",
      "volumeInfo": {
        "title": "",
        "authors": ["Nobody"]
      }
    }
  ]
}`

func TestSearchBooks(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/volumes" {
			t.Errorf("path = %q, want /volumes", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		if key := r.URL.Query().Get("key"); key != "secret" {
			t.Errorf("key = %q, want secret", key)
		}
		w.Write([]byte(volumesFixture))
	}))
	defer srv.Close()

	c := New("secret")
	c.BaseURL = srv.URL

	vols, err := c.SearchBooks(context.Background(), "Dune", "Frank Herbert")
	if err != nil {
		t.Fatalf("SearchBooks: %v", err)
	}
	if gotQuery != "intitle:Dune inauthor:Frank Herbert" {
		t.Fatalf("q = %q", gotQuery)
	}
	// том без названия отброшен
	if len(vols) != 1 {
		t.Fatalf("vols = %+v, want one", vols)
	}
	v := vols[0]
	if v.ID != "gb1" || v.Title != "Dune" || v.ISBN13 != "9780441013593" || v.ISBN10 != "0441013597" {
		t.Fatalf("volume = %+v", v)
	}
	if v.Author() != "Frank Herbert" {
		t.Fatalf("Author() = %q", v.Author())
	}
}

func TestSearchBooksWithoutAuthor(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("")
	c.BaseURL = srv.URL

	vols, err := c.SearchBooks(context.Background(), "Дюна", "")
	if err != nil {
		t.Fatalf("SearchBooks: %v", err)
	}
	if gotQuery != "intitle:Дюна" {
		t.Fatalf("q = %q", gotQuery)
	}
	if len(vols) != 0 {
		t.Fatalf("vols = %+v, want empty", vols)
	}
}

func TestSearchByISBN(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "isbn:9780441013593" {
			t.Errorf("q = %q", q)
		}
		w.Write([]byte(volumesFixture))
	}))
	defer srv.Close()

	c := New("")
	c.BaseURL = srv.URL

	vol, err := c.SearchByISBN(context.Background(), "9780441013593")
	if err != nil {
		t.Fatalf("SearchByISBN: %v", err)
	}
	if vol == nil || vol.ID != "gb1" {
		t.Fatalf("vol = %+v", vol)
	}
}

func TestSearchByISBNNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	c := New("")
	c.BaseURL = srv.URL

	vol, err := c.SearchByISBN(context.Background(), "9999999999999")
	if err != nil {
		t.Fatalf("SearchByISBN: %v", err)
	}
	if vol != nil {
		t.Fatalf("vol = %+v, want nil for no results", vol)
	}
}

func TestNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("")
	c.BaseURL = srv.URL

	if _, err := c.SearchBooks(context.Background(), "Dune", ""); err == nil {
		t.Fatal("non-200 must surface as an error")
	}
}
