package esx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/store"
)

type Client = es8.Client

// Open returns nil without error when no addresses are configured.
func Open(cfg *config.Config) (*Client, func(), error) {
	if strings.TrimSpace(cfg.ES.Addrs) == "" {
		return nil, func() {}, nil
	}
	raw := strings.Split(cfg.ES.Addrs, ",")
	addrs := lo.FilterMap(raw, func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
	es, err := es8.NewClient(es8.Config{Addresses: addrs, Username: cfg.ES.Username, Password: cfg.ES.Password})
	if err != nil {
		return nil, func() {}, err
	}
	return es, func() {}, nil
}

// PostDoc is the indexed shape of a post.
type PostDoc struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Author  string `json:"author"`
	Group   string `json:"group,omitempty"`
	PubDate string `json:"pub_date"`
}

func NewPostDoc(p *store.Post) PostDoc {
	doc := PostDoc{ID: p.ID, Text: p.Text, PubDate: p.PubDate.UTC().Format(time.RFC3339Nano)}
	if p.Author != nil {
		doc.Author = p.Author.Username
	}
	if p.Group != nil {
		doc.Group = p.Group.Title
	}
	return doc
}

// Index is a post index. A nil *Index or one without a client accepts
// writes and finds nothing.
type Index struct {
	es   *Client
	name string
}

func NewIndex(es *Client, name string) *Index {
	return &Index{es: es, name: lo.Ternary(name != "", name, "posts")}
}

func (ix *Index) enabled() bool { return ix != nil && ix.es != nil }

// IndexPost upserts the document for p.
func (ix *Index) IndexPost(ctx context.Context, p *store.Post) error {
	if !ix.enabled() {
		return nil
	}
	b, err := json.Marshal(NewPostDoc(p))
	if err != nil {
		return err
	}
	res, err := ix.es.Index(ix.name, bytes.NewReader(b),
		ix.es.Index.WithContext(ctx),
		ix.es.Index.WithDocumentID(strconv.FormatInt(p.ID, 10)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return fmtError(res)
	}
	return nil
}

type searchHit struct {
	ID string `json:"_id"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// SearchPostIDs runs a multi_match query over text, group and author and
// returns the matching ids in score order plus the total hit count.
func (ix *Index) SearchPostIDs(ctx context.Context, query string, from, size int) ([]int64, int, error) {
	if !ix.enabled() {
		return []int64{}, 0, nil
	}
	q := map[string]any{"query": map[string]any{"multi_match": map[string]any{
		"query":  query,
		"fields": []string{"text^2", "group", "author"},
	}}}
	b, _ := json.Marshal(q)
	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(ix.name),
		ix.es.Search.WithBody(bytes.NewReader(b)),
		ix.es.Search.WithFrom(from),
		ix.es.Search.WithSize(size),
		ix.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return []int64{}, 0, nil
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, 0, fmtError(res)
	}
	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("es decode: %w", err)
	}
	ids := lo.FilterMap(out.Hits.Hits, func(h searchHit, _ int) (int64, bool) {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		return id, err == nil
	})
	return ids, out.Hits.Total.Value, nil
}

func fmtError(res *esapi.Response) error { return fmt.Errorf("es error: %s", res.String()) }
