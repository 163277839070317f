// Package blog implements the feeds, post detail and post authoring rules
// on top of the record store.
package blog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/internal/mqx"
	"fiber-ent-blog/internal/store"
)

var (
	ErrNotFound               = errors.New("blog: not found")
	ErrAuthenticationRequired = errors.New("blog: authentication required")
	ErrNotAuthor              = errors.New("blog: not the author")
)

// RoleStaff is granted to users with the staff flag.
const RoleStaff = "admin"

// Principal is the authenticated user a request acts for.
type Principal struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
}

func (p *Principal) HasRole(role string) bool {
	return p != nil && lo.Contains(p.Roles, role)
}

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := lo.Keys(e.Fields)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		return fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " "))
	})
	return "blog: invalid input (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Indexer receives every created or edited post.
type Indexer interface {
	IndexPost(ctx context.Context, p *store.Post) error
}

// Searcher resolves a query to post ids in relevance order.
type Searcher interface {
	SearchPostIDs(ctx context.Context, query string, from, size int) ([]int64, int, error)
}

// Service is safe for concurrent use.
type Service struct {
	store    *store.Store
	pageSize int
	indexer  Indexer
	searcher Searcher
	pub      mqx.Sender
	log      *logx.Logger
}

type Option func(*Service)

func WithIndexer(ix Indexer) Option   { return func(s *Service) { s.indexer = ix } }
func WithSearcher(sr Searcher) Option { return func(s *Service) { s.searcher = sr } }
func WithPublisher(p mqx.Sender) Option {
	return func(s *Service) { s.pub = p }
}

// New returns a Service that pages feeds by pageSize items.
func New(st *store.Store, pageSize int, opts ...Option) *Service {
	s := &Service{store: st, pageSize: lo.Max([]int{pageSize, 1}), log: logx.GetScope("blog")}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) PageSize() int { return s.pageSize }

// translate maps store sentinels onto blog ones.
func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
