package blog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/mqx"
	"fiber-ent-blog/internal/store"
)

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

// PostInput is a submitted post form. Group is a group id, or empty for
// no group.
type PostInput struct {
	Text  string `json:"text" form:"text"`
	Group string `json:"group" form:"group"`
}

// PostDetail is a post with its author's post count.
type PostDetail struct {
	Post            *store.Post `json:"post"`
	AuthorPostCount int         `json:"author_post_count"`
}

// PostEvent is the body of post.created and post.updated events.
type PostEvent struct {
	Type     string    `json:"type"`
	PostID   int64     `json:"post_id"`
	AuthorID int64     `json:"author_id"`
	Author   string    `json:"author"`
	GroupID  *int64    `json:"group_id,omitempty"`
	PubDate  time.Time `json:"pub_date"`
}

// Post returns the post with the given id.
func (s *Service) Post(ctx context.Context, id int64) (*PostDetail, error) {
	p, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	n, err := s.store.CountPosts(ctx, store.PostFilter{AuthorID: p.AuthorID})
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: p, AuthorPostCount: n}, nil
}

// validate checks in against st and returns the cleaned text and group.
func validate(ctx context.Context, st *store.Store, in PostInput) (string, *int64, error) {
	verr := &ValidationError{}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		verr.add("text", msgRequired)
	}
	var groupID *int64
	if raw := strings.TrimSpace(in.Group); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			verr.add("group", msgInvalidChoice)
		} else if g, err := st.GroupByID(ctx, id); err == nil {
			groupID = lo.ToPtr(g.ID)
		} else if errors.Is(err, store.ErrNotFound) {
			verr.add("group", msgInvalidChoice)
		} else {
			return "", nil, err
		}
	}
	if err := verr.orNil(); err != nil {
		return "", nil, err
	}
	return text, groupID, nil
}

// CreatePost publishes a new post by pr. The group check and the insert
// share one transaction.
func (s *Service) CreatePost(ctx context.Context, pr *Principal, in PostInput) (*store.Post, error) {
	if pr == nil {
		return nil, ErrAuthenticationRequired
	}
	var p *store.Post
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.UserByID(ctx, pr.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAuthenticationRequired
			}
			return err
		}
		text, groupID, err := validate(ctx, tx, in)
		if err != nil {
			return err
		}
		p = &store.Post{Text: text, AuthorID: pr.UserID, GroupID: groupID}
		return tx.CreatePost(ctx, p)
	})
	if err != nil {
		return nil, s.referenceError(ctx, pr, err)
	}
	s.log.Zap().Info("post created", zap.Int64("post_id", p.ID), zap.String("author", pr.Username))
	s.afterWrite(ctx, "post.created", p)
	return p, nil
}

// referenceError turns a foreign key failure into the error the caller can
// act on: a vanished author needs a new login, a vanished group is an
// invalid choice on the form.
func (s *Service) referenceError(ctx context.Context, pr *Principal, err error) error {
	if !errors.Is(err, store.ErrInvalidReference) {
		return translate(err)
	}
	if _, uerr := s.store.UserByID(ctx, pr.UserID); errors.Is(uerr, store.ErrNotFound) {
		return ErrAuthenticationRequired
	}
	verr := &ValidationError{}
	verr.add("group", msgInvalidChoice)
	return verr
}

func (s *Service) authored(ctx context.Context, st *store.Store, pr *Principal, id int64) (*store.Post, error) {
	if pr == nil {
		return nil, ErrAuthenticationRequired
	}
	p, err := st.PostByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if p.AuthorID != pr.UserID {
		return p, ErrNotAuthor
	}
	return p, nil
}

// EditablePost returns post id when pr may edit it.
func (s *Service) EditablePost(ctx context.Context, pr *Principal, id int64) (*store.Post, error) {
	p, err := s.authored(ctx, s.store, pr, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// EditPost replaces the text and group of post id. On a *ValidationError
// the unchanged post is returned alongside the error.
func (s *Service) EditPost(ctx context.Context, pr *Principal, id int64, in PostInput) (*store.Post, error) {
	var (
		post    *store.Post
		invalid error
	)
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		p, err := s.authored(ctx, tx, pr, id)
		if err != nil {
			return err
		}
		post = p
		text, groupID, err := validate(ctx, tx, in)
		var verr *ValidationError
		if errors.As(err, &verr) {
			invalid = verr
			return nil
		}
		if err != nil {
			return err
		}
		p.Text, p.GroupID = text, groupID
		return tx.UpdatePost(ctx, p)
	})
	if err != nil {
		err = s.referenceError(ctx, pr, err)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		fresh, ferr := s.store.PostByID(ctx, id)
		if ferr != nil {
			return nil, translate(ferr)
		}
		return fresh, verr
	}
	if invalid != nil {
		return post, invalid
	}
	s.log.Zap().Info("post updated", zap.Int64("post_id", post.ID), zap.String("author", pr.Username))
	s.afterWrite(ctx, "post.updated", post)
	return post, nil
}

// afterWrite indexes p and publishes the event. Failures are logged only.
func (s *Service) afterWrite(ctx context.Context, event string, p *store.Post) {
	if s.indexer != nil {
		if err := s.indexer.IndexPost(ctx, p); err != nil {
			s.log.Zap().Warn("index post failed", zap.Int64("post_id", p.ID), zap.Error(err))
		}
	}
	if s.pub == nil {
		return
	}
	evt := PostEvent{Type: event, PostID: p.ID, AuthorID: p.AuthorID, GroupID: p.GroupID, PubDate: p.PubDate}
	if p.Author != nil {
		evt.Author = p.Author.Username
	}
	if err := mqx.PublishJSON(ctx, s.pub, event, evt); err != nil {
		s.log.Zap().Warn("publish event failed", zap.String("event", event), zap.Int64("post_id", p.ID), zap.Error(err))
	}
}
