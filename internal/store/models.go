package store

import (
	"time"

	"github.com/samber/lo"
)

// User is a registered account. Posts reference it as their author.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	DateJoined   time.Time `json:"date_joined"`
}

// Group is a themed community that posts may optionally belong to.
type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (g *Group) String() string { return g.Title }

// Post is a short text entry written by one author.
//
// Author and Group are loaded alongside the post by the list and lookup
// queries. Group is nil when GroupID is nil.
type Post struct {
	ID       int64     `json:"id"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
	AuthorID int64     `json:"author_id"`
	GroupID  *int64    `json:"group_id,omitempty"`

	Author *User  `json:"author,omitempty"`
	Group  *Group `json:"group,omitempty"`
}

// String returns the first 20 characters of the text.
func (p *Post) String() string { return lo.Substring(p.Text, 0, 20) }

// PostFilter narrows post queries. Zero fields do not filter.
type PostFilter struct {
	AuthorID int64
	GroupID  int64
}
