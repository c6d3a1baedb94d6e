package post

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

const (
	Table     = "post"
	LikeTable = "post_like"
)

var fields = record.Fields("content", "author", "author_name", "date")

type Post struct {
	record.System `record:",squash"`
	Content       string    `json:"content" record:"content"`
	Author        string    `json:"author" record:"author"`
	AuthorName    string    `json:"author_name" record:"author_name"`
	Date          time.Time `json:"date" record:"date"`
	Likes         int       `json:"likes" record:"-"`
	Liked         bool      `json:"liked" record:"-"`
}

// LikeState is the like count of a post and whether the current user likes it.
type LikeState struct {
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

type like struct {
	ID     string `record:"id"`
	PostID string `record:"post_id"`
	UserID string `record:"user_id"`
}

// NewPost contains information needed to publish a new Post.
type NewPost struct {
	Content string `json:"content" validate:"required,notblank,max=5000"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Content = core.CleanString(np.Content)
	return validate.Struct(np)
}

// Author identifies who publishes a post.
type Author struct {
	ID   string
	Name string
}
