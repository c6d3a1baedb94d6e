package post

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

var ErrNotFound = errors.New("post not found")

type Service struct {
	client  record.Client
	nowFunc func() time.Time
	likeMu  sync.Mutex // serializes like toggles
}

func NewService(client record.Client) *Service {
	return &Service{client: client, nowFunc: time.Now}
}

// Query returns the latest posts (all when limit <= 0), each with its like count
// and whether userID likes it.
func (svc *Service) Query(ctx context.Context, userID string, limit int) ([]Post, error) {
	params := record.FetchParams{
		Fields:  fields,
		OrderBy: []core.DBOrdering{{Field: "date", Ascending: false}},
	}
	if limit > 0 {
		params.Paging = &record.PagingInfo{Limit: limit}
	}
	recs, err := svc.client.FetchRecords(ctx, Table, params)
	if err != nil {
		return nil, errors.Wrap(err, "fetching posts")
	}
	posts, err := record.DecodeAll[Post](recs)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]interface{}, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := svc.countLikes(ctx, ids...)
	if err != nil {
		return nil, err
	}
	liked := make(map[string]bool)
	if userID != "" {
		likes, err := svc.fetchLikes(ctx,
			record.Where("post_id", record.Equals, ids...),
			record.Where("user_id", record.Equals, userID),
		)
		if err != nil {
			return nil, err
		}
		for _, l := range likes {
			liked[l.PostID] = true
		}
	}
	for i := range posts {
		posts[i].Likes = counts[posts[i].ID]
		posts[i].Liked = liked[posts[i].ID]
	}
	return posts, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Post, error) {
	rec, err := svc.client.GetRecordByID(ctx, Table, id, fields...)
	if err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return Post{}, ErrNotFound
		}
		return Post{}, errors.Wrapf(err, "fetching post %s", id)
	}
	var p Post
	if err := record.Decode(rec, &p); err != nil {
		return Post{}, err
	}
	counts, err := svc.countLikes(ctx, p.ID)
	if err != nil {
		return Post{}, err
	}
	p.Likes = counts[p.ID]
	return p, nil
}

func (svc *Service) Create(ctx context.Context, np NewPost, author Author) (Post, error) {
	results, err := svc.client.CreateRecords(ctx, Table, record.Record{
		record.FieldName:  summary(np.Content),
		record.FieldOwner: author.ID,
		"content":         np.Content,
		"author":          author.ID,
		"author_name":     author.Name,
		"date":            svc.nowFunc().UTC(),
	})
	if err != nil {
		return Post{}, errors.Wrap(err, "creating post")
	}
	rec, err := record.FirstSuccess(results)
	if err != nil {
		return Post{}, errors.Wrap(err, "creating post")
	}
	var p Post
	return p, record.Decode(rec, &p)
}

// Delete removes a post and its likes. Likes go first so a store cascading
// post deletes to likes finds nothing left to remove.
func (svc *Service) Delete(ctx context.Context, id string) error {
	likes, err := svc.fetchLikes(ctx, record.Where("post_id", record.Equals, id))
	if err != nil {
		return err
	}
	if len(likes) > 0 {
		err := svc.client.DeleteRecords(ctx, LikeTable, likeIDs(likes)...)
		if err != nil && errors.Cause(err) != record.ErrNotFound {
			return errors.Wrap(err, "deleting post likes")
		}
	}
	if err := svc.client.DeleteRecords(ctx, Table, id); err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return ErrNotFound
		}
		return errors.Wrap(err, "deleting post")
	}
	return nil
}

// ToggleLike removes the like of userID on the post when present, adds it otherwise.
// A like rejected as a duplicate counts as liked.
func (svc *Service) ToggleLike(ctx context.Context, postID, userID string) (LikeState, error) {
	svc.likeMu.Lock()
	defer svc.likeMu.Unlock()

	if _, err := svc.client.GetRecordByID(ctx, Table, postID, record.FieldID); err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return LikeState{}, ErrNotFound
		}
		return LikeState{}, errors.Wrapf(err, "fetching post %s", postID)
	}

	likes, err := svc.fetchLikes(ctx,
		record.Where("post_id", record.Equals, postID),
		record.Where("user_id", record.Equals, userID),
	)
	if err != nil {
		return LikeState{}, err
	}

	var state LikeState
	if len(likes) > 0 {
		if err := svc.client.DeleteRecords(ctx, LikeTable, likeIDs(likes)...); err != nil {
			return LikeState{}, errors.Wrap(err, "unliking post")
		}
	} else {
		results, err := svc.client.CreateRecords(ctx, LikeTable, record.Record{
			record.FieldOwner: userID,
			"post_id":         postID,
			"user_id":         userID,
		})
		if err != nil {
			return LikeState{}, errors.Wrap(err, "liking post")
		}
		if _, err := record.FirstSuccess(results); err != nil && errors.Cause(err) != record.ErrDuplicate {
			return LikeState{}, errors.Wrap(err, "liking post")
		}
		state.Liked = true
	}

	counts, err := svc.countLikes(ctx, postID)
	if err != nil {
		return LikeState{}, err
	}
	state.Likes = counts[postID]
	return state, nil
}

// Count returns the number of posts published from `since` onwards (all when since is zero).
func (svc *Service) Count(ctx context.Context, since time.Time) (int, error) {
	params := record.FetchParams{
		Aggregators: []record.Aggregator{{Field: record.FieldID, Function: record.Count, Alias: "count"}},
	}
	if !since.IsZero() {
		params.Where = []record.Condition{record.Where("date", record.GreaterThanOrEqual, since.UTC())}
	}
	recs, err := svc.client.FetchRecords(ctx, Table, params)
	if err != nil {
		return 0, errors.Wrap(err, "counting posts")
	}
	if len(recs) == 0 {
		return 0, nil
	}
	return record.Int(recs[0], "count"), nil
}

// Between returns the posts dated in [from, to).
func (svc *Service) Between(ctx context.Context, from, to time.Time) ([]Post, error) {
	recs, err := svc.client.FetchRecords(ctx, Table, record.FetchParams{
		Fields: fields,
		WhereGroups: []record.WhereGroup{{
			Operator: record.And,
			Conditions: []record.Condition{
				record.Where("date", record.GreaterThanOrEqual, from.UTC()),
				record.Where("date", record.LessThan, to.UTC()),
			},
		}},
		OrderBy: []core.DBOrdering{{Field: "date", Ascending: true}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching posts")
	}
	return record.DecodeAll[Post](recs)
}

func (svc *Service) countLikes(ctx context.Context, postIDs ...interface{}) (map[string]int, error) {
	recs, err := svc.client.FetchRecords(ctx, LikeTable, record.FetchParams{
		Where:       []record.Condition{record.Where("post_id", record.Equals, postIDs...)},
		GroupBy:     []string{"post_id"},
		Aggregators: []record.Aggregator{{Field: record.FieldID, Function: record.Count, Alias: "likes"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "counting likes")
	}
	counts := make(map[string]int, len(recs))
	for _, rec := range recs {
		counts[record.String(rec, "post_id")] = record.Int(rec, "likes")
	}
	return counts, nil
}

func (svc *Service) fetchLikes(ctx context.Context, where ...record.Condition) ([]like, error) {
	recs, err := svc.client.FetchRecords(ctx, LikeTable, record.FetchParams{
		Fields: []string{"post_id", "user_id"},
		Where:  where,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching likes")
	}
	return record.DecodeAll[like](recs)
}

func likeIDs(likes []like) []string {
	ids := make([]string, len(likes))
	for i, l := range likes {
		ids[i] = l.ID
	}
	return ids
}

// summary returns the first line of content, shortened for use as the record name.
func summary(content string) string {
	const maxLen = 80
	runes := []rune(content)
	for i, r := range runes {
		if r == '\n' {
			runes = runes[:i]
			break
		}
	}
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return string(runes)
}
