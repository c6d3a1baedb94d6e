package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/testutil"
)

func Test_postApi(t *testing.T) {
	app := setup(t)

	author := testutil.CreateUser(t, app.usrRepo, "Amani Juma", "amani", "amani@test.cd", "", []string{user.RoleResident}, true)
	neighbour := testutil.CreateUser(t, app.usrRepo, "Neema", "neema", "neema@test.cd", "", []string{user.RoleResident}, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	authorToken := getToken(t, author, app.conf)
	neighbourToken := getToken(t, neighbour, app.conf)
	adminToken := getToken(t, admin, app.conf)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/posts", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty feed", path: "/v1/posts", token: authorToken, wantData: marchallList(t)},
		{
			name: "create: blank content", method: http.MethodPost, path: "/v1/posts", token: authorToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, post.NewPost{Content: "   "}),
		},
		{name: "like unknown post", method: http.MethodPost, path: "/v1/posts/lol/like", token: authorToken, wantCode: http.StatusNotFound},
	}
	runTests(t, app, tests)

	req, rec := newAuthRequest(http.MethodPost, "/v1/posts", authorToken, marchallObj(t, post.NewPost{Content: " Lost keys near the gate. "}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created post.Post
	unmarshal(t, rec, &created)
	assert.Equal(t, "Lost keys near the gate.", created.Content)
	assert.Equal(t, author.ID, created.Author)
	assert.Equal(t, author.Name, created.AuthorName)
	assert.Zero(t, created.Likes)

	likePath := "/v1/posts/" + created.ID + "/like"
	toggles := []httpTest{
		{name: "author likes", method: http.MethodPost, path: likePath, token: authorToken, wantData: marchallObj(t, post.LikeState{Likes: 1, Liked: true})},
		{name: "neighbour likes", method: http.MethodPost, path: likePath, token: neighbourToken, wantData: marchallObj(t, post.LikeState{Likes: 2, Liked: true})},
		{name: "author unlikes", method: http.MethodPost, path: likePath, token: authorToken, wantData: marchallObj(t, post.LikeState{Likes: 1, Liked: false})},
	}
	runTests(t, app, toggles)

	t.Run("feed shows likes of the current user", func(t *testing.T) {
		for token, wantLiked := range map[string]bool{authorToken: false, neighbourToken: true} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/posts", token)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var feed []post.Post
			unmarshal(t, rec, &feed)
			require.Len(t, feed, 1)
			assert.Equal(t, 1, feed[0].Likes)
			assert.Equal(t, wantLiked, feed[0].Liked)
		}
	})

	t.Run("double toggle restores the original state", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req, rec := newAuthRequest(http.MethodPost, likePath, adminToken)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
		got, err := app.postSvc.Get(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Likes)
	})

	deletes := []httpTest{
		{name: "delete: not the author", method: http.MethodDelete, path: "/v1/posts/" + created.ID, token: neighbourToken, wantCode: http.StatusForbidden},
		{name: "delete: author", method: http.MethodDelete, path: "/v1/posts/" + created.ID, token: authorToken, wantCode: http.StatusNoContent},
		{name: "delete: gone", method: http.MethodDelete, path: "/v1/posts/" + created.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	runTests(t, app, deletes)
}
