package graphapi

import (
	"context"
	"strconv"
	"strings"

	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/graphql-go/graphql"
)

// isoTime matches JavaScript's Date.toISOString, which existing clients parse.
const isoTime = "2006-01-02T15:04:05.000Z07:00"

type resolver struct {
	posts *service.PostService
	users *service.UserService
}

type identityKey struct{}

// WithIdentity attaches the authenticated caller to ctx. A nil identity means anonymous.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func identityFrom(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey{}).(*models.Identity)
	return identity
}

func parseID(resource string, raw interface{}) (uint, error) {
	s, _ := raw.(string)
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError(resource, raw)
	}
	return uint(id), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func inputArg(args map[string]interface{}, name string) map[string]interface{} {
	m, _ := args[name].(map[string]interface{})
	return m
}

func nullField(graphql.ResolveParams) (interface{}, error) {
	return nil, nil
}

// Queries

func (r *resolver) login(p graphql.ResolveParams) (interface{}, error) {
	result, err := r.users.Login(p.Context, stringArg(p.Args, "email"), stringArg(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"token":  result.Token,
		"userId": formatID(result.UserID),
	}, nil
}

func (r *resolver) listPosts(p graphql.ResolveParams) (interface{}, error) {
	page, _ := p.Args["page"].(int)
	result, err := r.posts.ListPosts(p.Context, identityFrom(p.Context), page)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"posts":      result.Posts,
		"totalPosts": int(result.TotalItems),
	}, nil
}

func (r *resolver) getPost(p graphql.ResolveParams) (interface{}, error) {
	actor := identityFrom(p.Context)
	if err := service.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	id, err := parseID("Post", p.Args["id"])
	if err != nil {
		return nil, err
	}
	return r.posts.GetPost(p.Context, actor, id)
}

func (r *resolver) currentUser(p graphql.ResolveParams) (interface{}, error) {
	return r.users.GetUser(p.Context, identityFrom(p.Context))
}

// Mutations

func (r *resolver) createUser(p graphql.ResolveParams) (interface{}, error) {
	in := inputArg(p.Args, "userInput")
	return r.users.Signup(p.Context, service.SignupInput{
		Email:    stringArg(in, "email"),
		Name:     stringArg(in, "name"),
		Password: stringArg(in, "password"),
	})
}

func (r *resolver) createPost(p graphql.ResolveParams) (interface{}, error) {
	in := inputArg(p.Args, "postInput")
	return r.posts.CreatePost(p.Context, identityFrom(p.Context), service.CreatePostInput{
		Title:    stringArg(in, "title"),
		Content:  stringArg(in, "content"),
		ImageURL: stringArg(in, "imageUrl"),
	})
}

func (r *resolver) updatePost(p graphql.ResolveParams) (interface{}, error) {
	actor := identityFrom(p.Context)
	if err := service.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	id, err := parseID("Post", p.Args["id"])
	if err != nil {
		return nil, err
	}
	in := inputArg(p.Args, "postInput")
	return r.posts.UpdatePost(p.Context, actor, id, service.UpdatePostInput{
		Title:    stringArg(in, "title"),
		Content:  stringArg(in, "content"),
		ImageURL: stringArg(in, "imageUrl"),
	})
}

func (r *resolver) deletePost(p graphql.ResolveParams) (interface{}, error) {
	actor := identityFrom(p.Context)
	if err := service.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	id, err := parseID("Post", p.Args["id"])
	if err != nil {
		return nil, err
	}
	if err := r.posts.DeletePost(p.Context, actor, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *resolver) updateStatus(p graphql.ResolveParams) (interface{}, error) {
	return r.users.UpdateStatus(p.Context, identityFrom(p.Context), stringArg(p.Args, "status"))
}

// Post fields

func sourcePost(p graphql.ResolveParams) *models.Post {
	post, _ := p.Source.(*models.Post)
	if post == nil {
		return &models.Post{}
	}
	return post
}

func (r *resolver) postID(p graphql.ResolveParams) (interface{}, error) {
	return formatID(sourcePost(p).ID), nil
}

func (r *resolver) postTitle(p graphql.ResolveParams) (interface{}, error) {
	return sourcePost(p).Title, nil
}

func (r *resolver) postContent(p graphql.ResolveParams) (interface{}, error) {
	return sourcePost(p).Content, nil
}

func (r *resolver) postImageURL(p graphql.ResolveParams) (interface{}, error) {
	return sourcePost(p).ImageURL, nil
}

func (r *resolver) postCreatedAt(p graphql.ResolveParams) (interface{}, error) {
	return sourcePost(p).CreatedAt.UTC().Format(isoTime), nil
}

func (r *resolver) postUpdatedAt(p graphql.ResolveParams) (interface{}, error) {
	return sourcePost(p).UpdatedAt.UTC().Format(isoTime), nil
}

// postCreator loads the full creator. A creator that no longer exists degrades to the
// summary the service already joined in.
func (r *resolver) postCreator(p graphql.ResolveParams) (interface{}, error) {
	post := sourcePost(p)
	user, err := r.users.GetProfile(p.Context, post.CreatorID)
	if err == nil {
		return user, nil
	}
	if !models.IsKind(err, models.KindNotFound) {
		return nil, err
	}
	fallback := &models.User{ID: post.CreatorID, Posts: []uint{}}
	if post.Creator != nil {
		fallback.Name = post.Creator.Name
	}
	return fallback, nil
}

// User fields

func sourceUser(p graphql.ResolveParams) *models.User {
	user, _ := p.Source.(*models.User)
	if user == nil {
		return &models.User{}
	}
	return user
}

func (r *resolver) userID(p graphql.ResolveParams) (interface{}, error) {
	return formatID(sourceUser(p).ID), nil
}

func (r *resolver) userName(p graphql.ResolveParams) (interface{}, error) {
	return sourceUser(p).Name, nil
}

func (r *resolver) userEmail(p graphql.ResolveParams) (interface{}, error) {
	return sourceUser(p).Email, nil
}

func (r *resolver) userStatus(p graphql.ResolveParams) (interface{}, error) {
	return sourceUser(p).Status, nil
}

// userPosts resolves the user's post references in order, skipping posts deleted meanwhile.
func (r *resolver) userPosts(p graphql.ResolveParams) (interface{}, error) {
	user := sourceUser(p)
	actor := identityFrom(p.Context)

	posts := make([]*models.Post, 0, len(user.Posts))
	if len(user.Posts) == 0 {
		return posts, nil
	}
	if err := service.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	for _, id := range user.Posts {
		post, err := r.posts.GetPost(p.Context, actor, id)
		if models.IsKind(err, models.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}
