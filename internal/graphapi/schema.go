// Package graphapi exposes the feed over GraphQL with the same rules as the REST surface.
package graphapi

import (
	"feedhub/internal/service"

	"github.com/graphql-go/graphql"
)

// NewSchema builds the GraphQL schema on top of the post and user services.
func NewSchema(posts *service.PostService, users *service.UserService) (graphql.Schema, error) {
	r := &resolver{posts: posts, users: users}

	var postType *graphql.Object

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"_id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: r.userID},
				"name":   &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.userName},
				"email":  &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.userEmail},
				"status": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.userStatus},
				// Password hashes are never served.
				"password": &graphql.Field{Type: graphql.String, Resolve: nullField},
				"posts": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType))),
					Resolve: r.userPosts,
				},
			}
		}),
	})

	postType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.Fields{
			"_id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: r.postID},
			"title":     &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.postTitle},
			"content":   &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.postContent},
			"imageUrl":  &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.postImageURL},
			"creator":   &graphql.Field{Type: graphql.NewNonNull(userType), Resolve: r.postCreator},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.postCreatedAt},
			"updatedAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.postUpdatedAt},
		},
	})

	authDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthData",
		Fields: graphql.Fields{
			"token":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"userId": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	postDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PostData",
		Fields: graphql.Fields{
			"posts":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType)))},
			"totalPosts": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	userInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"name":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	postInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PostInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"content":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"imageUrl": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authDataType),
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.login,
			},
			"posts": &graphql.Field{
				Type:    graphql.NewNonNull(postDataType),
				Args:    graphql.FieldConfigArgument{"page": &graphql.ArgumentConfig{Type: graphql.Int}},
				Resolve: r.listPosts,
			},
			"post": &graphql.Field{
				Type:    graphql.NewNonNull(postType),
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.getPost,
			},
			"user": &graphql.Field{
				Type:    graphql.NewNonNull(userType),
				Resolve: r.currentUser,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootMutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type:    graphql.NewNonNull(userType),
				Args:    graphql.FieldConfigArgument{"userInput": &graphql.ArgumentConfig{Type: userInputType}},
				Resolve: r.createUser,
			},
			"createPost": &graphql.Field{
				Type:    graphql.NewNonNull(postType),
				Args:    graphql.FieldConfigArgument{"postInput": &graphql.ArgumentConfig{Type: postInputType}},
				Resolve: r.createPost,
			},
			"updatePost": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"id":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"postInput": &graphql.ArgumentConfig{Type: postInputType},
				},
				Resolve: r.updatePost,
			},
			"deletePost": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.deletePost,
			},
			"updateStatus": &graphql.Field{
				Type:    graphql.NewNonNull(userType),
				Args:    graphql.FieldConfigArgument{"status": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: r.updateStatus,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
