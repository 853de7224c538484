package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cocktail-club/internal/ai"
	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
)

// ===== CATALOG TESTS =====

func TestCocktailService(t *testing.T) {
	svc := NewCocktailService(newTestDB(t))
	ctx := context.Background()

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	c, err := svc.Get(ctx, "negroni")
	require.NoError(t, err)
	assert.Equal(t, "negroni", c.Slug)

	_, err = svc.Get(ctx, "  ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Get(ctx, "no-such-drink")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	hits, err := svc.Search(ctx, " mart ")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = svc.Search(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDirectoryService(t *testing.T) {
	svc := NewDirectoryService(newTestDB(t))
	ctx := context.Background()

	cities, err := svc.Cities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 3)

	bars, err := svc.BarsInCity(ctx, "서울")
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	_, err = svc.BarsInCity(ctx, "Atlantis")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	hot, err := svc.HotBars(ctx, 1)
	require.NoError(t, err)
	require.Len(t, hot, 1)
	assert.Equal(t, "Jeju Tiki", hot[0].Name)

	all, err := svc.Bars(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

// ===== COMMUNITY TESTS =====

func TestCommunity_PostLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommunityService(db, discardLogger())
	ctx := context.Background()
	author := insertUser(t, db, "author@example.com", "Author")
	other := insertUser(t, db, "other@example.com", "Other")

	post, err := svc.Create(ctx, author.ID, PostInput{Title: " Hello ", Body: "First post", Tags: []string{"gin", " ", "tonic"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, []string{"gin", "tonic"}, post.Tags)
	assert.Equal(t, "Author", post.Author)

	_, err = svc.Update(ctx, other.ID, post.ID, PostInput{Title: "Hijack", Body: "x"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	updated, err := svc.Update(ctx, author.ID, post.ID, PostInput{Title: "Edited", Body: "Second draft"})
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)

	assert.ErrorIs(t, svc.Delete(ctx, other.ID, post.ID), apperror.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, author.ID, post.ID))

	_, err = svc.Get(ctx, post.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCommunity_CreateValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommunityService(db, discardLogger())
	u := insertUser(t, db, "v@example.com", "Validator")

	_, err := svc.Create(context.Background(), u.ID, PostInput{Title: "   ", Body: ""})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "is required", appErr.Fields["title"])
}

func TestCommunity_ListPagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommunityService(db, discardLogger())
	ctx := context.Background()
	u := insertUser(t, db, "poster@example.com", "Poster")

	for i := range 5 {
		_, err := svc.Create(ctx, u.ID, PostInput{Title: fmt.Sprintf("post %d", i), Body: "body"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, PageMeta{Total: 5, Page: 2, Limit: 2, PageCount: 3, HasPrev: true, HasNext: true}, page.Meta)
	assert.Equal(t, "post 2", page.Items[0].Title)

	last, err := svc.List(ctx, PageRequest{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.Meta.HasNext)

	latest, err := svc.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, latest, DefaultLatestPosts)
	assert.Equal(t, "post 4", latest[0].Title)
}

func TestCommunity_CommentsAndReplies(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommunityService(db, discardLogger())
	ctx := context.Background()
	author := insertUser(t, db, "a@example.com", "A")
	replier := insertUser(t, db, "b@example.com", "B")

	post, err := svc.Create(ctx, author.ID, PostInput{Title: "Question", Body: "Best gin?"})
	require.NoError(t, err)

	comment, err := svc.CreateComment(ctx, replier.ID, CommentInput{PostID: post.ID, Body: "Any London dry"})
	require.NoError(t, err)
	assert.Equal(t, "B", comment.Author)

	_, err = svc.Reply(ctx, author.ID, comment.ID, ReplyInput{Body: "thanks"})
	require.NoError(t, err)

	comments, err := svc.ListForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Len(t, comments[0].Replies, 1)
	assert.Equal(t, "thanks", comments[0].Replies[0].Body)

	_, err = svc.UpdateComment(ctx, author.ID, comment.ID, ReplyInput{Body: "edited"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	edited, err := svc.UpdateComment(ctx, replier.ID, comment.ID, ReplyInput{Body: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Body)

	_, err = svc.Reply(ctx, author.ID, "missing-comment", ReplyInput{Body: "hello"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, svc.DeleteComment(ctx, replier.ID, comment.ID))
	comments, err = svc.ListForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = svc.ListForPost(ctx, "missing-post")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// ===== RECIPE TESTS =====

type fakeGenerator struct {
	got    ai.Requirements
	recipe *model.Recipe
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, req ai.Requirements) (*model.Recipe, error) {
	f.got = req
	return f.recipe, f.err
}

func sampleRecipe() *model.Recipe {
	return &model.Recipe{
		Name:        "Han River Sunset",
		Ingredients: []model.Ingredient{{Item: "Soju", Volume: "45ml"}},
		Steps:       []string{"Build over ice"},
	}
}

func TestRecipeService_Generate(t *testing.T) {
	gen := &fakeGenerator{recipe: sampleRecipe()}
	svc := NewRecipeService(newTestDB(t), gen, nil, discardLogger())

	r, err := svc.Generate(context.Background(), GenerateInput{BaseSpirit: " soju ", Taste: "sweet, ,sour", Keywords: "peach"})
	require.NoError(t, err)
	assert.Equal(t, "Han River Sunset", r.Name)
	assert.Equal(t, ai.Requirements{BaseSpirit: "soju", Taste: []string{"sweet", "sour"}, Keywords: []string{"peach"}}, gen.got)
}

func TestRecipeService_GenerateNeedsSpiritOrTaste(t *testing.T) {
	svc := NewRecipeService(newTestDB(t), &fakeGenerator{}, nil, discardLogger())
	_, err := svc.Generate(context.Background(), GenerateInput{Keywords: "mint"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRecipeService_GenerateUpstreamFailure(t *testing.T) {
	svc := NewRecipeService(newTestDB(t), &fakeGenerator{err: errors.New("boom")}, nil, discardLogger())
	_, err := svc.Generate(context.Background(), GenerateInput{BaseSpirit: "rum"})
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestRecipeService_SaveAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db, &fakeGenerator{}, nil, discardLogger())
	ctx := context.Background()
	u := insertUser(t, db, "saver@example.com", "Saver")

	saved, err := svc.Save(ctx, u.ID, *sampleRecipe())
	require.NoError(t, err)
	assert.Equal(t, "han-river-sunset", saved.Slug)

	_, err = svc.Save(ctx, u.ID, *sampleRecipe())
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Save(ctx, u.ID, model.Recipe{Name: "Empty"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	page, err := svc.ListSaved(ctx, u.ID, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Meta.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Soju", page.Items[0].Recipe.Ingredients[0].Item)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(" , "))
	assert.Equal(t, []string{"a", "b"}, splitList("a,, b "))
	assert.Len(t, splitList("1,2,3,4,5,6,7,8,9,10,11,12"), maxListItems)
}
