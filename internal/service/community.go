package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

const DefaultLatestPosts = 5

// PostInput creates or edits a post.
type PostInput struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body"  validate:"required,max=10000"`
	Tags  []string `json:"tags"  validate:"max=10,dive,required,max=30"`
}

// CommentInput creates or edits a comment. PostID is ignored on edit.
type CommentInput struct {
	PostID string `json:"postId" validate:"required"`
	Body   string `json:"body"   validate:"required,max=2000"`
}

// ReplyInput answers a comment.
type ReplyInput struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// CommunityService runs the board: posts, comments and replies. Only the
// author may edit or delete what they wrote.
type CommunityService struct {
	repo   repository.CommunityRepository
	logger *slog.Logger
}

func NewCommunityService(repo repository.CommunityRepository, logger *slog.Logger) *CommunityService {
	return &CommunityService{repo: repo, logger: logger}
}

// ----- POSTS -----

// Latest returns the newest posts for the front page.
func (s *CommunityService) Latest(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = DefaultLatestPosts
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	posts, err := s.repo.ListPosts(ctx, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("service/community: listing latest posts: %w", err)
	}
	return posts, nil
}

func (s *CommunityService) List(ctx context.Context, req PageRequest) (Page[model.Post], error) {
	req = req.normalize()

	total, err := s.repo.CountPosts(ctx)
	if err != nil {
		return Page[model.Post]{}, fmt.Errorf("service/community: counting posts: %w", err)
	}
	posts, err := s.repo.ListPosts(ctx, req.listOptions())
	if err != nil {
		return Page[model.Post]{}, fmt.Errorf("service/community: listing posts: %w", err)
	}
	return newPage(posts, total, req), nil
}

func (s *CommunityService) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.repo.GetPost(ctx, id)
}

func (s *CommunityService) Create(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	in = cleanPostInput(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	post := &model.Post{AuthorID: authorID, Title: in.Title, Body: in.Body, Tags: in.Tags}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/community: %w", err)
	}
	s.logger.Info("post created",
		slog.String("postID", post.ID),
		slog.String("authorID", authorID),
	)
	// Re-read to pick up the author's display label.
	return s.repo.GetPost(ctx, post.ID)
}

func (s *CommunityService) Update(ctx context.Context, userID, postID string, in PostInput) (*model.Post, error) {
	in = cleanPostInput(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	post, err := s.ownPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	post.Title, post.Body, post.Tags = in.Title, in.Body, in.Tags
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *CommunityService) Delete(ctx context.Context, userID, postID string) error {
	if _, err := s.ownPost(ctx, userID, postID); err != nil {
		return err
	}
	if err := s.repo.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.String("postID", postID))
	return nil
}

func (s *CommunityService) ownPost(ctx context.Context, userID, postID string) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, apperror.Forbidden("only the author can change this post")
	}
	return post, nil
}

func cleanPostInput(in PostInput) PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return in
}

// ----- COMMENTS -----

// ListForPost returns a post's comments, oldest first, each with its replies.
func (s *CommunityService) ListForPost(ctx context.Context, postID string) ([]model.Comment, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/community: listing comments: %w", err)
	}
	return comments, nil
}

func (s *CommunityService) CreateComment(ctx context.Context, authorID string, in CommentInput) (*model.Comment, error) {
	in.PostID = strings.TrimSpace(in.PostID)
	in.Body = strings.TrimSpace(in.Body)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	comment := &model.Comment{PostID: in.PostID, AuthorID: authorID, Body: in.Body}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return s.repo.GetComment(ctx, comment.ID)
}

func (s *CommunityService) UpdateComment(ctx context.Context, userID, commentID string, in ReplyInput) (*model.Comment, error) {
	in.Body = strings.TrimSpace(in.Body)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	comment, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}
	comment.Body = in.Body
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommunityService) DeleteComment(ctx context.Context, userID, commentID string) error {
	if _, err := s.ownComment(ctx, userID, commentID); err != nil {
		return err
	}
	return s.repo.DeleteComment(ctx, commentID)
}

// Reply adds a sub-comment under an existing comment.
func (s *CommunityService) Reply(ctx context.Context, authorID, commentID string, in ReplyInput) (*model.SubComment, error) {
	in.Body = strings.TrimSpace(in.Body)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	reply := &model.SubComment{CommentID: commentID, AuthorID: authorID, Body: in.Body}
	if err := s.repo.CreateSubComment(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *CommunityService) ownComment(ctx context.Context, userID, commentID string) (*model.Comment, error) {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, apperror.Forbidden("only the author can change this comment")
	}
	return comment, nil
}
