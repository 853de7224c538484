package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

// authorName is the label shown next to community content: the nickname when
// set, otherwise the display name.
const authorName = `COALESCE(NULLIF(u.nickname, ''), u.name)`

const postSelect = `SELECT p.id, p.author_id, ` + authorName + `, p.title, p.body, p.tags, p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_id`

func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	var (
		p    model.Post
		tags string
	)
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Author,
		&p.Title,
		&p.Body,
		&tags,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("decoding tags of post %s: %w", p.ID, err)
	}
	return &p, nil
}

// CreatePost assigns the ID and timestamps. xid ids sort by creation time,
// which is what the listing order relies on.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	tags, err := encodeList(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding post tags: %w", err)
	}

	post.ID = xid.New().String()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, body, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		post.Title,
		post.Body,
		tags,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

func (db *DB) GetPost(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return p, nil
}

// ListPosts returns newest first. Limit is clamped to [1, 100].
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampPage(opts)

	rows, err := db.conn.QueryContext(ctx,
		postSelect+` ORDER BY p.id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

func (db *DB) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// UpdatePost rewrites title, body and tags. Ownership is checked by the caller.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	tags, err := encodeList(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding post tags: %w", err)
	}
	post.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, tags = ?, updated_at = ? WHERE id = ?`,
		post.Title,
		post.Body,
		tags,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	return expectOneRow(res, "post", post.ID)
}

// DeletePost removes the post; comments and replies go with it through
// ON DELETE CASCADE.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	return expectOneRow(res, "post", id)
}

// COMMENTS

func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if comment.Replies == nil {
		comment.Replies = []model.SubComment{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("post", comment.PostID)
		}
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

// GetComment returns the comment without its replies.
func (db *DB) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := db.conn.QueryRowContext(ctx,
		`SELECT c.id, c.post_id, c.author_id, `+authorName+`, c.body, c.created_at, c.updated_at
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.id = ?`,
		id,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	c.Replies = []model.SubComment{}
	return &c, nil
}

// ListComments returns a post's comments oldest first, each with its replies.
// Two queries instead of one per comment.
func (db *DB) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.author_id, `+authorName+`, c.body, c.created_at, c.updated_at
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ?
		 ORDER BY c.created_at, c.id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	index := make(map[string]int)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		c.Replies = []model.SubComment{}
		index[c.ID] = len(comments)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	if len(comments) == 0 {
		return comments, nil
	}

	replyRows, err := db.conn.QueryContext(ctx,
		`SELECT s.id, s.comment_id, s.author_id, `+authorName+`, s.body, s.created_at
		 FROM sub_comments s
		 JOIN comments c ON c.id = s.comment_id
		 JOIN users u ON u.id = s.author_id
		 WHERE c.post_id = ?
		 ORDER BY s.created_at, s.id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing replies of post %s: %w", postID, err)
	}
	defer replyRows.Close()

	for replyRows.Next() {
		var s model.SubComment
		if err := replyRows.Scan(&s.ID, &s.CommentID, &s.AuthorID, &s.Author, &s.Body, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reply row: %w", err)
		}
		if i, ok := index[s.CommentID]; ok {
			comments[i].Replies = append(comments[i].Replies, s)
		}
	}
	if err := replyRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating replies: %w", err)
	}
	return comments, nil
}

func (db *DB) UpdateComment(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET body = ?, updated_at = ? WHERE id = ?`,
		comment.Body, comment.UpdatedAt, comment.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", comment.ID, err)
	}
	return expectOneRow(res, "comment", comment.ID)
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return expectOneRow(res, "comment", id)
}

func (db *DB) CreateSubComment(ctx context.Context, reply *model.SubComment) error {
	reply.ID = xid.New().String()
	reply.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sub_comments (id, comment_id, author_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		reply.ID,
		reply.CommentID,
		reply.AuthorID,
		reply.Body,
		reply.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("comment", reply.CommentID)
		}
		return fmt.Errorf("sqlite: creating reply: %w", err)
	}
	return nil
}

// expectOneRow turns "no row matched" into apperror.ErrNotFound.
func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// clampPage applies the listing defaults: 20 rows, at most 100, no negative offset.
func clampPage(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
