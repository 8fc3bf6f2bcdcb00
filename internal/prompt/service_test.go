package prompt_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/prompt"
	"github.com/hugh/prompthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var writerRoles = []string{
	permission.RoleCreatePrompt,
	permission.RoleReadPrompt,
	permission.RoleUpdatePrompt,
	permission.RoleDestroyPrompt,
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.TestContext(t)
	author := env.ActiveAccount(t, writerRoles...)

	t.Run("creates trimmed prompt", func(t *testing.T) {
		p, err := env.Prompts.Create(ctx, author.ID, prompt.Input{Title: "  Summarize  ", Body: "Summarize this text."})
		require.NoError(t, err)
		assert.Equal(t, "Summarize", p.Title)
		assert.Equal(t, author.ID, p.AuthorID)
		assert.Zero(t, p.LikesCount)
	})

	t.Run("requires create_prompt", func(t *testing.T) {
		reader := env.ActiveAccount(t, permission.RoleReadPrompt)
		_, err := env.Prompts.Create(ctx, reader.ID, prompt.Input{Title: "x", Body: "y"})
		assert.ErrorIs(t, err, permission.ErrForbidden)
	})

	tests := []struct {
		name  string
		input prompt.Input
		want  error
	}{
		{"empty title", prompt.Input{Title: "   ", Body: "body"}, prompt.ErrTitleInvalid},
		{"long title", prompt.Input{Title: strings.Repeat("a", 101), Body: "body"}, prompt.ErrTitleInvalid},
		{"empty body", prompt.Input{Title: "title", Body: " "}, prompt.ErrBodyMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Prompts.Create(ctx, author.ID, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_ListAndGet(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.TestContext(t)
	author := env.ActiveAccount(t, writerRoles...)
	other := env.ActiveAccount(t, writerRoles...)

	for i := 0; i < 3; i++ {
		_, err := env.Prompts.Create(ctx, author.ID, prompt.Input{Title: "mine", Body: "body"})
		require.NoError(t, err)
	}
	theirs, err := env.Prompts.Create(ctx, other.ID, prompt.Input{Title: "theirs", Body: "body"})
	require.NoError(t, err)

	prompts, total, err := env.Prompts.List(ctx, author.ID, prompt.ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, prompts, 2)

	prompts, total, err = env.Prompts.List(ctx, author.ID, prompt.ListParams{Limit: 10, AuthorID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, prompts, 1)
	assert.Equal(t, theirs.ID, prompts[0].ID)

	got, err := env.Prompts.Get(ctx, author.ID, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "theirs", got.Title)

	_, err = env.Prompts.Get(ctx, author.ID, uuid.New())
	assert.ErrorIs(t, err, prompt.ErrPromptNotFound)

	stranger := env.ActiveAccount(t)
	_, _, err = env.Prompts.List(ctx, stranger.ID, prompt.ListParams{Limit: 10})
	assert.ErrorIs(t, err, permission.ErrForbidden)
}

func TestService_UpdateAndDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.TestContext(t)
	author := env.ActiveAccount(t, writerRoles...)
	other := env.ActiveAccount(t, writerRoles...)
	admin := env.ActiveAccount(t, append([]string{permission.RoleAdmin}, writerRoles...)...)

	p, err := env.Prompts.Create(ctx, author.ID, prompt.Input{Title: "draft", Body: "body"})
	require.NoError(t, err)

	t.Run("author updates", func(t *testing.T) {
		updated, err := env.Prompts.Update(ctx, author.ID, p.ID, prompt.Input{Title: "final", Body: "new body"})
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Title)

		got, err := env.Prompts.Get(ctx, author.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "new body", got.Body)
	})

	t.Run("other author cannot update", func(t *testing.T) {
		_, err := env.Prompts.Update(ctx, other.ID, p.ID, prompt.Input{Title: "hijack", Body: "body"})
		assert.ErrorIs(t, err, prompt.ErrNotAuthor)
	})

	t.Run("admin updates", func(t *testing.T) {
		_, err := env.Prompts.Update(ctx, admin.ID, p.ID, prompt.Input{Title: "moderated", Body: "body"})
		assert.NoError(t, err)
	})

	t.Run("other author cannot delete", func(t *testing.T) {
		err := env.Prompts.Delete(ctx, other.ID, p.ID)
		assert.ErrorIs(t, err, prompt.ErrNotAuthor)
	})

	t.Run("author deletes", func(t *testing.T) {
		_, err := env.Prompts.Like(ctx, other.ID, p.ID)
		require.NoError(t, err)

		require.NoError(t, env.Prompts.Delete(ctx, author.ID, p.ID))

		_, err = env.Prompts.Get(ctx, author.ID, p.ID)
		assert.ErrorIs(t, err, prompt.ErrPromptNotFound)

		var likes int64
		require.NoError(t, env.DB.Model(&models.PromptLike{}).Where("prompt_id = ?", p.ID).Count(&likes).Error)
		assert.Zero(t, likes)
	})
}

func TestService_LikesAndBookmarks(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.TestContext(t)
	author := env.ActiveAccount(t, writerRoles...)
	fan := env.ActiveAccount(t)

	p, err := env.Prompts.Create(ctx, author.ID, prompt.Input{Title: "popular", Body: "body"})
	require.NoError(t, err)

	liked, err := env.Prompts.Like(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikesCount)

	_, err = env.Prompts.Like(ctx, fan.ID, p.ID)
	assert.ErrorIs(t, err, prompt.ErrAlreadyLiked)

	liked, err = env.Prompts.Like(ctx, author.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, liked.LikesCount)

	unliked, err := env.Prompts.Unlike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unliked.LikesCount)

	_, err = env.Prompts.Unlike(ctx, fan.ID, p.ID)
	assert.ErrorIs(t, err, prompt.ErrNotLiked)

	marked, err := env.Prompts.Bookmark(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked.BookmarksCount)
	assert.Equal(t, 1, marked.LikesCount)

	_, err = env.Prompts.Bookmark(ctx, fan.ID, p.ID)
	assert.ErrorIs(t, err, prompt.ErrAlreadyBookmarked)

	unmarked, err := env.Prompts.Unbookmark(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.Zero(t, unmarked.BookmarksCount)

	_, err = env.Prompts.Unbookmark(ctx, fan.ID, p.ID)
	assert.ErrorIs(t, err, prompt.ErrNotBookmarked)

	_, err = env.Prompts.Like(ctx, fan.ID, uuid.New())
	assert.ErrorIs(t, err, prompt.ErrPromptNotFound)
}
