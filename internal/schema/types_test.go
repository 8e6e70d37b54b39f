package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/filter_engine/internal/schema"
	"github.com/atlekbai/filter_engine/internal/testutil"
)

func relationField(t *testing.T, s *schema.Schema, model, field string) *schema.RelationField {
	t.Helper()
	f, err := testutil.Model(t, s, model).FindRelationField(field)
	require.NoError(t, err)
	return f
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"posts"`, schema.QuoteIdent("posts"))
	assert.Equal(t, `"a""b"`, schema.QuoteIdent(`a"b`))
}

func TestTableNames(t *testing.T) {
	s := testutil.BlogSchema(t, "blog")
	assert.Equal(t, `"blog"."posts"`, testutil.Model(t, s, "Post").TableName())
	assert.Equal(t, `"blog"."_CategoryToPost"`, s.Relation("CategoryToPost").TableName())
	assert.Equal(t, `"blog"."comments"`, s.Relation("PostComments").TableName())

	bare := testutil.BlogSchema(t, "")
	assert.Equal(t, `"posts"`, testutil.Model(t, bare, "Post").TableName())
}

func TestFindFields(t *testing.T) {
	s := testutil.BlogSchema(t, "blog")
	post := testutil.Model(t, s, "Post")

	f, err := post.FindScalarField("title")
	require.NoError(t, err)
	assert.Equal(t, "title", f.ColumnName())
	assert.Same(t, post, f.Model())
	assert.True(t, post.HasScalarField(f))

	_, err = post.FindScalarField("missing")
	assert.ErrorIs(t, err, schema.ErrUnknownField)

	// Relation and scalar fields live in separate namespaces.
	_, err = post.FindScalarField("comments")
	assert.ErrorIs(t, err, schema.ErrUnknownField)

	_, err = post.FindRelationField("title")
	assert.ErrorIs(t, err, schema.ErrUnknownField)

	comment := testutil.Model(t, s, "Comment")
	body, err := comment.FindScalarField("body")
	require.NoError(t, err)
	assert.False(t, post.HasScalarField(body))
}

func TestRelationColumns(t *testing.T) {
	s := testutil.BlogSchema(t, "blog")

	tests := []struct {
		model, field  string
		related       string
		column        string
		opposite      string
		inlineOnModel bool
		relatedField  string
	}{
		{"Post", "comments", "Comment", "post_id", "id", false, "post"},
		{"Comment", "post", "Post", "id", "post_id", true, "comments"},
		{"Post", "author", "User", "id", "author_id", true, "posts"},
		{"User", "posts", "Post", "author_id", "id", false, "author"},
		{"Post", "categories", "Category", "B", "A", false, "posts"},
		{"Category", "posts", "Post", "A", "B", false, "categories"},
		{"User", "invitedBy", "User", "id", "invited_by_id", true, "invited"},
		{"User", "invited", "User", "invited_by_id", "id", false, "invitedBy"},
	}
	for _, tt := range tests {
		t.Run(tt.model+"."+tt.field, func(t *testing.T) {
			f := relationField(t, s, tt.model, tt.field)
			assert.Equal(t, tt.related, f.RelatedModel().Name)
			assert.Equal(t, tt.column, f.Column())
			assert.Equal(t, tt.opposite, f.OppositeColumn())
			assert.Equal(t, tt.inlineOnModel, f.InlineOnModel())
			require.NotNil(t, f.RelatedField())
			assert.Equal(t, tt.relatedField, f.RelatedField().Name)
		})
	}
}

func TestRelationSides(t *testing.T) {
	s := testutil.BlogSchema(t, "blog")

	assert.Equal(t, schema.SideA, relationField(t, s, "Post", "comments").Side)
	assert.Equal(t, schema.SideB, relationField(t, s, "Comment", "post").Side)
	assert.Equal(t, schema.SideB, schema.SideA.Opposite())
	assert.Equal(t, schema.SideA, schema.SideB.Opposite())

	rel := s.Relation("UserInvites")
	require.NotNil(t, rel)
	assert.True(t, rel.IsSelfRelation())
	assert.Same(t, rel.ModelA(), rel.ModelB())
	assert.False(t, s.Relation("PostComments").IsSelfRelation())
}
