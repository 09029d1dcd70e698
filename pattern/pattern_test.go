package pattern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote/model"
)

const (
	urlExample    = "https://discordapp.com/channels/443502244734828556/443678718792040448/678429687126556692"
	ptbURLExample = "https://ptb.discordapp.com/channels/443502244734828556/443678718792040448/678429687126556692"
)

func TestExtract_Blockquote(t *testing.T) {
	res := Extract("> lorem ipsum")
	require.True(t, res.Found())
	assert.Equal(t, model.ReferenceTextFragment, res.Kind)
	assert.Equal(t, []model.Reference{model.TextFragment("lorem ipsum")}, res.References)
	assert.Empty(t, res.Residual)
}

func TestExtract_BlockquoteInsideText(t *testing.T) {
	res := Extract("blah blah\n> lorem ipsum\nblah blah")
	require.Len(t, res.References, 1)
	assert.Equal(t, "lorem ipsum", res.References[0].Text)
	assert.Equal(t, "blah blah\nblah blah", res.Residual)
}

func TestExtract_MultiLineBlockquote(t *testing.T) {
	res := Extract("> first line\n> second line\nmy comment")
	require.Len(t, res.References, 1)
	assert.Equal(t, "first line\nsecond line", res.References[0].Text)
	assert.Equal(t, "my comment", res.Residual)
}

func TestExtract_BlockquoteTrimsFragment(t *testing.T) {
	for _, body := range []string{"cats are great", "  padded  ", "a1b2", "12 34", "x"} {
		res := Extract("> " + body)
		require.Len(t, res.References, 1, body)
		assert.Equal(t, model.ReferenceTextFragment, res.Kind, body)
		assert.Equal(t, strings.TrimSpace(body), res.References[0].Text, body)
	}
}

func TestExtract_IgnoresEmoji(t *testing.T) {
	res := Extract("<:foo:123> <:bar:456>")
	assert.False(t, res.Found())
	assert.Equal(t, "<:foo:123> <:bar:456>", res.Residual)
}

func TestExtract_EmptyQuoteLine(t *testing.T) {
	assert.False(t, Extract("> ").Found())
	assert.False(t, Extract(">no space").Found())
}

func TestExtract_BlockquoteID(t *testing.T) {
	for _, digits := range []string{"0", "678429687126556692", "42"} {
		res := Extract("> " + digits)
		require.Len(t, res.References, 1, digits)
		assert.Equal(t, model.ReferenceMessageID, res.Kind)
		assert.Equal(t, model.MessageIDRef(digits), res.References[0])
	}
}

func TestExtract_IDWinsOverText(t *testing.T) {
	res := Extract("> some words\n> 678429687126556692\nhello")
	assert.Equal(t, model.ReferenceMessageID, res.Kind)
	assert.Equal(t, []model.Reference{model.MessageIDRef("678429687126556692")}, res.References)
	assert.Equal(t, "> some words\nhello", res.Residual)
}

func TestExtract_Permalink(t *testing.T) {
	want := model.MessageURLRef("443502244734828556", "443678718792040448", "678429687126556692")
	for _, link := range []string{
		urlExample,
		urlExample + "/",
		ptbURLExample,
		ptbURLExample + "/",
		"https://discord.com/channels/443502244734828556/443678718792040448/678429687126556692",
		"https://ptb.discord.com/channels/443502244734828556/443678718792040448/678429687126556692/",
	} {
		res := Extract(link)
		require.Len(t, res.References, 1, link)
		assert.Equal(t, model.ReferenceMessageURL, res.Kind)
		assert.Equal(t, want, res.References[0], link)
		assert.Empty(t, res.Residual, link)
	}
}

func TestExtract_PermalinkInsideContent(t *testing.T) {
	res := Extract("foo bar\n" + urlExample + " foo bar")
	require.Len(t, res.References, 1)
	assert.Equal(t, "678429687126556692", res.References[0].MessageID)
	assert.Equal(t, "foo bar\n foo bar", res.Residual)
}

func TestExtract_MultiplePermalinks(t *testing.T) {
	other := "https://discord.com/channels/1/2/3"
	res := Extract("look\n" + urlExample + "\n\n" + other + "\n> quoted text")
	require.Len(t, res.References, 2)
	assert.Equal(t, "678429687126556692", res.References[0].MessageID)
	assert.Equal(t, model.MessageURLRef("1", "2", "3"), res.References[1])
	assert.Equal(t, "look\n> quoted text", res.Residual)
}

func TestExtract_UnknownHost(t *testing.T) {
	assert.False(t, Extract("https://canary.example.com/channels/1/2/3").Found())
}

func TestExtract_PermalinkMustEndAtBoundary(t *testing.T) {
	text := "see https://discord.com/channels/1/2/345abc"
	res := Extract(text)
	assert.False(t, res.Found())
	assert.Equal(t, text, res.Residual)

	res = Extract("see https://discord.com/channels/1/2/345, thanks")
	require.Len(t, res.References, 1)
	assert.Equal(t, "345", res.References[0].MessageID)
	assert.Equal(t, "see , thanks", res.Residual)
}

func TestExtract_Deterministic(t *testing.T) {
	text := "hi\n" + urlExample + "\n> 123\n> words"
	first := Extract(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Extract(text))
	}
}

func TestRemoveEmptyLines(t *testing.T) {
	assert.Equal(t, "hello\nbye", RemoveEmptyLines("hello\n\n\nbye"))
	assert.Equal(t, "hello", RemoveEmptyLines("  \n hello \n \t \n"))
	assert.Empty(t, RemoveEmptyLines("\n\n"))
}
