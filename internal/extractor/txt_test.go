package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXTSinglePage(t *testing.T) {
	result, err := ExtractTXT([]byte("This agreement covers consulting services."))

	require.NoError(t, err)
	assert.Equal(t, 1, result.PageCount)
	require.Len(t, result.Pages, 1)
	assert.Equal(t, 1, result.Pages[0].Number)
	assert.Equal(t, "This agreement covers consulting services.", result.Pages[0].Text)
	assert.False(t, result.Truncated)
}

func TestExtractTXTFormFeedPageBreaks(t *testing.T) {
	result, err := ExtractTXT([]byte("Page one body.\fPage two body.\fPage three body."))

	require.NoError(t, err)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, "Page one body.", result.Pages[0].Text)
	assert.Equal(t, "Page two body.", result.Pages[1].Text)
	assert.Equal(t, "Page three body.", result.Pages[2].Text)
	for i, page := range result.Pages {
		assert.Equal(t, i+1, page.Number)
	}
}

func TestExtractTXTNormalizesLineEndings(t *testing.T) {
	result, err := ExtractTXT([]byte("line one\r\nline two\rline three"))

	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\nline three", result.Pages[0].Text)
}

func TestExtractTXTUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("clause body")...)

	result, err := ExtractTXT(data)

	require.NoError(t, err)
	assert.Equal(t, "clause body", result.Pages[0].Text)
}

func TestExtractTXTRejectsEmptyInput(t *testing.T) {
	_, err := ExtractTXT(nil)
	require.Error(t, err)

	_, err = ExtractTXT([]byte("   \n  "))
	require.Error(t, err)
}

func TestExtractTXTCapsOversizedPage(t *testing.T) {
	big := strings.Repeat("a", MaxPageText+100)

	result, err := ExtractTXT([]byte(big))

	require.NoError(t, err)
	assert.Len(t, result.Pages[0].Text, MaxPageText)
	assert.True(t, result.Pages[0].Truncated)
	assert.True(t, result.Truncated)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "page 1 truncated")
}

func TestExtractTXTStopsAtDocumentCap(t *testing.T) {
	page := strings.Repeat("b", MaxPageText)
	pages := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		pages = append(pages, page)
	}

	result, err := ExtractTXT([]byte(strings.Join(pages, "\f")))

	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Less(t, result.PageCount, 12, "pages past the document cap are dropped")

	total := 0
	for _, p := range result.Pages {
		total += len(p.Text)
	}
	assert.LessOrEqual(t, total, MaxDocumentText)
}
