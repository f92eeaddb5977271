package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "id,url,title,text,title_vector,content_vector,vector_id\n"

func TestParseVector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []float32
		wantErr bool
	}{
		{
			name:  "plain vector",
			input: "[0.1, -0.2, 0.3]",
			want:  []float32{0.1, -0.2, 0.3},
		},
		{
			name:  "surrounding whitespace",
			input: "  [1, 2]  ",
			want:  []float32{1, 2},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "empty array",
			input:   "[]",
			wantErr: true,
		},
		{
			name:    "not a vector",
			input:   "hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := ParseVector(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, vec)
		})
	}
}

func TestParse(t *testing.T) {
	data := testHeader +
		`1,https://en.wikipedia.org/wiki/April,April,April is the fourth month.,"[0.1, 0.2, 0.3]","[0.4, 0.5, 0.6]",0` + "\n" +
		`2,https://en.wikipedia.org/wiki/August,August,August is the eighth month.,"[0.7, 0.8, 0.9]","[1.0, 1.1, 1.2]",1` + "\n"

	parser := NewParser(ParserConfig{VectorDim: 3})
	articles, err := parser.Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, 1, articles[0].ID)
	assert.Equal(t, "April", articles[0].Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/April", articles[0].URL)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, articles[0].TitleVector)
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, articles[0].ContentVector)
	assert.Equal(t, 0, articles[0].VectorID)
	assert.Equal(t, 1, articles[1].VectorID)
}

func TestParseSkipsMalformedRows(t *testing.T) {
	data := testHeader +
		`1,https://example.com/1,One,text,"[0.1, 0.2]","[0.3, 0.4]",0` + "\n" +
		`oops,https://example.com/2,Two,text,"[0.1, 0.2]","[0.3, 0.4]",1` + "\n" + // bad id
		`3,https://example.com/3,Three,text,"[0.1]","[0.3, 0.4]",2` + "\n" + // wrong dimension
		`4,https://example.com/4,Four,text,"[0.5, 0.6]","[0.7, 0.8]",3` + "\n"

	var skipped []int
	parser := NewParser(ParserConfig{
		VectorDim: 2,
		OnRowError: func(line int, err error) {
			skipped = append(skipped, line)
			assert.Error(t, err)
		},
	})

	articles, err := parser.Parse(strings.NewReader(data))
	require.NoError(t, err)

	require.Len(t, articles, 2)
	assert.Equal(t, 1, articles[0].ID)
	assert.Equal(t, 4, articles[1].ID)
	assert.Equal(t, []int{3, 4}, skipped)
}

func TestParseMissingColumn(t *testing.T) {
	data := "id,url,title\n1,https://example.com,One\n"

	parser := NewParser(ParserConfig{VectorDim: 2})
	_, err := parser.Parse(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestSanitizeUTF8(t *testing.T) {
	valid := "April is the fourth month"
	assert.Equal(t, valid, sanitizeUTF8(valid))

	invalid := "bad\xffbyte"
	cleaned := sanitizeUTF8(invalid)
	assert.Equal(t, "badbyte", cleaned)
}
