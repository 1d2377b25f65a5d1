package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-vcardio/filter"
)

const testCards = "BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"FN:John Doe\r\n" +
	"EMAIL;TYPE=work:j@example.org\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"FN:Jane Doe\r\n" +
	"EMAIL:jane@example.com\r\n" +
	"END:VCARD\r\n"

func TestParseMatch(t *testing.T) {
	query, err := parseMatch(nil)
	require.NoError(t, err)
	assert.Nil(t, query)

	query, err = parseMatch([]string{"email=example.org", "FN=john"})
	require.NoError(t, err)
	assert.Equal(t, &filter.Query{
		Test: filter.AllOf,
		PropFilters: []filter.PropFilter{
			{Name: "EMAIL", TextMatches: []filter.TextMatch{{Text: "example.org"}}},
			{Name: "FN", TextMatches: []filter.TextMatch{{Text: "john"}}},
		},
	}, query)

	_, err = parseMatch([]string{"=john"})
	assert.Error(t, err)
	_, err = parseMatch([]string{"FN"})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	name := filepath.Join(t.TempDir(), "cards.vcf")
	require.NoError(t, os.WriteFile(name, []byte(testCards), 0o644))

	for _, tc := range []struct {
		name string
		opts options
		want string
	}{
		{
			name: "json",
			opts: options{format: "json", fold: 75, match: []string{"EMAIL=example.org"}},
			want: `["vcard",[` +
				`["version",{},"text","4.0"],` +
				`["fn",{},"text","John Doe"],` +
				`["email",{"type":"work"},"text","j@example.org"]` +
				"]]\n",
		},
		{
			name: "vcard",
			opts: options{format: "vcard", toVersion: "4.0", fold: 75, match: []string{"fn=jane"}},
			want: "BEGIN:VCARD\r\n" +
				"VERSION:4.0\r\n" +
				"FN:Jane Doe\r\n" +
				"EMAIL:jane@example.com\r\n" +
				"END:VCARD\r\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, run(&sb, []string{name}, &tc.opts))
			assert.Equal(t, tc.want, sb.String())
		})
	}
}

func TestRun_unknownFormat(t *testing.T) {
	name := filepath.Join(t.TempDir(), "cards.vcf")
	require.NoError(t, os.WriteFile(name, []byte(testCards), 0o644))

	var sb strings.Builder
	err := run(&sb, []string{name}, &options{format: "yaml"})
	assert.EqualError(t, err, `unknown output format "yaml"`)
}
