package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-vcardio"
)

func TestFilter(t *testing.T) {
	newCard := func(s string) *vcardio.Card {
		card, warnings, err := vcardio.NewDecoder(strings.NewReader(s)).Decode()
		require.NoError(t, err)
		require.Empty(t, warnings)
		return card
	}

	alice := newCard(`BEGIN:VCARD
VERSION:4.0
UID:urn:uuid:4fbe8971-0bc3-424c-9c26-36c3e1eff6b1
FN:Alice Gopher
N:Gopher;Alice;;;
EMAIL;TYPE=work:alice@example.com
END:VCARD
`)

	bob := newCard(`BEGIN:VCARD
VERSION:4.0
UID:urn:uuid:4fbe8971-0bc3-424c-9c26-36c3e1eff6b2
FN:Bob Gopher
N:Gopher;Bob;;;
EMAIL:bob@example.com
X-FAVORITE:go
END:VCARD
`)

	carla := newCard(`BEGIN:VCARD
VERSION:4.0
UID:urn:uuid:4fbe8971-0bc3-424c-9c26-36c3e1eff6b3
FN:Carla Gopher
N:Gopher;Carla;;;
EMAIL:carla@example.com
TEL;TYPE=cell:+1-555-0100
END:VCARD
`)

	all := []*vcardio.Card{alice, bob, carla}

	for _, tc := range []struct {
		name  string
		query *Query
		want  []*vcardio.Card
		err   string
	}{
		{
			name:  "nil-query",
			query: nil,
			want:  all,
		},
		{
			name: "no-limit-query",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "EMAIL",
					TextMatches: []TextMatch{{Text: "example.com"}},
				}},
			},
			want: all,
		},
		{
			name: "limit-query",
			query: &Query{
				Limit: 2,
				PropFilters: []PropFilter{{
					Name:        "EMAIL",
					TextMatches: []TextMatch{{Text: "example.com"}},
				}},
			},
			want: []*vcardio.Card{alice, bob},
		},
		{
			name: "starts-with",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "FN",
					TextMatches: []TextMatch{{Text: "bob", MatchType: MatchStartsWith}},
				}},
			},
			want: []*vcardio.Card{bob},
		},
		{
			name: "equals",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "fn",
					TextMatches: []TextMatch{{Text: "ALICE GOPHER", MatchType: MatchEquals}},
				}},
			},
			want: []*vcardio.Card{alice},
		},
		{
			name: "anyof",
			query: &Query{
				Test: AnyOf,
				PropFilters: []PropFilter{
					{
						Name:        "FN",
						TextMatches: []TextMatch{{Text: "carla gopher", MatchType: MatchEndsWith}},
					},
					{
						Name:        "EMAIL",
						TextMatches: []TextMatch{{Text: "bob"}},
					},
				},
			},
			want: []*vcardio.Card{bob, carla},
		},
		{
			name: "allof",
			query: &Query{
				Test: AllOf,
				PropFilters: []PropFilter{
					{
						Name:        "N",
						TextMatches: []TextMatch{{Text: "gopher"}},
					},
					{
						Name:        "EMAIL",
						TextMatches: []TextMatch{{Text: "alice"}},
					},
				},
			},
			want: []*vcardio.Card{alice},
		},
		{
			name: "negate",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "EMAIL",
					TextMatches: []TextMatch{{Text: "alice", NegateCondition: true}},
				}},
			},
			want: []*vcardio.Card{bob, carla},
		},
		{
			name: "is-not-defined",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:         "TEL",
					IsNotDefined: true,
				}},
			},
			want: []*vcardio.Card{alice, bob},
		},
		{
			name: "extended-property",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "X-FAVORITE",
					TextMatches: []TextMatch{{Text: "GO", MatchType: MatchEquals}},
				}},
			},
			want: []*vcardio.Card{bob},
		},
		{
			name: "param-text-match",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:   "TEL",
					Params: []ParamFilter{{Name: "TYPE", TextMatch: &TextMatch{Text: "cell", MatchType: MatchEquals}}},
				}},
			},
			want: []*vcardio.Card{carla},
		},
		{
			name: "param-is-not-defined",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:   "EMAIL",
					Params: []ParamFilter{{Name: "TYPE", IsNotDefined: true}},
				}},
			},
			want: []*vcardio.Card{bob, carla},
		},
		{
			name: "param-allof",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "EMAIL",
					Test:        AllOf,
					TextMatches: []TextMatch{{Text: "example.com", MatchType: MatchEndsWith}},
					Params:      []ParamFilter{{Name: "TYPE"}},
				}},
			},
			want: []*vcardio.Card{alice},
		},
		{
			name: "no-match",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "EMAIL",
					TextMatches: []TextMatch{{Text: "example.org"}},
				}},
			},
			want: []*vcardio.Card{},
		},
		{
			name: "unknown-match-type",
			query: &Query{
				PropFilters: []PropFilter{{
					Name:        "EMAIL",
					TextMatches: []TextMatch{{Text: "alice", MatchType: "regexp"}},
				}},
			},
			err: `filter: unknown text match type "regexp"`,
		},
		{
			name: "unknown-test",
			query: &Query{
				Test:        "oneof",
				PropFilters: []PropFilter{{Name: "EMAIL"}},
			},
			err: `filter: unknown test "oneof"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Filter(tc.query, all)
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatch_registry(t *testing.T) {
	card := &vcardio.Card{Properties: []vcardio.Property{
		&vcardio.FormattedName{Value: "Alice Gopher"},
	}}

	query := &Query{
		Registry: vcardio.NewEmptyRegistry(),
		PropFilters: []PropFilter{{
			Name:        "FN",
			TextMatches: []TextMatch{{Text: "alice"}},
		}},
	}
	_, err := Match(query, card)
	assert.Error(t, err)

	query.Registry = vcardio.NewRegistry()
	ok, err := Match(query, card)
	require.NoError(t, err)
	assert.True(t, ok)
}
