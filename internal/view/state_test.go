package view

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		query string
		want  State
	}{
		{"", State{Page: PageUpload}},
		{"page=upload&rep=rep001", State{Page: PageUpload}},
		{"page=Overview", State{Page: PageOverview}},
		{"page=profile&rep=rep003", State{Page: PageProfile, RepID: "rep003"}},
		{"page=profile", State{Page: PageOverview}},
		{"page=profile&rep=%20%20", State{Page: PageOverview}},
		{"page=settings&rep=rep001", State{Page: PageUpload}},
	}
	for _, tc := range cases {
		q, err := url.ParseQuery(tc.query)
		require.NoError(t, err)
		require.Equal(t, tc.want, Parse(q), tc.query)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	for _, s := range []State{{Page: PageUpload}, {Page: PageOverview}, Profile("rep010")} {
		require.Equal(t, s, Parse(s.Query()))
	}
	require.Equal(t, "page=profile&rep=rep010", Profile("rep010").Query().Encode())
}
