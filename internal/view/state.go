// Package view holds the dashboard navigation state. The state travels in
// the query string; nothing about it is kept on the server.
package view

import (
	"net/url"
	"strings"
)

type Page string

const (
	PageUpload   Page = "upload"
	PageOverview Page = "overview"
	PageProfile  Page = "profile"
)

// State is the current page plus the rep selected on the profile page.
type State struct {
	Page  Page   `json:"page"`
	RepID string `json:"rep_id,omitempty"`
}

// Parse reads ?page=&rep= and repairs it: an unknown page means upload and
// a profile without a rep falls back to the overview. RepID is kept only on
// the profile page.
func Parse(q url.Values) State {
	s := State{
		Page:  Page(strings.ToLower(strings.TrimSpace(q.Get("page")))),
		RepID: strings.TrimSpace(q.Get("rep")),
	}
	switch s.Page {
	case PageUpload, PageOverview:
		s.RepID = ""
	case PageProfile:
		if s.RepID == "" {
			s.Page = PageOverview
		}
	default:
		s.Page = PageUpload
		s.RepID = ""
	}
	return s
}

// Query encodes s back into query parameters.
func (s State) Query() url.Values {
	q := url.Values{}
	q.Set("page", string(s.Page))
	if s.Page == PageProfile && s.RepID != "" {
		q.Set("rep", s.RepID)
	}
	return q
}

// Profile returns the state for a rep's profile page.
func Profile(repID string) State {
	return State{Page: PageProfile, RepID: repID}
}
