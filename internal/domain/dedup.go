package domain

import (
	"net/url"
	"strings"
)

// ArticleIDParams lists query parameters boards commonly use to carry a
// stable per-article id, most specific first.
var ArticleIDParams = []string{
	"articleNo",
	"nttId",
	"nttSn",
	"bbsIdx",
	"board_seq",
	"wr_id",
	"uid",
	"idx",
	"seq",
	"no",
	"id",
}

// DedupKey derives the identity used to decide whether a posting was seen
// before: the article id embedded in link, else the link itself, else the
// title.
func DedupKey(link, title string) string {
	link = strings.TrimSpace(link)
	if id := ArticleID(link); id != "" {
		return id
	}
	if usableLink(link) {
		return link
	}
	return strings.TrimSpace(title)
}

// ArticleID extracts the article id query parameter from link, or "".
func ArticleID(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, p := range ArticleIDParams {
		if v := strings.TrimSpace(q.Get(p)); v != "" {
			return v
		}
	}
	return ""
}

func usableLink(link string) bool {
	if link == "" || link == "#" {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(link), "javascript:")
}
