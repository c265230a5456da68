package server

import (
	"bytes"

	"golang.org/x/net/html"
)

// ReloadSnippet loads the reload client and the build status badge.
const ReloadSnippet = `<script src="/live-reload.js"></script><script src="/status-bar.js"></script>`

// Inject inserts ReloadSnippet before the first closing body tag of doc.
// Tags inside comments or script text do not count. Documents without one
// get the snippet appended.
func Inject(doc []byte) []byte {
	at := closingBodyOffset(doc)
	if at < 0 {
		out := make([]byte, 0, len(doc)+len(ReloadSnippet)+1)
		out = append(out, doc...)
		out = append(out, '\n')
		return append(out, ReloadSnippet...)
	}

	out := make([]byte, 0, len(doc)+len(ReloadSnippet))
	out = append(out, doc[:at]...)
	out = append(out, ReloadSnippet...)
	return append(out, doc[at:]...)
}

// closingBodyOffset returns the byte offset of the first </body> end tag,
// or -1.
func closingBodyOffset(doc []byte) int {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return -1
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				return offset
			}
		}
		offset += raw
	}
}
