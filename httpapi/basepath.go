package httpapi

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"path"
	"strings"
)

const baseHrefPlaceholder = "<!-- BASE_HREF -->"

// mount places the web UI under an optional path prefix. prefix is "" or a
// cleaned absolute path without a trailing slash; href is what the index page
// uses as <base href>, always ending in a slash when set.
type mount struct {
	prefix string
	href   string
}

func newMount(baseURL, basePath string) mount {
	m := mount{prefix: cleanPrefix(basePath)}
	origin := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if origin != "" || m.prefix != "" {
		m.href = origin + m.prefix + "/"
	}
	return m
}

func cleanPrefix(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	cleaned := path.Clean("/" + value)
	if cleaned == "/" {
		return ""
	}
	return cleaned
}

// wrap serves handler under the prefix and redirects the bare prefix to its
// slash form so relative asset URLs resolve.
func (m mount) wrap(handler http.Handler) http.Handler {
	if m.prefix == "" {
		return handler
	}
	root := http.NewServeMux()
	root.Handle(m.prefix+"/", http.StripPrefix(m.prefix, handler))
	root.HandleFunc(m.prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != m.prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, m.prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

// rewriteIndex fills the base href placeholder of the index page.
func (m mount) rewriteIndex(page []byte) []byte {
	replacement := ""
	if m.href != "" {
		replacement = fmt.Sprintf(`<base href="%s" />`, html.EscapeString(m.href))
	}
	return bytes.ReplaceAll(page, []byte(baseHrefPlaceholder), []byte(replacement))
}
