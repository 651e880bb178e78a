package hls

import "strings"

// rootOf strips the final path segment from url when that segment looks
// like a filename (contains a dot), leaving the trailing slash. A url
// with no filename component is returned unchanged.
func rootOf(url string) string {
	slash := strings.LastIndexByte(url, '/')
	if slash < 0 {
		return url
	}
	if strings.IndexByte(url[slash:], '.') < 0 {
		return url
	}
	return url[:slash+1]
}

// resolveURL resolves a playlist or segment URI against the root URL.
// Absolute http/https URIs pass through unchanged.
func resolveURL(root, uri string) string {
	if strings.HasPrefix(uri, "http:") || strings.HasPrefix(uri, "https:") {
		return uri
	}
	return root + uri
}
