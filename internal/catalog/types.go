// Package catalog adapts to an upstream OpenSubtitles-compatible
// subtitle catalog: searching for English subtitles and downloading
// the raw file behind a search result.
package catalog

import "golang.org/x/text/language"

// SearchQuery names a title (and optionally season/episode) to search
// the catalog for. The catalog only ever returns English subtitles;
// translation happens downstream of this package.
type SearchQuery struct {
	IMDBID  string
	Query   string
	Season  int
	Episode int
}

// SearchResult is one English subtitle the catalog knows about.
type SearchResult struct {
	FileID       string
	ReleaseName  string
	DownloadsAll int
	Language     language.Tag
}

// DownloadResult carries the raw subtitle bytes and the format they
// were served in.
type DownloadResult struct {
	Content []byte
	Format  string
}

// Client is the contract the rest of the proxy depends on; the
// concrete HTTP implementation lives in client.go.
type Client interface {
	Search(query SearchQuery) ([]SearchResult, error)
	Download(fileID string) (DownloadResult, error)
	Login() error
	Logout() error
}
