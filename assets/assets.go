// Package assets provides access to embedded static files: the lookup page, its CSS and JS, and SQL migrations.
package assets

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed css/*.css js/*.js migrations/*.sql index.html favicon.svg
var embedFS embed.FS

// GetFileSystem returns an http.FileSystem interface for the embedded assets,
// rooted at the current directory of the embed.FS.
func GetFileSystem() http.FileSystem {
	return http.FS(embedFS)
}

// ReadFile returns the content of a specific file from the embedded assets by its name.
func ReadFile(name string) ([]byte, error) {
	return embedFS.ReadFile(name)
}

// ReadDir returns the directory entries for a specific path.
func ReadDir(name string) ([]fs.DirEntry, error) {
	return embedFS.ReadDir(name)
}
