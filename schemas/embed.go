// Package schemas содержит JSON-схемы событий, записей и API-запросов, зашитые в бинарник.
package schemas

import "embed"

//go:embed events api
var FS embed.FS
