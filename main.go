//
// issueblog
// =========
// A JSON API that publishes the issues of one GitHub repository as blog
// articles.
//
// Boot the server:
// ----------------
// $ ISSUEBLOG_GITHUB_OWNER=hankliu ISSUEBLOG_GITHUB_REPO=blog go run . serve
//
// Client requests:
// ----------------
// $ curl http://localhost:3333/
// root.
//
// $ curl http://localhost:3333/articles?page=2
// [{"number":11,"title":"Intro to CSS","excerpt":"...","difficulty":2,...}]
//
// $ curl http://localhost:3333/articles?q=css
// [{"number":11,"title":"Intro to CSS",...}]
//
// $ curl http://localhost:3333/articles/11/toc
// {"number":11,"entries":[{"title":"Box model","id":"box-model","padding_left":16,...}]}
//
// $ curl -X POST -H "Authorization: Bearer $TOKEN" http://localhost:3333/admin/cache/reset
// {"status":"ok"}
//
// Route docs: `go run . routes`
package main

import "github.com/SergeyParamoshkin/issueblog/cmd"

func main() {
	cmd.Execute()
}
