// Package static serves devicesim's single status page through
// rakyll/statik, grounded on the teacher's webserver/statik embed
// (mounted at /dashboard via router.Group("/dashboard").StaticFS).
// The teacher generates its statik.go with the statik CLI at build
// time; since this module is never built here, the zip archive
// fs.Register expects is instead assembled in-process with
// archive/zip, which is the same format the generated file carries.
package static

import (
	"archive/zip"
	"bytes"
	"net/http"
	"sync"

	"github.com/rakyll/statik/fs"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>lorawan-device</title></head>
<body>
<h1>lorawan-device</h1>
<p>Single Class-A end-device engine harness.</p>
<ul>
<li>GET /api/status</li>
<li>POST /api/join</li>
<li>POST /api/send</li>
<li>GET /metrics</li>
</ul>
<script src="/socket.io/socket.io.js"></script>
</body>
</html>
`

var registerOnce sync.Once

func register() {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("/index.html")
	if err == nil {
		_, _ = w.Write([]byte(indexHTML))
	}
	_ = zw.Close()
	fs.Register(buf.String())
}

// New returns the dashboard's embedded filesystem, registering the
// archive on first call.
func New() (http.FileSystem, error) {
	registerOnce.Do(register)
	return fs.New()
}
