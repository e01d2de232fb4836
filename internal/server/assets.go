package server

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

const runtimePath = "/edgeview.js"

//go:embed assets/runtime.js
var runtimeJS []byte

func serveRuntime(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/javascript; charset=UTF-8", runtimeJS)
}
