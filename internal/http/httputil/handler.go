package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler mounts one resource under the API version groups. Root is
// the resource path shared by all three groups.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
