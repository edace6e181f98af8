package handlers

import (
	"net/http"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/gin-gonic/gin"
)

// CapabilitiesResponse describes the routing table
type CapabilitiesResponse struct {
	Drivers      []string            `json:"drivers"`
	Capabilities map[string][]string `json:"capabilities"`
}

// Capabilities lists every capability with the drivers routed for it, in
// precedence order. Disabled capabilities have an empty list.
func Capabilities(p Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := p.Capabilities()

		resp := CapabilitiesResponse{
			Drivers:      p.Drivers(),
			Capabilities: make(map[string][]string, len(core.Capabilities)),
		}
		for _, capability := range core.Capabilities {
			ids := table[capability]
			if ids == nil {
				ids = []string{}
			}
			resp.Capabilities[string(capability)] = ids
		}

		c.JSON(http.StatusOK, resp)
	}
}
