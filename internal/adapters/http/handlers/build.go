package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// BuildInfo is served on /-/build. Version, Commit and BuildTime are set
// with ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`

	// Contextify is nil when the setup is not reported.
	Contextify *FeatureInfo `json:"contextify,omitempty"`
}

// FeatureInfo summarizes what the service collects and where it delivers
// notifications.
type FeatureInfo struct {
	Enabled       bool                `json:"enabled"`
	Notifications bool                `json:"notifications"`
	Providers     map[string][]string `json:"providers,omitempty"` // group -> provider ids
	Channels      map[string][]string `json:"channels,omitempty"`  // notification kind -> channels
}

// NewBuildInfo fills in the Go version the binary was built with.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// WithFeatures returns a copy of b reporting f.
func (b BuildInfo) WithFeatures(f FeatureInfo) BuildInfo {
	b.Contextify = &f
	return b
}

// BuildInfoHandler serves GET /-/build.
func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}
