package provisioning

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/middleware"
	"github.com/muurk/autoprint/internal/store"
	"github.com/muurk/autoprint/internal/version"
)

const pageStyle = `body { font-family: Arial, sans-serif; margin: 20px; background: #f0f0f0; }
.container { max-width: 400px; margin: 0 auto; background: white; padding: 20px; border-radius: 10px; }
input[type="text"], input[type="password"] { width: 100%; padding: 10px; margin: 5px 0; border: 1px solid #ddd; border-radius: 5px; box-sizing: border-box; }
button { width: 100%; padding: 15px; background: #007bff; color: white; border: none; border-radius: 5px; font-size: 16px; }
.info { background: #e7f3ff; padding: 10px; border-radius: 5px; margin-bottom: 20px; }
.success { color: #28a745; font-size: 18px; margin: 20px 0; }
.footer { margin-top: 20px; text-align: center; color: #666; }`

var pages = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<title>AutoPrint Kiosk Setup</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>{{.Style}}</style>
</head>
<body>
<div class="container">
<h2>AutoPrint Kiosk Setup</h2>
<div class="info"><strong>Configure the network connection for your kiosk.</strong></div>
<form action="/configure" method="POST">
<label for="ssid">Network name (SSID):</label>
<input type="text" id="ssid" name="ssid" required placeholder="Enter network name">
<label for="password">Password:</label>
<input type="password" id="password" name="password" placeholder="Leave empty for an open network">
<button type="submit">Connect</button>
</form>
<div class="footer"><small>AutoPrint Kiosk {{.Version}}</small></div>
</div>
</body>
</html>
`))

func init() {
	template.Must(pages.New("saved").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Configuration Saved</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>{{.Style}}</style>
</head>
<body>
<div class="container">
<h2>Configuration Saved</h2>
<div class="success">Network settings have been saved.</div>
<p>The kiosk will now join the network.</p>
<p><strong>Network:</strong> {{.Network}}</p>
<div class="footer"><small>You can close this window.</small></div>
</div>
</body>
</html>
`))
}

type pageData struct {
	Style   template.CSS
	Version string
	Network string
}

func (s *Service) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger("portal"))
	r.SetHTMLTemplate(pages)

	r.GET("/", s.handleForm)
	r.POST("/configure", s.handleConfigure)
	r.NoRoute(handleRedirect)
	return r
}

func (s *Service) handleForm(c *gin.Context) {
	c.HTML(http.StatusOK, "form", pageData{Style: pageStyle, Version: version.Version})
}

func (s *Service) handleConfigure(c *gin.Context) {
	ssid := c.PostForm("ssid")
	if ssid == "" {
		c.String(http.StatusBadRequest, "Missing SSID")
		return
	}

	creds := store.Credentials{NetworkName: ssid, Secret: c.PostForm("password")}
	err := s.handoff(c.Request.Context(), creds)

	switch {
	case err == nil:
		c.HTML(http.StatusOK, "saved", pageData{Style: pageStyle, Network: ssid})
	case errors.Is(err, ErrMissingNetworkName):
		c.String(http.StatusBadRequest, "Missing SSID")
	case errors.Is(err, ErrAlreadySubmitted):
		c.String(http.StatusConflict, "Already configured")
	case errors.Is(err, errHandoffTimeout):
		c.String(http.StatusServiceUnavailable, "Kiosk busy, try again")
	default:
		logging.Error("Failed to apply network settings", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to save settings")
	}
}

// handleRedirect sends every unknown request back to the form, which is
// what makes operating systems open the portal automatically
func handleRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, "/")
}
