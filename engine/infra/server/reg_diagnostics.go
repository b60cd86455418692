package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	schemeHTTPS = "https"
	schemeHTTP  = "http"
)

func setupDiagnosticEndpoints(router *gin.Engine, version, prefixURL string) {
	router.GET("/", createRootHandler(version, prefixURL))
	router.GET(prefixURL, createRootHandler(version, prefixURL))
	router.GET("/health", CreateHealthHandler(version))
	router.GET(prefixURL+"/health", CreateHealthHandler(version))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"data":    gin.H{"status": "ok"},
			"message": "Success",
		})
	})
	router.GET("/readyz", func(c *gin.Context) {
		ready, response := gatherHealth(c, version)
		delete(response, "library")
		c.JSON(determineHealthStatusCode(ready), gin.H{
			"data":    response,
			"message": "Success",
		})
	})
}

func createRootHandler(version, prefixURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := sanitizeHost(c.Request.Host)
		scheme := strings.ToLower(strings.TrimSpace(c.Request.Header.Get("X-Forwarded-Proto")))
		if scheme == "" {
			if c.Request.TLS != nil {
				scheme = schemeHTTPS
			} else {
				scheme = schemeHTTP
			}
		} else {
			if comma := strings.IndexByte(scheme, ','); comma >= 0 {
				scheme = scheme[:comma]
			}
		}
		scheme = normalizeScheme(scheme)
		if host == "" {
			host = sanitizeHost(c.Request.Header.Get("X-Forwarded-Host"))
		}
		if host == "" {
			host = sanitizeHost(c.Request.URL.Host)
		}
		if host == "" {
			host = "localhost"
		}
		baseURL := fmt.Sprintf("%s://%s", scheme, host)
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"name":        "Specmatch API",
				"version":     version,
				"description": "Specification library matching for construction infractions",
				"endpoints": gin.H{
					"health":  fmt.Sprintf("%s%s/health", baseURL, prefixURL),
					"api":     fmt.Sprintf("%s%s", baseURL, prefixURL),
					"library": fmt.Sprintf("%s%s/library", baseURL, prefixURL),
					"upload":  fmt.Sprintf("%s%s/library/documents", baseURL, prefixURL),
					"analyze": fmt.Sprintf("%s%s/analyze", baseURL, prefixURL),
				},
			},
			"message": "Success",
		})
	}
}

func normalizeScheme(raw string) string {
	switch raw {
	case schemeHTTPS:
		return schemeHTTPS
	default:
		return schemeHTTP
	}
}

func sanitizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if comma := strings.IndexByte(raw, ','); comma >= 0 {
		raw = raw[:comma]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse("//" + raw)
	if err != nil {
		return ""
	}
	return parsed.Host
}
