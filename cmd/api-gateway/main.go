package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/eaglebank/servicepay/shared/middleware"
	"github.com/gin-gonic/gin"
)

var ledgerServiceURL = getEnv("LEDGER_SERVICE_URL", "http://localhost:8090")

var proxyClient = &http.Client{Timeout: 30 * time.Second}

func main() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	auth := middleware.AuthMiddleware([]byte(secret))

	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "api-gateway"})
	})

	// Tool routes
	router.GET("/v1/tools", auth, proxyTo(ledgerServiceURL))
	router.POST("/v1/tools/:name", auth, proxyTo(ledgerServiceURL))

	// Receipt routes
	router.GET("/v1/receipts/:receiptId", auth, proxyTo(ledgerServiceURL))

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func proxyTo(serviceURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetURL := serviceURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, bytes.NewReader(bodyBytes))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create request"})
			return
		}

		for key, values := range c.Request.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		// The ledger service checks the bearer token again; the caller header is informational.
		if callerID, ok := middleware.GetCallerID(c); ok {
			req.Header.Set("X-Caller-ID", callerID)
		}
		if requestID := middleware.GetRequestID(c); requestID != "" {
			req.Header.Set(middleware.RequestIDHeader, requestID)
		}

		resp, err := proxyClient.Do(req)
		if err != nil {
			log.Printf("Error proxying request: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"message": "Service unavailable"})
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read response"})
			return
		}

		for key, values := range resp.Header {
			for _, value := range values {
				c.Header(key, value)
			}
		}
		c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSuffix(value, "/")
	}
	return fallback
}
