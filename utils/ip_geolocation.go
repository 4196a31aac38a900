package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

var geoLookupURL = "http://ip-api.com/json/%s"

var geoClient = &http.Client{Timeout: 3 * time.Second}

// GetIPLocation resolves "City, Country" for an address. Private and loopback
// addresses are "Local", lookup failures are "Unknown".
func GetIPLocation(ctx context.Context, ipAddress string) string {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "Unknown"
	}
	if ip.IsLoopback() || ip.IsPrivate() {
		return "Local"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(geoLookupURL, ipAddress), nil)
	if err != nil {
		return "Unknown"
	}
	resp, err := geoClient.Do(req)
	if err != nil {
		return "Unknown"
	}
	defer resp.Body.Close()

	var result struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "Unknown"
	}

	if result.City != "" && result.Country != "" {
		return fmt.Sprintf("%s, %s", result.City, result.Country)
	}
	return "Unknown"
}
