package deviceid

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/tendant/devicelimit/pkg/device"
)

// Unknown is recorded when the request carries no agent or address
const Unknown = "unknown"

var errNoWriter = errors.New("no response writer to set device cookie on")

// ClientInfo is what the login flow captures about the device behind a request
type ClientInfo struct {
	DeviceID  string
	Agent     string
	IPAddress string
	Class     device.Class
}

// FromRequest captures agent, address and class for the given device id
func FromRequest(r *http.Request, deviceID string) ClientInfo {
	agent := strings.TrimSpace(r.UserAgent())
	if agent == "" {
		agent = Unknown
	}

	return ClientInfo{
		DeviceID:  deviceID,
		Agent:     agent,
		IPAddress: remoteIP(r.RemoteAddr),
		Class:     device.ClassifyAgent(agent),
	}
}

// remoteIP strips the port from a RemoteAddr value
func remoteIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Unknown
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// No port present
		return addr
	}
	if host == "" {
		return Unknown
	}
	return host
}
