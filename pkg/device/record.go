package device

import (
	"strings"
	"time"
)

// Class is the coarse kind of device
type Class string

const (
	ClassMobile  Class = "mobile"
	ClassDesktop Class = "desktop"
)

// Status of a registry record. Records only ever exist once approved;
// pending devices live in the OTP challenge slot instead.
type Status string

const (
	StatusApproved Status = "approved"
)

// Record is one approved device in an account's allow-list
type Record struct {
	ID         string    `json:"id"`
	Agent      string    `json:"agent"`
	ApprovedAt time.Time `json:"approved_at"`
	IPAddress  string    `json:"ip_address"`
	Class      Class     `json:"class"`
	Status     Status    `json:"status"`
}

var mobileKeywords = []string{
	"mobile", "android", "silk/", "kindle", "blackberry", "opera mini", "opera mobi",
	"iphone", "ipad", "ipod", "windows phone", "webos",
}

// ClassifyAgent reports whether a user agent string looks like a phone or tablet
func ClassifyAgent(agent string) Class {
	agentLower := strings.ToLower(agent)
	for _, keyword := range mobileKeywords {
		if strings.Contains(agentLower, keyword) {
			return ClassMobile
		}
	}
	return ClassDesktop
}
