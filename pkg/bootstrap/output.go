package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// PrintDeviceBootstrapResult displays the bootstrap result in a clean, formatted way
func PrintDeviceBootstrapResult(w io.Writer, result *DeviceBootstrapResult, cookieName string) {
	if result == nil {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n", border)
	fmt.Fprintln(w, "DEVICE BOOTSTRAP")
	fmt.Fprintf(w, "%s\n", border)

	fmt.Fprintf(w, "  Account:   %s (%s)\n", result.Username, result.AccountID)
	if !result.Approved {
		fmt.Fprintln(w, "  Status:    skipped, account already has an approved device")
		fmt.Fprintf(w, "%s\n\n", border)
		return
	}

	fmt.Fprintln(w, "  Status:    first device approved")
	fmt.Fprintf(w, "  Device ID: %s\n", result.DeviceID)

	fmt.Fprintln(w, "\nNEXT STEP:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "  Install the device id above as the %q cookie in the operator's browser.\n", cookieName)
	fmt.Fprintln(w, "  Anyone holding this value can log in as this account without a code.")
	fmt.Fprintf(w, "%s\n\n", border)
}

// LogDeviceBootstrapSummary logs a concise summary using slog
func LogDeviceBootstrapSummary(result *DeviceBootstrapResult) {
	if result == nil {
		return
	}
	slog.Info("Device bootstrap summary",
		"account_id", result.AccountID,
		"username", result.Username,
		"approved", result.Approved,
	)
}
