package scans

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// TLDs that are never scanned regardless of claimed authorization.
var blockedTLDs = map[string]struct{}{
	"gov": {},
	"mil": {},
}

// Authorize enforces the scan safety policy. It must pass before any
// network activity: all three permission flags asserted, target not in a
// restricted TLD, target not a private or loopback address.
func Authorize(cmd ScanWebsiteCommand) error {
	if !cmd.ConfirmedPermission || !cmd.OwnerConfirmation || !cmd.LegalResponsibility {
		return fmt.Errorf("%w: all permission confirmations are required", domain.ErrNotAuthorized)
	}

	parsed, err := url.Parse(strings.TrimSpace(cmd.URL))
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("%w: target must be a valid http(s) URL", domain.ErrInvalidInput)
	}
	host := strings.ToLower(parsed.Hostname())

	if host == "localhost" || strings.HasSuffix(host, ".local") {
		return fmt.Errorf("%w: scanning internal addresses is not permitted", domain.ErrNotAuthorized)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("%w: scanning internal addresses is not permitted", domain.ErrNotAuthorized)
		}
		return nil
	}

	labels := strings.Split(host, ".")
	tld := labels[len(labels)-1]
	if _, blocked := blockedTLDs[tld]; blocked {
		return fmt.Errorf("%w: scanning .%s domains is not permitted", domain.ErrNotAuthorized, tld)
	}
	return nil
}
